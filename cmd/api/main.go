// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/ai"
	"github.com/omnireply-ai/messaging-platform/internal/coalesce"
	"github.com/omnireply-ai/messaging-platform/internal/config"
	"github.com/omnireply-ai/messaging-platform/internal/dispatch"
	"github.com/omnireply-ai/messaging-platform/internal/handler"
	"github.com/omnireply-ai/messaging-platform/internal/kv"
	"github.com/omnireply-ai/messaging-platform/internal/llm"
	"github.com/omnireply-ai/messaging-platform/internal/middleware"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	natsclient "github.com/omnireply-ai/messaging-platform/internal/nats"
	"github.com/omnireply-ai/messaging-platform/internal/retrieval"
	"github.com/omnireply-ai/messaging-platform/internal/service"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "messaging-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Ensure JetStream stream exists
	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Shared KV store: Redis when configured, in-process otherwise
	var store kv.Store
	if cfg.RedisURL != "" {
		redisStore, err := kv.NewRedisStore(cfg.RedisURL, "omnireply:")
		if err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		log.Warn("REDIS_URL not set, using in-process store")
		store = kv.NewMemoryStore()
	}

	// AI provider clients
	var clients []llm.Client
	if cfg.OpenAIAPIKey != "" {
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		} else {
			clients = append(clients, c)
		}
	}
	if cfg.AnthropicAPIKey != "" {
		c, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		} else {
			clients = append(clients, c)
		}
	}
	registry := llm.NewRegistry(clients...)

	var embedder llm.Embedder
	if cfg.OpenAIAPIKey != "" {
		e, err := llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Warn("failed to create embedder, vector retrieval disabled", zap.Error(err))
		} else {
			embedder = e
		}
	}

	// Tenant data stores
	configStore := service.NewConfigStore()
	knowledgeStore := service.NewKnowledgeStore()
	productStore := service.NewProductStore()
	connectionStore := service.NewConnectionStore()

	// Retrieval layer
	retrievalSvc := retrieval.NewService(knowledgeStore, embedder, log)
	indexer := retrieval.NewIndexer(knowledgeStore, &retrieval.Chunker{Budget: retrieval.DefaultChunkBudget}, embedder, log)
	productSvc := retrieval.NewProductService(productStore, cfg.ProductIntentKeywords, cfg.ShortQueryThreshold)

	// Conversation and message services
	conversationSvc := service.NewConversationService(streamManager, log)
	messageSvc := service.NewMessageService(streamManager, conversationSvc, log)

	// AI pipeline
	orchestrator := ai.NewOrchestrator(
		ai.NewResolver(configStore, log),
		retrievalSvc,
		productSvc,
		retrieval.ExtractFilters,
		messageSvc,
		registry,
		ai.NewRateLimiter(store, cfg.ModelDailyLimits, cfg.ModelAlternatives),
		ai.NewResponseCache(store, cfg.ResponseCacheTTL),
		ai.NewPromptBuilder(ai.PromptPolicy{
			Style:   cfg.PromptStylePolicy,
			Handoff: cfg.PromptHandoffPolicy,
		}),
		ai.NewHTTPImageFetcher(),
		log,
		ai.WithProviderTimeout(cfg.ProviderTimeout),
		ai.WithSimilarityThreshold(cfg.SimilarityThreshold),
	)

	// Outbound dispatch
	dispatcher := dispatch.New(messageSvc, connectionStore, log,
		dispatch.NewRelaySender(model.PlatformWhatsApp, cfg.OutboundRelayURL),
		dispatch.NewRelaySender(model.PlatformFacebook, cfg.OutboundRelayURL),
		dispatch.NewRelaySender(model.PlatformTelegram, cfg.OutboundRelayURL),
		dispatch.NewRelaySender(model.PlatformLine, cfg.OutboundRelayURL),
		dispatch.NewRelaySender(model.PlatformWebWidget, cfg.OutboundRelayURL),
	)

	// Debounced response scheduling
	coalescer := coalesce.New(store, messageSvc, conversationSvc, orchestrator, dispatcher, cfg.ResponseDebounce, log)

	ingestSvc := service.NewIngestService(connectionStore, conversationSvc, messageSvc, coalescer, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(conversationSvc, messageSvc, log)
	ingestHandler := handler.NewIngestHandler(ingestSvc, log)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeStore, indexer, log)
	adminHandler := handler.NewAdminHandler(configStore, productStore, connectionStore, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Inbound messages from platform adapters
		r.Post("/ingest/{connectionID}", ingestHandler.Receive)

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Close)
				r.Get("/messages", conversationHandler.Messages)
				r.Put("/ai-handling", conversationHandler.SetAIHandling)
			})
		})

		// Knowledge bases
		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", knowledgeHandler.List)
			r.Put("/", knowledgeHandler.Upsert)
			r.Post("/{id}/reindex", knowledgeHandler.Reindex)
		})

		// Tenant configuration
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireScope("admin"))
			r.Put("/ai-config", adminHandler.PutAIConfig)
			r.Put("/personalities", adminHandler.PutPersonality)
			r.Put("/profile", adminHandler.PutProfile)
			r.Put("/products", adminHandler.PutProduct)
			r.Put("/connections", adminHandler.PutConnection)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
