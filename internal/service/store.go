package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

// ConfigStore holds AI configuration per company: personalities, the active
// company default, and the business profile.
type ConfigStore struct {
	mu            sync.RWMutex
	personalities map[string]*model.Personality
	configs       map[string]*model.CompanyAIConfig
	profiles      map[string]*model.CompanyProfile
}

// NewConfigStore creates an empty config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		personalities: make(map[string]*model.Personality),
		configs:       make(map[string]*model.CompanyAIConfig),
		profiles:      make(map[string]*model.CompanyProfile),
	}
}

// Personality returns the personality by id, or nil.
func (s *ConfigStore) Personality(ctx context.Context, companyID, personalityID string) (*model.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personalities[personalityID]
	if !ok || p.CompanyID != companyID {
		return nil, nil
	}
	return p, nil
}

// ActiveCompanyConfig returns the company's active default, or nil.
func (s *ConfigStore) ActiveCompanyConfig(ctx context.Context, companyID string) (*model.CompanyAIConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[companyID]
	if !ok || !cfg.Active {
		return nil, nil
	}
	return cfg, nil
}

// CompanyProfile returns the company's business profile, or nil.
func (s *ConfigStore) CompanyProfile(ctx context.Context, companyID string) (*model.CompanyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[companyID], nil
}

// PutPersonality upserts a personality, assigning an id when absent.
func (s *ConfigStore) PutPersonality(p *model.Personality) *model.Personality {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.personalities[p.ID] = p
	return p
}

// PutCompanyConfig sets the company default. At most one active default per
// company; storing replaces the previous one.
func (s *ConfigStore) PutCompanyConfig(cfg *model.CompanyAIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.CompanyID] = cfg
}

// PutCompanyProfile sets the company profile.
func (s *ConfigStore) PutCompanyProfile(profile *model.CompanyProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.CompanyID] = profile
}

// KnowledgeStore holds knowledge bases and their chunks.
type KnowledgeStore struct {
	mu     sync.RWMutex
	bases  map[string]*model.KnowledgeBase
	chunks map[string][]model.KnowledgeChunk
}

// NewKnowledgeStore creates an empty knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		bases:  make(map[string]*model.KnowledgeBase),
		chunks: make(map[string][]model.KnowledgeChunk),
	}
}

func inScope(id string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == id {
			return true
		}
	}
	return false
}

// ActiveBases returns the company's active knowledge bases within scope.
func (s *KnowledgeStore) ActiveBases(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.KnowledgeBase
	for _, kb := range s.bases {
		if kb.CompanyID == companyID && kb.Active && inScope(kb.ID, scope) {
			out = append(out, *kb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Chunks returns all chunks of active in-scope knowledge bases.
func (s *KnowledgeStore) Chunks(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.KnowledgeChunk
	for id, kb := range s.bases {
		if kb.CompanyID != companyID || !kb.Active || !inScope(id, scope) {
			continue
		}
		out = append(out, s.chunks[id]...)
	}
	return out, nil
}

// ReplaceChunks swaps a knowledge base's chunk set wholesale.
func (s *KnowledgeStore) ReplaceChunks(ctx context.Context, knowledgeBaseID string, chunks []model.KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[knowledgeBaseID] = chunks
	return nil
}

// Put upserts a knowledge base, assigning an id when absent. Existing
// chunks survive until the next reindex.
func (s *KnowledgeStore) Put(kb *model.KnowledgeBase) *model.KnowledgeBase {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kb.ID == "" {
		kb.ID = uuid.Must(uuid.NewV7()).String()
	}
	kb.UpdatedAt = time.Now()
	s.bases[kb.ID] = kb
	return kb
}

// Get returns a knowledge base scoped to a company.
func (s *KnowledgeStore) Get(companyID, knowledgeBaseID string) (*model.KnowledgeBase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kb, ok := s.bases[knowledgeBaseID]
	if !ok || kb.CompanyID != companyID {
		return nil, false
	}
	return kb, true
}

// ProductStore holds the product catalog.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*model.Product
}

// NewProductStore creates an empty product store.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*model.Product)}
}

// ActiveProducts returns a company's active products.
func (s *ProductStore) ActiveProducts(ctx context.Context, companyID string) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Product
	for _, p := range s.products {
		if p.CompanyID == companyID && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Put upserts a product, assigning an id when absent.
func (s *ProductStore) Put(p *model.Product) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.products[p.ID] = p
	return p
}

// ConnectionStore holds platform connections.
type ConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]*model.PlatformConnection
}

// NewConnectionStore creates an empty connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{connections: make(map[string]*model.PlatformConnection)}
}

// Connection returns a connection by id, or nil.
func (s *ConnectionStore) Connection(ctx context.Context, connectionID string) (*model.PlatformConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[connectionID], nil
}

// Put upserts a connection, assigning an id when absent.
func (s *ConnectionStore) Put(conn *model.PlatformConnection) *model.PlatformConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn.ID == "" {
		conn.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.connections[conn.ID] = conn
	return conn
}
