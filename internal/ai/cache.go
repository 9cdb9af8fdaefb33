package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/omnireply-ai/messaging-platform/internal/kv"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// DefaultCacheTTL bounds how long a generated answer stays reusable.
const DefaultCacheTTL = time.Hour

// ResponseCache is a content-addressed cache of prior AI answers, keyed by
// company, normalized message, retrieved-knowledge fingerprint and
// conversation. Turns with media context never touch it.
type ResponseCache struct {
	store kv.Store
	ttl   time.Duration
}

// NewResponseCache creates a cache with the given TTL (DefaultCacheTTL
// when zero).
func NewResponseCache(store kv.Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{store: store, ttl: ttl}
}

// normalizeMessage collapses whitespace and case so trivially restated
// questions hit the same entry.
func normalizeMessage(message string) string {
	return strings.ToLower(strings.Join(strings.Fields(message), " "))
}

// Key derives the cache key. Knowledge ids are sorted so retrieval order
// does not fragment the cache.
func (c *ResponseCache) Key(companyID, message string, knowledgeIDs []string, conversationID string) string {
	ids := append([]string(nil), knowledgeIDs...)
	sort.Strings(ids)

	kh := sha256.Sum256([]byte(strings.Join(ids, ",")))

	h := sha256.New()
	h.Write([]byte(companyID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeMessage(message)))
	h.Write([]byte{0})
	h.Write(kh[:])
	h.Write([]byte{0})
	h.Write([]byte(conversationID))

	return "ai_response:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached answer for the key, if any.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheLookup("miss")
		return "", false
	}
	metrics.RecordCacheLookup("hit")
	return val, true
}

// Set stores a clean answer under the key.
func (c *ResponseCache) Set(ctx context.Context, key, answer string) error {
	return c.store.Set(ctx, key, answer, c.ttl)
}
