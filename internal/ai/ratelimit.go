package ai

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/omnireply-ai/messaging-platform/internal/kv"
)

// LimitTable maps provider -> model -> daily request ceiling. Models absent
// from the table are unlimited. Loaded from configuration at startup so
// operators can tune quotas without a rebuild.
type LimitTable map[string]map[string]int

// AlternativesTable maps provider -> model -> ordered alternative models to
// try when the primary is at quota.
type AlternativesTable map[string]map[string][]string

// counterTTL keeps a day's counter around long enough to survive clock skew
// between nodes; the key embeds the date so stale counters never collide.
const counterTTL = 48 * time.Hour

// RateLimiter tracks per-provider-per-model daily request counts against a
// configured ceiling table. Counters are UTC-calendar-day scoped and only
// incremented after a successful call.
type RateLimiter struct {
	store  kv.Store
	limits LimitTable
	alts   AlternativesTable
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter over the given store and tables.
func NewRateLimiter(store kv.Store, limits LimitTable, alts AlternativesTable) *RateLimiter {
	return &RateLimiter{store: store, limits: limits, alts: alts, now: time.Now}
}

// SetClock overrides the time source for tests.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.now = now
}

func (r *RateLimiter) key(provider, model string) string {
	return fmt.Sprintf("rate_limit:%s:%s:%s", provider, model, r.now().UTC().Format("2006-01-02"))
}

func (r *RateLimiter) limit(provider, model string) (int, bool) {
	models, ok := r.limits[provider]
	if !ok {
		return 0, false
	}
	limit, ok := models[model]
	return limit, ok
}

func (r *RateLimiter) used(ctx context.Context, provider, model string) (int64, error) {
	val, err := r.store.Get(ctx, r.key(provider, model))
	if err == kv.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt rate-limit counter: %w", err)
	}
	return n, nil
}

// CanMakeRequest reports whether the (provider, model) pair has remaining
// daily quota. It is a pure read and never mutates the counter.
func (r *RateLimiter) CanMakeRequest(ctx context.Context, provider, model string) (bool, Usage, error) {
	limit, ok := r.limit(provider, model)
	usage := Usage{Provider: provider, Model: model, Limit: limit}
	if !ok {
		return true, usage, nil
	}

	used, err := r.used(ctx, provider, model)
	if err != nil {
		return false, usage, err
	}
	usage.Used = used
	return used < int64(limit), usage, nil
}

// RecordRequest increments the daily counter. Callers invoke this only
// after a successful provider call, against the model actually used.
func (r *RateLimiter) RecordRequest(ctx context.Context, provider, model string) error {
	_, err := r.store.Incr(ctx, r.key(provider, model), counterTTL)
	return err
}

// AlternativeModel returns the first configured alternative for the model
// that still has quota, or false when none does.
func (r *RateLimiter) AlternativeModel(ctx context.Context, provider, model string) (string, bool, error) {
	models, ok := r.alts[provider]
	if !ok {
		return "", false, nil
	}
	for _, alt := range models[model] {
		can, _, err := r.CanMakeRequest(ctx, provider, alt)
		if err != nil {
			return "", false, err
		}
		if can {
			return alt, true, nil
		}
	}
	return "", false, nil
}
