package trust

import (
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultTrustCacheTTL is the default TTL for cached issuer-trust
	// decisions. An issuer's chain validity rarely changes within a
	// verifier session, so a longer TTL is appropriate.
	DefaultTrustCacheTTL = 5 * time.Minute

	// MaxTrustCacheTTL caps how long a trust decision may be cached,
	// bounding how stale a cached "trusted" answer can get before a
	// revoked or expired issuer certificate would be re-checked.
	MaxTrustCacheTTL = 1 * time.Hour
)

// TrustCache memoizes TrustDecisions so that verifying many presentations
// from the same issuer doesn't re-walk the x509 chain each time. Keys are
// derived from SubjectID, KeyType, role/credential type and a fingerprint
// of the key material, so a rotated issuer certificate misses the cache.
type TrustCache struct {
	cache *ttlcache.Cache[string, *CachedDecision]
}

// CachedDecision wraps a TrustDecision with cache bookkeeping.
type CachedDecision struct {
	Decision  *TrustDecision
	CachedAt  time.Time
	ExpiresAt time.Time
}

// TrustCacheConfig configures a TrustCache.
type TrustCacheConfig struct {
	// TTL is the time-to-live for cached decisions. Default: 5 minutes.
	TTL time.Duration

	// MaxCapacity bounds the number of cached entries. Zero means
	// unbounded (entries only expire by TTL).
	MaxCapacity uint64
}

// NewTrustCache creates and starts a trust decision cache.
func NewTrustCache(config TrustCacheConfig) *TrustCache {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTrustCacheTTL
	}
	if ttl > MaxTrustCacheTTL {
		ttl = MaxTrustCacheTTL
	}

	opts := []ttlcache.Option[string, *CachedDecision]{
		ttlcache.WithTTL[string, *CachedDecision](ttl),
	}

	if config.MaxCapacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *CachedDecision](config.MaxCapacity))
	}

	cache := ttlcache.New(opts...)
	go cache.Start()

	return &TrustCache{cache: cache}
}

// Get retrieves a cached decision for req, or nil if absent or expired.
func (c *TrustCache) Get(req *EvaluationRequest) *TrustDecision {
	key := c.buildCacheKey(req)
	item := c.cache.Get(key)
	if item == nil {
		return nil
	}

	cached := item.Value()
	if cached == nil {
		return nil
	}

	return cached.Decision
}

// Set stores decision for req using the cache's default TTL.
func (c *TrustCache) Set(req *EvaluationRequest, decision *TrustDecision) {
	c.SetWithTTL(req, decision, ttlcache.DefaultTTL)
}

// SetWithTTL stores decision for req with a custom TTL, e.g. a shorter
// TTL for an issuer whose root is known to be close to rotation.
func (c *TrustCache) SetWithTTL(req *EvaluationRequest, decision *TrustDecision, ttl time.Duration) {
	key := c.buildCacheKey(req)
	now := time.Now()

	cached := &CachedDecision{
		Decision:  decision,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	c.cache.Set(key, cached, ttl)
}

// Invalidate removes the entry for req, e.g. after AddTrustedRoot changes
// what a subsequent Evaluate would decide.
func (c *TrustCache) Invalidate(req *EvaluationRequest) {
	key := c.buildCacheKey(req)
	c.cache.Delete(key)
}

// InvalidateSubject drops all cached decisions. The cache key is a hash
// of the full request, not just SubjectID, so there is no cheaper way to
// invalidate a single issuer without keeping a secondary index; callers
// that need per-issuer invalidation should track which requests they
// issued and call Invalidate for each instead.
func (c *TrustCache) InvalidateSubject(subjectID string) {
	c.cache.DeleteAll()
}

// Clear removes all entries from the cache.
func (c *TrustCache) Clear() {
	c.cache.DeleteAll()
}

// Stop stops the cache's background expiration goroutine.
func (c *TrustCache) Stop() {
	c.cache.Stop()
}

// Len returns the number of entries currently cached.
func (c *TrustCache) Len() int {
	return c.cache.Len()
}

// buildCacheKey derives a cache key from the parts of req that determine
// the decision: subject, key type, effective role/credential-type action,
// and a fingerprint of the key material itself.
func (c *TrustCache) buildCacheKey(req *EvaluationRequest) string {
	h := sha256.New()

	h.Write([]byte(req.SubjectID))
	h.Write([]byte{0})

	h.Write([]byte(req.KeyType))
	h.Write([]byte{0})

	h.Write([]byte(req.GetEffectiveAction()))
	h.Write([]byte{0})

	h.Write([]byte(computeKeyFingerprint(req.Key, req.KeyType)))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// computeKeyFingerprint hashes the key material so a rotated or
// substituted issuer key invalidates any prior cached decision.
func computeKeyFingerprint(key any, keyType KeyType) string {
	if key == nil {
		return ""
	}

	h := sha256.New()

	switch keyType {
	case KeyTypeX5C:
		switch chain := key.(type) {
		case []*x509.Certificate:
			if len(chain) > 0 {
				h.Write(chain[0].Raw)
			}
		case X5CCertChain:
			if len(chain) > 0 {
				h.Write(chain[0].Raw)
			}
		}

	case KeyTypeJWK:
		if jwk, ok := key.(map[string]any); ok {
			if data, err := json.Marshal(jwk); err == nil {
				h.Write(data)
			}
		}

	default:
		h.Write([]byte(fmt.Sprintf("%v", key)))
	}

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:16])
}

// CachingTrustEvaluator wraps a TrustEvaluator with a TrustCache, so that
// repeated verification of presentations from the same issuer skips
// re-validating the x5c chain.
type CachingTrustEvaluator struct {
	evaluator TrustEvaluator
	cache     *TrustCache
}

// NewCachingTrustEvaluator wraps evaluator with a cache built from config.
func NewCachingTrustEvaluator(evaluator TrustEvaluator, config TrustCacheConfig) *CachingTrustEvaluator {
	return &CachingTrustEvaluator{
		evaluator: evaluator,
		cache:     NewTrustCache(config),
	}
}

// Evaluate returns a cached decision if present, otherwise delegates to
// the wrapped evaluator and caches the result if it trusted the issuer.
// Only positive decisions are cached, so a transient failure (e.g. a
// clock skew rejection) doesn't stick around past whatever caused it.
func (c *CachingTrustEvaluator) Evaluate(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	if req.Options != nil && req.Options.BypassCache {
		return c.evaluator.Evaluate(ctx, req)
	}

	if cached := c.cache.Get(req); cached != nil {
		return cached, nil
	}

	decision, err := c.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	if decision != nil && decision.Trusted {
		c.cache.Set(req, decision)
	}

	return decision, nil
}

// SupportsKeyType delegates to the wrapped evaluator.
func (c *CachingTrustEvaluator) SupportsKeyType(kt KeyType) bool {
	return c.evaluator.SupportsKeyType(kt)
}

// Invalidate removes req's cached entry.
func (c *CachingTrustEvaluator) Invalidate(req *EvaluationRequest) {
	c.cache.Invalidate(req)
}

// Clear removes all cached entries.
func (c *CachingTrustEvaluator) Clear() {
	c.cache.Clear()
}

// Stop stops the cache's background expiration goroutine.
func (c *CachingTrustEvaluator) Stop() {
	c.cache.Stop()
}

// Cache returns the underlying TrustCache for direct manipulation.
func (c *CachingTrustEvaluator) Cache() *TrustCache {
	return c.cache
}
