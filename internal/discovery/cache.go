package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tubescout-platform/tubescout/internal/metrics"
	"github.com/tubescout-platform/tubescout/internal/store"
)

// Fingerprint reduces search params to a canonical identity so that
// equivalent searches share one cache slot. Keywords are lowercased and
// whitespace-normalized, country codes uppercased, deduplicated and
// sorted, and numeric bounds compared by parsed value rather than by
// the text the caller typed.
func Fingerprint(params SearchParams) string {
	keywords := strings.Join(strings.Fields(strings.ToLower(params.Keywords)), " ")

	codes := make([]string, 0, len(params.CountryCodes))
	for _, c := range normalizeCodes(params.CountryCodes) {
		if !slices.Contains(codes, c) {
			codes = append(codes, c)
		}
	}
	slices.Sort(codes)

	canonical := fmt.Sprintf("kw=%s|cc=%s|subs=%d..%d|age=%d..%d",
		keywords,
		strings.Join(codes, ","),
		ParseNumberWithSuffix(params.MinSubscribers),
		ParseNumberWithSuffix(params.MaxSubscribers),
		parseDays(params.MinAgeDays),
		parseDays(params.MaxAgeDays),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// cacheEntry is the persisted form of a finished run.
type cacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Channels    []Channel `json:"channels"`
	UniqueFound int       `json:"unique_found"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResultCache stores finished discovery results keyed by search
// fingerprint. Entries expire after the configured TTL; expiry is
// enforced on read in case the backing store outlives it.
type ResultCache struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewResultCache(s store.Store, ttl time.Duration) *ResultCache {
	return &ResultCache{store: s, ttl: ttl, now: time.Now}
}

func cacheKey(fingerprint string) string {
	return "discovery:result:" + fingerprint
}

// Get returns the cached channels for params, or ok=false on a miss or
// an expired entry.
func (c *ResultCache) Get(ctx context.Context, params SearchParams) ([]Channel, int, bool) {
	fp := Fingerprint(params)
	var entry cacheEntry
	found, err := store.GetJSON(ctx, c.store, cacheKey(fp), &entry)
	if err != nil {
		slog.Warn("discovery: reading cache", "error", err)
		return nil, 0, false
	}
	if !found {
		metrics.DiscoveryCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, 0, false
	}
	if c.now().Sub(entry.CreatedAt) > c.ttl {
		metrics.DiscoveryCacheHitsTotal.WithLabelValues("expired").Inc()
		if err := c.store.Delete(ctx, cacheKey(fp)); err != nil {
			slog.Warn("discovery: deleting expired cache entry", "error", err)
		}
		return nil, 0, false
	}
	metrics.DiscoveryCacheHitsTotal.WithLabelValues("hit").Inc()
	return entry.Channels, entry.UniqueFound, true
}

// Put stores a finished run under its fingerprint.
func (c *ResultCache) Put(ctx context.Context, params SearchParams, channels []Channel, uniqueFound int) error {
	fp := Fingerprint(params)
	entry := cacheEntry{
		Fingerprint: fp,
		Channels:    channels,
		UniqueFound: uniqueFound,
		CreatedAt:   c.now(),
	}
	return store.SetJSON(ctx, c.store, cacheKey(fp), entry, c.ttl)
}
