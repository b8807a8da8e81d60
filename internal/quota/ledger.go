package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tubescout-platform/tubescout/internal/metrics"
	"github.com/tubescout-platform/tubescout/internal/store"
)

const (
	usageStoreKey     = "quota:usage"
	exhaustedStoreKey = "quota:exhausted"
	windowStoreKey    = "quota:window-start"

	rollingWindow = 24 * time.Hour
)

// ResetPolicy controls when usage counters return to zero. The YouTube API
// resets its own counters at midnight Pacific; the ledger either waits for
// an explicit reset (manual) or rolls itself over 24h after the first
// recorded use (rolling).
type ResetPolicy string

const (
	ResetManual  ResetPolicy = "manual"
	ResetRolling ResetPolicy = "rolling"
)

// unitCosts maps an operation kind to its quota unit price.
var unitCosts = map[string]int{
	"search": 100,
	"list":   1,
}

const defaultUnitCost = 1

// Ledger tracks per-key daily quota usage against a fixed budget and marks
// keys exhausted once they cross it. Every mutation is persisted to the
// store so usage survives restarts. Safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	store       store.Store
	dailyLimit  int
	policy      ResetPolicy
	now         func() time.Time
	usage       map[string]int
	exhausted   map[string]bool
	windowStart time.Time
}

// Info is the per-key quota snapshot served to clients.
type Info struct {
	Used       int `json:"used"`
	Remaining  int `json:"remaining"`
	Percentage int `json:"percentage"`
}

// NewLedger creates a Ledger and loads any persisted state.
func NewLedger(ctx context.Context, st store.Store, dailyLimit int, policy ResetPolicy) (*Ledger, error) {
	l := &Ledger{
		store:      st,
		dailyLimit: dailyLimit,
		policy:     policy,
		now:        time.Now,
		usage:      make(map[string]int),
		exhausted:  make(map[string]bool),
	}

	if _, err := store.GetJSON(ctx, st, usageStoreKey, &l.usage); err != nil {
		return nil, err
	}
	if _, err := store.GetJSON(ctx, st, exhaustedStoreKey, &l.exhausted); err != nil {
		return nil, err
	}
	if _, err := store.GetJSON(ctx, st, windowStoreKey, &l.windowStart); err != nil {
		return nil, err
	}
	if l.usage == nil {
		l.usage = make(map[string]int)
	}
	if l.exhausted == nil {
		l.exhausted = make(map[string]bool)
	}
	return l, nil
}

// RecordUsage adds unitCostOf(operation) * resourceCount units to the key's
// usage and marks the key exhausted once it reaches the daily limit.
// An empty key is a no-op.
func (l *Ledger) RecordUsage(ctx context.Context, apiKey, operation string, resourceCount int) error {
	if apiKey == "" || resourceCount <= 0 {
		return nil
	}

	cost, ok := unitCosts[operation]
	if !ok {
		cost = defaultUnitCost
	}
	units := cost * resourceCount

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfStale(ctx)

	if l.windowStart.IsZero() {
		l.windowStart = l.now()
	}
	l.usage[apiKey] += units
	metrics.QuotaUnitsUsedTotal.WithLabelValues(operation).Add(float64(units))

	if l.usage[apiKey] >= l.dailyLimit && !l.exhausted[apiKey] {
		l.exhausted[apiKey] = true
		slog.Warn("quota: key reached daily limit", "used", l.usage[apiKey], "limit", l.dailyLimit)
	}

	return l.persist(ctx)
}

// MarkExhausted flags a key unusable for the rest of the accounting window,
// typically after the remote API rejected it with a quota error.
func (l *Ledger) MarkExhausted(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.exhausted[apiKey] = true
	return l.persist(ctx)
}

// IsExhausted reports whether the key has been marked unusable.
func (l *Ledger) IsExhausted(apiKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfStale(context.Background())
	return l.exhausted[apiKey]
}

// QuotaInfo returns the usage snapshot for a key. Unknown or empty keys
// report zero usage against the full budget.
func (l *Ledger) QuotaInfo(apiKey string) Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfStale(context.Background())

	used := l.usage[apiKey]
	remaining := l.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	pct := (used*100 + l.dailyLimit/2) / l.dailyLimit
	if pct > 100 {
		pct = 100
	}
	return Info{Used: used, Remaining: remaining, Percentage: pct}
}

// Reset zeroes the key's usage and clears its exhaustion flag. An empty key
// resets every key and restarts the accounting window.
func (l *Ledger) Reset(ctx context.Context, apiKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if apiKey == "" {
		l.resetAllLocked()
	} else {
		delete(l.usage, apiKey)
		delete(l.exhausted, apiKey)
	}
	return l.persist(ctx)
}

func (l *Ledger) resetAllLocked() {
	l.usage = make(map[string]int)
	l.exhausted = make(map[string]bool)
	l.windowStart = time.Time{}
}

// rollIfStale restarts the window under the rolling policy once 24h have
// passed since the first recorded use. Callers must hold l.mu.
func (l *Ledger) rollIfStale(ctx context.Context) {
	if l.policy != ResetRolling || l.windowStart.IsZero() {
		return
	}
	if l.now().Sub(l.windowStart) < rollingWindow {
		return
	}
	slog.Info("quota: accounting window elapsed, resetting usage")
	l.resetAllLocked()
	if err := l.persist(ctx); err != nil {
		slog.Warn("quota: persisting rolled window", "error", err)
	}
}

// persist writes all ledger state. Last write wins; callers must hold l.mu.
func (l *Ledger) persist(ctx context.Context) error {
	metrics.KeysExhausted.Set(float64(len(l.exhausted)))
	if err := store.SetJSON(ctx, l.store, usageStoreKey, l.usage, 0); err != nil {
		return err
	}
	if err := store.SetJSON(ctx, l.store, exhaustedStoreKey, l.exhausted, 0); err != nil {
		return err
	}
	return store.SetJSON(ctx, l.store, windowStoreKey, l.windowStart, 0)
}
