package keys

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tubescout-platform/tubescout/internal/store"
)

const rotationStoreKey = "keys:rotation"

// ExhaustionChecker reports whether an API key has burned through its daily
// quota. Implemented by quota.Ledger.
type ExhaustionChecker interface {
	IsExhausted(apiKey string) bool
}

// rotationState is the persisted shape of the rotator.
type rotationState struct {
	Keys        []string `json:"keys"`
	ActiveIndex int      `json:"active_index"`
}

// Rotator holds the ordered list of configured API keys and an active-key
// pointer, and hands out the next key the ledger still considers usable.
// Safe for concurrent use.
type Rotator struct {
	mu      sync.Mutex
	store   store.Store
	checker ExhaustionChecker
	keys    []string
	active  int
}

// NewRotator creates a Rotator, restoring any persisted key list. When the
// store holds no keys yet, seedKeys (typically from config) are installed.
func NewRotator(ctx context.Context, st store.Store, checker ExhaustionChecker, seedKeys []string) (*Rotator, error) {
	r := &Rotator{store: st, checker: checker}

	var state rotationState
	ok, err := store.GetJSON(ctx, st, rotationStoreKey, &state)
	if err != nil {
		return nil, err
	}
	if ok && len(state.Keys) > 0 {
		r.keys = state.Keys
		if state.ActiveIndex >= 0 && state.ActiveIndex < len(state.Keys) {
			r.active = state.ActiveIndex
		}
		return r, nil
	}

	if len(seedKeys) > 0 {
		if err := r.SetKeys(ctx, seedKeys); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetKeys replaces the ordered key list and resets the active pointer.
func (r *Rotator) SetKeys(ctx context.Context, apiKeys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys = append([]string(nil), apiKeys...)
	r.active = 0
	return r.persist(ctx)
}

// Keys returns a copy of the configured key list.
func (r *Rotator) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

// Snapshot returns the key list together with the active index.
func (r *Rotator) Snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...), r.active
}

// ActiveKey returns the key the pointer currently rests on, or "" when no
// keys are configured. The active key may itself be exhausted; callers that
// need a usable key go through UsableKey.
func (r *Rotator) ActiveKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[r.active]
}

// UsableKey returns the active key when the ledger has not exhausted it,
// otherwise rotates to the next usable one.
func (r *Rotator) UsableKey(ctx context.Context) string {
	r.mu.Lock()
	if len(r.keys) == 0 {
		r.mu.Unlock()
		return ""
	}
	current := r.keys[r.active]
	r.mu.Unlock()

	if !r.checker.IsExhausted(current) {
		return current
	}
	return r.NextUsableKey(ctx)
}

// NextUsableKey scans forward from the key after the active one, wrapping
// around, and returns the first key the ledger does not consider exhausted,
// moving the active pointer to it. When every key is exhausted it returns
// the current active key anyway: the ledger is a prediction, the remote
// quota error is the ground truth, so the caller should still attempt the
// call. Returns "" only when no keys are configured.
func (r *Rotator) NextUsableKey(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.keys)
	if n == 0 {
		return ""
	}

	for offset := 1; offset <= n; offset++ {
		idx := (r.active + offset) % n
		candidate := r.keys[idx]
		if !r.checker.IsExhausted(candidate) {
			r.active = idx
			if err := r.persist(ctx); err != nil {
				slog.Warn("keys: persisting rotation state", "error", err)
			}
			return candidate
		}
	}

	return r.keys[r.active]
}

func (r *Rotator) persist(ctx context.Context) error {
	state := rotationState{Keys: r.keys, ActiveIndex: r.active}
	return store.SetJSON(ctx, r.store, rotationStoreKey, state, 0)
}
