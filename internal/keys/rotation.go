package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tubescout-platform/tubescout/internal/metrics"
)

// ErrNoUsableKey is returned when a remote call cannot be attempted or
// retried because no alternate API key is available.
var ErrNoUsableKey = errors.New("no valid API key available")

// ExhaustionMarker records that a key was rejected by the remote API for
// quota reasons. Implemented by quota.Ledger.
type ExhaustionMarker interface {
	MarkExhausted(ctx context.Context, apiKey string) error
}

// quotaFailure is implemented by errors that represent a remote
// quota-exceeded rejection (youtube.QuotaError).
type quotaFailure interface {
	QuotaExceeded() bool
}

// IsQuotaError reports whether err represents a remote quota rejection.
func IsQuotaError(err error) bool {
	var qf quotaFailure
	return errors.As(err, &qf) && qf.QuotaExceeded()
}

// WithRotation runs call with the current usable key and applies the quota
// failover policy in one place: on a quota error the key is marked
// exhausted, the rotator advances, and the call is retried exactly once
// with the alternate key. When no different key exists the quota error is
// surfaced wrapped in ErrNoUsableKey. Non-quota errors propagate untouched.
// The key the successful call used is returned alongside the result.
func WithRotation[T any](ctx context.Context, r *Rotator, m ExhaustionMarker, call func(apiKey string) (T, error)) (T, string, error) {
	var zero T

	apiKey := r.UsableKey(ctx)
	if apiKey == "" {
		return zero, "", ErrNoUsableKey
	}

	out, err := call(apiKey)
	if err == nil {
		return out, apiKey, nil
	}
	if !IsQuotaError(err) {
		return zero, "", err
	}

	if mErr := m.MarkExhausted(ctx, apiKey); mErr != nil {
		slog.Warn("keys: marking key exhausted", "error", mErr)
	}

	alt := r.NextUsableKey(ctx)
	if alt == "" || alt == apiKey {
		return zero, "", fmt.Errorf("%w: %w", ErrNoUsableKey, err)
	}

	metrics.KeyRotationsTotal.Inc()
	slog.Info("keys: quota exceeded, retrying with next key")

	out, err = call(alt)
	if err != nil {
		return zero, "", err
	}
	return out, alt, nil
}
