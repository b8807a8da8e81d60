package keys

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tubescout-platform/tubescout/internal/api"
	"github.com/tubescout-platform/tubescout/internal/quota"
)

// LedgerView is the slice of the quota ledger the key-management API needs.
type LedgerView interface {
	QuotaInfo(apiKey string) quota.Info
	Reset(ctx context.Context, apiKey string) error
	IsExhausted(apiKey string) bool
}

// KeyValidator checks a key against the remote API with a cheap call.
// Implemented by youtube.DataAPIClient.
type KeyValidator interface {
	ValidateKey(ctx context.Context, apiKey string) error
}

type Handler struct {
	rotator      *Rotator
	ledger       LedgerView
	keyValidator KeyValidator
	validate     *validator.Validate
}

func NewHandler(rotator *Rotator, ledger LedgerView, keyValidator KeyValidator) *Handler {
	return &Handler{
		rotator:      rotator,
		ledger:       ledger,
		keyValidator: keyValidator,
		validate:     validator.New(),
	}
}

type setKeysRequest struct {
	Keys []string `json:"keys" validate:"dive,required"`
}

type keyStatus struct {
	Key       string     `json:"key"`
	Quota     quota.Info `json:"quota"`
	Exhausted bool       `json:"exhausted"`
	Active    bool       `json:"active"`
}

type validationResult struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

// Put replaces the configured key list. Quota records of keys that are no
// longer configured are dropped.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var req setKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	previous := h.rotator.Keys()

	if err := h.rotator.SetKeys(r.Context(), req.Keys); err != nil {
		slog.Error("storing api keys", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	kept := make(map[string]bool, len(req.Keys))
	for _, k := range req.Keys {
		kept[k] = true
	}
	for _, k := range previous {
		if kept[k] {
			continue
		}
		if err := h.ledger.Reset(r.Context(), k); err != nil {
			slog.Warn("dropping quota record for removed key", "error", err)
		}
	}

	api.JSONMessage(w, http.StatusOK, "api keys updated")
}

// List returns the configured keys (redacted) with their quota standing.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	configured, active := h.rotator.Snapshot()

	statuses := make([]keyStatus, len(configured))
	for i, k := range configured {
		statuses[i] = keyStatus{
			Key:       Redact(k),
			Quota:     h.ledger.QuotaInfo(k),
			Exhausted: h.ledger.IsExhausted(k),
			Active:    i == active,
		}
	}

	api.JSON(w, http.StatusOK, statuses)
}

// Validate checks each submitted key against the remote API.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req setKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if len(req.Keys) == 0 {
		api.HandleError(w, api.NewValidationError("keys is required"))
		return
	}

	results := make([]validationResult, len(req.Keys))
	for i, k := range req.Keys {
		status := "valid"
		if err := h.keyValidator.ValidateKey(r.Context(), k); err != nil {
			status = "invalid"
		}
		results[i] = validationResult{Key: Redact(k), Status: status}
	}

	api.JSON(w, http.StatusOK, results)
}

type quotaResponse struct {
	Active quota.Info            `json:"active"`
	Keys   map[string]quota.Info `json:"keys"`
}

// Quota returns the active key's quota snapshot plus a per-key breakdown.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	configured, active := h.rotator.Snapshot()

	resp := quotaResponse{Keys: make(map[string]quota.Info, len(configured))}
	for i, k := range configured {
		resp.Keys[Redact(k)] = h.ledger.QuotaInfo(k)
		if i == active {
			resp.Active = h.ledger.QuotaInfo(k)
		}
	}

	api.JSON(w, http.StatusOK, resp)
}

type resetRequest struct {
	Key string `json:"key"`
}

// ResetQuota zeroes usage for one key, or for all keys when none is given.
func (h *Handler) ResetQuota(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.HandleError(w, api.ErrBadRequest)
			return
		}
	}

	if err := h.ledger.Reset(r.Context(), req.Key); err != nil {
		slog.Error("resetting quota", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "quota reset")
}

// Redact hides the middle of an API key for display.
func Redact(apiKey string) string {
	if len(apiKey) <= 12 {
		return "****"
	}
	return apiKey[:6] + "****" + apiKey[len(apiKey)-4:]
}
