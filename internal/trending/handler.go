package trending

import (
	"errors"
	"net/http"

	"github.com/tubescout-platform/tubescout/internal/api"
	"github.com/tubescout-platform/tubescout/internal/keys"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the trending snapshot for the region query parameter,
// falling back to the global chart when the region is missing or not a
// two-letter code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Fetch(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		if errors.Is(err, keys.ErrNoUsableKey) {
			api.HandleError(w, api.ErrQuotaExhausted)
			return
		}
		api.HandleError(w, api.NewUpstreamError(err.Error()))
		return
	}
	api.JSON(w, http.StatusOK, snap)
}
