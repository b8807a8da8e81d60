package discovery

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tubescout-platform/tubescout/internal/api"
	"github.com/tubescout-platform/tubescout/internal/keys"
)

type Handler struct {
	engine   *Engine
	validate *validator.Validate
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine, validate: validator.New()}
}

// Search runs a discovery search and returns the filtered channels.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(params); err != nil {
		api.HandleError(w, api.NewValidationError("keywords are required"))
		return
	}

	result, err := h.engine.Run(r.Context(), params)
	if err != nil {
		if errors.Is(err, keys.ErrNoUsableKey) {
			api.HandleError(w, api.ErrQuotaExhausted)
			return
		}
		api.HandleError(w, api.NewUpstreamError(err.Error()))
		return
	}
	api.JSON(w, http.StatusOK, result)
}

// Countries returns the supported country filter options.
func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, Countries)
}
