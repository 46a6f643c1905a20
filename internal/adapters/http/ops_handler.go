package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"payfort-gateway/internal/app"
	"payfort-gateway/internal/core/domain"
)

// OpsHandler serves the internal support API for inspecting recorded
// processor responses. It sits behind JWT auth, never on the public surface.
type OpsHandler struct {
	service *app.Service
	logger  *slog.Logger
}

func NewOpsHandler(service *app.Service, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{service: service, logger: logger}
}

func (h *OpsHandler) Register(r chi.Router) {
	r.Get("/baskets/{basketID}/responses", h.HandleBasketResponses)
}

func (h *OpsHandler) HandleBasketResponses(w http.ResponseWriter, r *http.Request) {
	basketID, err := strconv.ParseInt(chi.URLParam(r, "basketID"), 10, 64)
	if err != nil {
		writeJSONError(w, "invalid basket ID", http.StatusBadRequest, h.logger)
		return
	}

	responses, err := h.service.ResponsesByBasket(r.Context(), basketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSONError(w, "basket not found", http.StatusNotFound, h.logger)
			return
		}
		h.logger.Error("failed to list processor responses", "basket_id", basketID, "error", err)
		writeJSONError(w, "Internal Server Error", http.StatusInternalServerError, h.logger)
		return
	}

	writeJSON(w, responses, http.StatusOK, h.logger)
}
