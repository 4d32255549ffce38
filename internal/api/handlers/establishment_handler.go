package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

// EstablishmentCatalog lists and reloads the known establishments
type EstablishmentCatalog interface {
	List(ctx context.Context) ([]entities.Establishment, error)
	Refresh(ctx context.Context) (int, error)
	Ready() bool
}

// EstablishmentHandler handles establishment HTTP requests
type EstablishmentHandler struct {
	catalog EstablishmentCatalog
}

// NewEstablishmentHandler creates a new establishment handler
func NewEstablishmentHandler(catalog EstablishmentCatalog) *EstablishmentHandler {
	return &EstablishmentHandler{catalog: catalog}
}

// ListEstablishments handles GET /api/establishments
func (h *EstablishmentHandler) ListEstablishments(w http.ResponseWriter, r *http.Request) {
	establishments, err := h.catalog.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"establishments": establishments,
		"count":          len(establishments),
	})
}

// RefreshEstablishments handles POST /api/admin/establishments/refresh
func (h *EstablishmentHandler) RefreshEstablishments(w http.ResponseWriter, r *http.Request) {
	written, err := h.catalog.Refresh(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	observability.LoggerFromContext(r.Context()).Info().Int("written", written).Msg("Establishments refreshed via admin endpoint")
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "refreshed",
		"written": written,
	})
}

// Health handles GET /health
func (h *EstablishmentHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Ready handles GET /ready; it reports 503 until establishments are loaded
func (h *EstablishmentHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.catalog.Ready() {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "initializing"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
