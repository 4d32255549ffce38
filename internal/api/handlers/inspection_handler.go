package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

const (
	// FailedEstablishmentsHeader carries how many establishments could not be fetched
	FailedEstablishmentsHeader = "X-Failed-Establishments"
	snapshotRunHeader          = "X-Snapshot-Run-ID"
	snapshotGeneratedHeader    = "X-Snapshot-Generated-At"

	startDateLayout = "2006-01-02"
)

// InspectionFetcher fetches inspection rows from the remote API
type InspectionFetcher interface {
	FetchAll(ctx context.Context) (*services.FetchReport, error)
	FetchIdentity(ctx context.Context, identifier, city, startDate string) ([]entities.InspectionRow, *services.FetchFailure)
}

// SnapshotReader reads pre-rendered bulk views
type SnapshotReader interface {
	Get(ctx context.Context, view services.InspectionView) (*services.Snapshot, error)
}

// InspectionHandler handles inspection HTTP requests
type InspectionHandler struct {
	fetcher   InspectionFetcher
	snapshots SnapshotReader
}

// NewInspectionHandler creates a new inspection handler. snapshots may be nil,
// in which case every bulk request fetches live.
func NewInspectionHandler(fetcher InspectionFetcher, snapshots SnapshotReader) *InspectionHandler {
	return &InspectionHandler{
		fetcher:   fetcher,
		snapshots: snapshots,
	}
}

// Bulk handles GET /api/inspections[/latest|/aggregated|/aggregated/latest]
func (h *InspectionHandler) Bulk(view services.InspectionView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if h.snapshots != nil {
			snap, err := h.snapshots.Get(ctx, view)
			if err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("view", string(view)).Msg("Snapshot read failed, fetching live")
			}
			if snap != nil {
				w.Header().Set(FailedEstablishmentsHeader, strconv.Itoa(snap.Failures))
				w.Header().Set(snapshotRunHeader, snap.RunID)
				w.Header().Set(snapshotGeneratedHeader, snap.GeneratedAt.Format(time.RFC3339))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write(snap.Data)
				return
			}
		}

		report, err := h.fetcher.FetchAll(ctx)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}

		payload, err := services.RenderView(view, report.Rows)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}

		w.Header().Set(FailedEstablishmentsHeader, strconv.Itoa(len(report.Failures)))
		respondWithJSON(w, http.StatusOK, payload)
	}
}

// ForEstablishment handles GET /api/establishments/{programIdentifier}/inspections[...]
func (h *InspectionHandler) ForEstablishment(view services.InspectionView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := strings.TrimSpace(r.PathValue("programIdentifier"))
		if identifier == "" {
			respondWithError(w, http.StatusBadRequest, "program identifier is required")
			return
		}

		query := r.URL.Query()
		startDate := strings.TrimSpace(query.Get("startdate"))
		if startDate != "" {
			if _, err := time.Parse(startDateLayout, startDate); err != nil {
				respondWithError(w, http.StatusBadRequest, "startdate must be formatted as YYYY-MM-DD")
				return
			}
		}

		rows, failure := h.fetcher.FetchIdentity(r.Context(), identifier, query.Get("city"), startDate)

		payload, err := services.RenderView(view, rows)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}

		failed := 0
		if failure != nil {
			failed = 1
		}
		w.Header().Set(FailedEstablishmentsHeader, strconv.Itoa(failed))
		respondWithJSON(w, http.StatusOK, payload)
	}
}
