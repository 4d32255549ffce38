package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/foodinspector/internal/api/handlers"
	"github.com/zatekoja/foodinspector/internal/api/routes"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

type stubCatalog struct{ ready bool }

func (s *stubCatalog) List(ctx context.Context) ([]entities.Establishment, error) {
	return []entities.Establishment{}, nil
}

func (s *stubCatalog) Refresh(ctx context.Context) (int, error) { return 0, nil }

func (s *stubCatalog) Ready() bool { return s.ready }

type stubFetcher struct {
	identities []string
	bulkCalls  int
}

func (s *stubFetcher) FetchAll(ctx context.Context) (*services.FetchReport, error) {
	s.bulkCalls++
	return &services.FetchReport{Rows: []entities.InspectionRow{}}, nil
}

func (s *stubFetcher) FetchIdentity(ctx context.Context, identifier, city, startDate string) ([]entities.InspectionRow, *services.FetchFailure) {
	s.identities = append(s.identities, identifier)
	return []entities.InspectionRow{}, nil
}

func newTestRouter(ready bool) (http.Handler, *stubFetcher) {
	fetcher := &stubFetcher{}
	router := routes.NewRouter(
		handlers.NewEstablishmentHandler(&stubCatalog{ready: ready}),
		handlers.NewInspectionHandler(fetcher, nil),
		nil,
		nil,
		nil,
	)
	return router.SetupRoutes(), fetcher
}

func TestRouter_Routes(t *testing.T) {
	handler, fetcher := newTestRouter(true)

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/ready", http.StatusOK},
		{"GET", "/api/establishments", http.StatusOK},
		{"POST", "/api/admin/establishments/refresh", http.StatusOK},
		{"GET", "/api/inspections", http.StatusOK},
		{"GET", "/api/inspections/latest", http.StatusOK},
		{"GET", "/api/inspections/aggregated", http.StatusOK},
		{"GET", "/api/inspections/aggregated/latest", http.StatusOK},
		{"GET", "/api/establishments/CAFE%20ALLEGRO/inspections?city=Seattle", http.StatusOK},
		{"GET", "/api/establishments/CAFE/inspections/latest", http.StatusOK},
		{"GET", "/api/establishments/CAFE/inspections/aggregated", http.StatusOK},
		{"GET", "/api/establishments/CAFE/inspections/aggregated/latest", http.StatusOK},
		{"GET", "/api/establishments/CAFE/inspections?startdate=01-01-2020", http.StatusBadRequest},
		{"GET", "/api/admin/establishments/refresh", http.StatusMethodNotAllowed},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}

	assert.Equal(t, 4, fetcher.bulkCalls)
	assert.Contains(t, fetcher.identities, "CAFE ALLEGRO")
}

func TestRouter_NotReady(t *testing.T) {
	handler, _ := newTestRouter(false)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
