package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/foodinspector/internal/api/handlers"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
)

type MockInspectionFetcher struct {
	mock.Mock
}

func (m *MockInspectionFetcher) FetchAll(ctx context.Context) (*services.FetchReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FetchReport), args.Error(1)
}

func (m *MockInspectionFetcher) FetchIdentity(ctx context.Context, identifier, city, startDate string) ([]entities.InspectionRow, *services.FetchFailure) {
	args := m.Called(ctx, identifier, city, startDate)
	var failure *services.FetchFailure
	if f := args.Get(1); f != nil {
		failure = f.(*services.FetchFailure)
	}
	return args.Get(0).([]entities.InspectionRow), failure
}

type stubSnapshots struct {
	snap *services.Snapshot
	err  error
}

func (s *stubSnapshots) Get(ctx context.Context, view services.InspectionView) (*services.Snapshot, error) {
	return s.snap, s.err
}

func inspectionRows() []entities.InspectionRow {
	return []entities.InspectionRow{
		{ProgramIdentifier: "CAFE", City: "SEATTLE", InspectionSerialNum: "S1", InspectionDate: entities.MustParseDate("2022-01-01"), ViolationDescription: "a", ID: 1},
		{ProgramIdentifier: "CAFE", City: "SEATTLE", InspectionSerialNum: "S2", InspectionDate: entities.MustParseDate("2023-01-01"), ViolationDescription: "b", ID: 1},
		{ProgramIdentifier: "CAFE", City: "SEATTLE", InspectionSerialNum: "S2", InspectionDate: entities.MustParseDate("2023-01-01"), ViolationDescription: "c", ID: 2},
	}
}

func TestInspectionHandler_BulkLiveFetch(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, nil)

	fetcher.On("FetchAll", mock.Anything).Return(&services.FetchReport{
		Rows:     inspectionRows(),
		Failures: []services.FetchFailure{{ProgramIdentifier: "X"}, {ProgramIdentifier: "Y"}},
	}, nil)

	req := httptest.NewRequest("GET", "/api/inspections/aggregated", nil)
	w := httptest.NewRecorder()
	handler.Bulk(services.ViewAggregated)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get(handlers.FailedEstablishmentsHeader))

	var body []entities.AggregatedInspection
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Len(t, body[1].Violations, 2)
}

func TestInspectionHandler_BulkServesSnapshot(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	snaps := &stubSnapshots{snap: &services.Snapshot{
		RunID:       "run-7",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Failures:    3,
		Data:        json.RawMessage(`[{"program_identifier":"CAFE"}]`),
	}}
	handler := handlers.NewInspectionHandler(fetcher, snaps)

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	w := httptest.NewRecorder()
	handler.Bulk(services.ViewRaw)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get(handlers.FailedEstablishmentsHeader))
	assert.Equal(t, "run-7", w.Header().Get("X-Snapshot-Run-ID"))
	assert.JSONEq(t, `[{"program_identifier":"CAFE"}]`, w.Body.String())
	fetcher.AssertNotCalled(t, "FetchAll", mock.Anything)
}

func TestInspectionHandler_BulkSnapshotErrorFallsBackToLive(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, &stubSnapshots{err: errors.New("redis down")})

	fetcher.On("FetchAll", mock.Anything).Return(&services.FetchReport{Rows: []entities.InspectionRow{}}, nil)

	req := httptest.NewRequest("GET", "/api/inspections/latest", nil)
	w := httptest.NewRecorder()
	handler.Bulk(services.ViewRawLatest)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get(handlers.FailedEstablishmentsHeader))
	assert.JSONEq(t, `[]`, w.Body.String())
	fetcher.AssertExpectations(t)
}

func TestInspectionHandler_BulkStoreUnavailable(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, nil)

	fetcher.On("FetchAll", mock.Anything).Return(nil, apperrors.NewStoreUnavailableError("store unreachable", errors.New("dial tcp")))

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	w := httptest.NewRecorder()
	handler.Bulk(services.ViewRaw)(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInspectionHandler_ForEstablishment(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, nil)

	fetcher.On("FetchIdentity", mock.Anything, "CAFE", "Seattle", "2021-05-01").Return(inspectionRows(), nil)

	req := httptest.NewRequest("GET", "/api/establishments/CAFE/inspections/aggregated/latest?city=Seattle&startdate=2021-05-01", nil)
	req.SetPathValue("programIdentifier", "CAFE")
	w := httptest.NewRecorder()
	handler.ForEstablishment(services.ViewAggregatedLatest)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get(handlers.FailedEstablishmentsHeader))

	var body []entities.AggregatedInspection
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "S2", body[0].InspectionSerialNum)
	fetcher.AssertExpectations(t)
}

func TestInspectionHandler_ForEstablishmentFailureIsEmptyList(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, nil)

	fetcher.On("FetchIdentity", mock.Anything, "CAFE", "", "").
		Return([]entities.InspectionRow{}, &services.FetchFailure{ProgramIdentifier: "CAFE", ErrorType: apperrors.ErrorTypeFetchFailed})

	req := httptest.NewRequest("GET", "/api/establishments/CAFE/inspections", nil)
	req.SetPathValue("programIdentifier", "CAFE")
	w := httptest.NewRecorder()
	handler.ForEstablishment(services.ViewRaw)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get(handlers.FailedEstablishmentsHeader))
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestInspectionHandler_ForEstablishmentRejectsBadStartDate(t *testing.T) {
	fetcher := new(MockInspectionFetcher)
	handler := handlers.NewInspectionHandler(fetcher, nil)

	for _, bad := range []string{"2021/05/01", "05-01-2021", "2021-13-01", "yesterday"} {
		req := httptest.NewRequest("GET", "/api/establishments/CAFE/inspections?startdate="+bad, nil)
		req.SetPathValue("programIdentifier", "CAFE")
		w := httptest.NewRecorder()
		handler.ForEstablishment(services.ViewRaw)(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	fetcher.AssertNotCalled(t, "FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
