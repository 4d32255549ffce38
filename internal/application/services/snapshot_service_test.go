package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/foodinspector/internal/adapters/cache"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
)

type MockBulkFetcher struct {
	mock.Mock
}

func (m *MockBulkFetcher) FetchAll(ctx context.Context) (*services.FetchReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FetchReport), args.Error(1)
}

func snapshotRows() []entities.InspectionRow {
	return services.AssignViolationIDs([]entities.InspectionRow{
		row("PR1", "2021-01-01", "S1", "old"),
		row("PR1", "2023-06-01", "S2", "latest a"),
		row("PR1", "2023-06-01", "S2", "latest b"),
	})
}

func TestRenderView(t *testing.T) {
	rows := snapshotRows()

	raw, err := services.RenderView(services.ViewRaw, rows)
	require.NoError(t, err)
	assert.Len(t, raw, 3)

	latest, err := services.RenderView(services.ViewRawLatest, rows)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	agg, err := services.RenderView(services.ViewAggregated, rows)
	require.NoError(t, err)
	assert.Len(t, agg, 2)

	aggLatest, err := services.RenderView(services.ViewAggregatedLatest, rows)
	require.NoError(t, err)
	require.Len(t, aggLatest, 1)
	assert.Len(t, aggLatest.([]entities.AggregatedInspection)[0].Violations, 2)

	_, err = services.RenderView("bogus", rows)
	assert.Error(t, err)
}

func TestRenderView_EmptyRawIsArray(t *testing.T) {
	raw, err := services.RenderView(services.ViewRaw, nil)
	require.NoError(t, err)

	data, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestSnapshotService_RefreshStoresEveryView(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockBulkFetcher)
	store := cache.NewMemoryAdapter()
	svc := services.NewSnapshotService(fetcher, store, "@every 1h", time.Hour, nil)

	fetcher.On("FetchAll", mock.Anything).Return(&services.FetchReport{
		RunID:    "run-1",
		Rows:     snapshotRows(),
		Failures: []services.FetchFailure{{ProgramIdentifier: "PR9", City: "Kent", ErrorType: "FETCH_FAILED"}},
	}, nil).Once()

	require.NoError(t, svc.Refresh(ctx))

	for _, view := range services.AllViews {
		snap, err := svc.Get(ctx, view)
		require.NoError(t, err)
		require.NotNil(t, snap, "view %s", view)
		assert.Equal(t, "run-1", snap.RunID)
		assert.Equal(t, 1, snap.Failures)
	}

	snap, err := svc.Get(ctx, services.ViewAggregatedLatest)
	require.NoError(t, err)
	var aggregated []entities.AggregatedInspection
	require.NoError(t, json.Unmarshal(snap.Data, &aggregated))
	require.Len(t, aggregated, 1)
	assert.Equal(t, "S2", aggregated[0].InspectionSerialNum)
	fetcher.AssertExpectations(t)
}

func TestSnapshotService_GetMissIsNil(t *testing.T) {
	svc := services.NewSnapshotService(new(MockBulkFetcher), cache.NewMemoryAdapter(), "@every 1h", time.Hour, nil)

	snap, err := svc.Get(context.Background(), services.ViewRaw)

	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotService_GetPropagatesCacheErrors(t *testing.T) {
	mockCache := new(MockCacheProvider)
	svc := services.NewSnapshotService(new(MockBulkFetcher), mockCache, "@every 1h", time.Hour, nil)

	mockCache.On("Get", mock.Anything, "snapshot:inspections:raw").Return(nil, errors.New("connection reset"))

	snap, err := svc.Get(context.Background(), services.ViewRaw)

	assert.Error(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotService_RefreshFetchErrorLeavesCacheUntouched(t *testing.T) {
	fetcher := new(MockBulkFetcher)
	mockCache := new(MockCacheProvider)
	svc := services.NewSnapshotService(fetcher, mockCache, "@every 1h", time.Hour, nil)

	fetcher.On("FetchAll", mock.Anything).Return(nil, errors.New("store down"))

	err := svc.Refresh(context.Background())

	assert.Error(t, err)
	mockCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotService_RefreshReportsCacheWriteFailures(t *testing.T) {
	fetcher := new(MockBulkFetcher)
	mockCache := new(MockCacheProvider)
	svc := services.NewSnapshotService(fetcher, mockCache, "@every 1h", 30*time.Minute, nil)

	fetcher.On("FetchAll", mock.Anything).Return(&services.FetchReport{RunID: "r", Rows: snapshotRows()}, nil)
	mockCache.On("Set", mock.Anything, "snapshot:inspections:raw", mock.Anything, 1800).Return(errors.New("OOM"))
	mockCache.On("Set", mock.Anything, mock.Anything, mock.Anything, 1800).Return(nil)

	err := svc.Refresh(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw")
	mockCache.AssertNumberOfCalls(t, "Set", 4)
}

func TestSnapshotService_StartRejectsBadSchedule(t *testing.T) {
	svc := services.NewSnapshotService(new(MockBulkFetcher), cache.NewMemoryAdapter(), "not a schedule", time.Hour, nil)

	assert.Error(t, svc.Start())
}

func TestSnapshotService_StartStop(t *testing.T) {
	svc := services.NewSnapshotService(new(MockBulkFetcher), cache.NewMemoryAdapter(), "@every 1h", time.Hour, nil)

	require.NoError(t, svc.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
	assert.NoError(t, ctx.Err())
}

var _ providers.CacheProvider = (*cache.MemoryAdapter)(nil)
