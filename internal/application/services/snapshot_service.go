package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

// InspectionView names one of the four bulk presentations of inspection rows
type InspectionView string

const (
	ViewRaw              InspectionView = "raw"
	ViewRawLatest        InspectionView = "raw-latest"
	ViewAggregated       InspectionView = "aggregated"
	ViewAggregatedLatest InspectionView = "aggregated-latest"
)

// AllViews lists every bulk view
var AllViews = []InspectionView{ViewRaw, ViewRawLatest, ViewAggregated, ViewAggregatedLatest}

// RenderView shapes rows into the given view
func RenderView(view InspectionView, rows []entities.InspectionRow) (interface{}, error) {
	switch view {
	case ViewRaw:
		if rows == nil {
			return []entities.InspectionRow{}, nil
		}
		return rows, nil
	case ViewRawLatest:
		return LatestRows(rows), nil
	case ViewAggregated:
		return AggregateAll(rows), nil
	case ViewAggregatedLatest:
		return AggregateLatest(rows), nil
	default:
		return nil, fmt.Errorf("unknown inspection view %q", view)
	}
}

// Snapshot is a cached bulk view
type Snapshot struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Failures    int             `json:"failures"`
	Data        json.RawMessage `json:"data"`
}

// BulkFetcher fetches all known establishments
type BulkFetcher interface {
	FetchAll(ctx context.Context) (*FetchReport, error)
}

// SnapshotService periodically refreshes cached bulk views
type SnapshotService struct {
	fetcher  BulkFetcher
	cache    providers.CacheProvider
	ttl      time.Duration
	schedule string
	timeout  time.Duration
	metrics  *observability.Metrics
	cron     *cron.Cron
	running  atomic.Bool
}

// NewSnapshotService creates a snapshot service
func NewSnapshotService(fetcher BulkFetcher, cache providers.CacheProvider, schedule string, ttl time.Duration, metrics *observability.Metrics) *SnapshotService {
	return &SnapshotService{
		fetcher:  fetcher,
		cache:    cache,
		ttl:      ttl,
		schedule: schedule,
		timeout:  10 * time.Minute,
		metrics:  metrics,
		cron:     cron.New(),
	}
}

func snapshotKey(view InspectionView) string {
	return "snapshot:inspections:" + string(view)
}

// Refresh fetches every establishment and stores all bulk views.
// Overlapping refreshes are skipped.
func (s *SnapshotService) Refresh(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		observability.LoggerFromContext(ctx).Info().Msg("Snapshot refresh already running, skipping")
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	report, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		return err
	}

	generatedAt := time.Now().UTC()
	var errs []error
	for _, view := range AllViews {
		payload, err := RenderView(view, report.Rows)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		data, err := json.Marshal(payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s view: %w", view, err))
			continue
		}
		encoded, err := json.Marshal(Snapshot{
			RunID:       report.RunID,
			GeneratedAt: generatedAt,
			Failures:    len(report.Failures),
			Data:        data,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s snapshot: %w", view, err))
			continue
		}
		if err := s.cache.Set(ctx, snapshotKey(view), encoded, int(s.ttl.Seconds())); err != nil {
			errs = append(errs, fmt.Errorf("store %s snapshot: %w", view, err))
		}
	}

	observability.RecordSnapshotRefresh(ctx, s.metrics, len(report.Failures), time.Since(start))
	observability.LoggerFromContext(ctx).Info().
		Str("run_id", report.RunID).
		Int("rows", len(report.Rows)).
		Int("failures", len(report.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Inspection snapshots refreshed")

	return errors.Join(errs...)
}

// Get returns the cached snapshot for view, or nil when none is cached
func (s *SnapshotService) Get(ctx context.Context, view InspectionView) (*Snapshot, error) {
	data, err := s.cache.Get(ctx, snapshotKey(view))
	if errors.Is(err, providers.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", view, err)
	}
	return &snap, nil
}

// Start schedules periodic refreshes
func (s *SnapshotService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			observability.GetLogger().Warn().Err(err).Msg("Scheduled snapshot refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	observability.GetLogger().Info().Str("schedule", s.schedule).Msg("Snapshot scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *SnapshotService) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}
