package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
	"github.com/zatekoja/foodinspector/pkg/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// FetchFailure records one establishment whose inspections could not be fetched
type FetchFailure struct {
	ProgramIdentifier string              `json:"program_identifier"`
	City              string              `json:"city"`
	ErrorType         apperrors.ErrorType `json:"error_type"`
	Message           string              `json:"message"`
}

// FetchReport is the outcome of a bulk fetch. Partial success is normal.
type FetchReport struct {
	RunID     string                   `json:"run_id"`
	Rows      []entities.InspectionRow `json:"rows"`
	Attempted int                      `json:"attempted"`
	Skipped   int                      `json:"skipped"`
	Failures  []FetchFailure           `json:"failures"`
}

// RecordFetcherConfig tunes remote fetching
type RecordFetcherConfig struct {
	StartDate      string
	Timeout        time.Duration
	MaxConcurrency int
	RetryAttempts  int
	// IsRetryable classifies remote errors; nil retries everything but malformed responses.
	IsRetryable func(error) bool
}

// RecordFetcher fetches inspection rows per establishment with failure isolation
type RecordFetcher struct {
	builder *QueryBuilder
	source  providers.InspectionSource
	store   repositories.EstablishmentRepository
	cfg     RecordFetcherConfig
	metrics *observability.Metrics
}

// NewRecordFetcher creates a record fetcher
func NewRecordFetcher(
	builder *QueryBuilder,
	source providers.InspectionSource,
	store repositories.EstablishmentRepository,
	cfg RecordFetcherConfig,
	metrics *observability.Metrics,
) *RecordFetcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = func(err error) bool {
			return !apperrors.IsType(err, apperrors.ErrorTypeMalformedResponse)
		}
	}
	return &RecordFetcher{
		builder: builder,
		source:  source,
		store:   store,
		cfg:     cfg,
		metrics: metrics,
	}
}

// FetchForIdentity fetches one establishment's rows. Failures are logged and
// yield an empty slice; they never reach the caller.
func (f *RecordFetcher) FetchForIdentity(ctx context.Context, identifier, city, startDate string) []entities.InspectionRow {
	rows, _ := f.FetchIdentity(ctx, identifier, city, startDate)
	return rows
}

// FetchIdentity is FetchForIdentity that also reports the isolated failure, if any.
func (f *RecordFetcher) FetchIdentity(ctx context.Context, identifier, city, startDate string) ([]entities.InspectionRow, *FetchFailure) {
	rows, failure := f.fetchOne(ctx, "", identifier, city, startDate)
	return AssignViolationIDs(rows), failure
}

// FetchAll fetches every stored establishment. A store failure is returned;
// per-establishment failures are collected in the report.
func (f *RecordFetcher) FetchAll(ctx context.Context) (*FetchReport, error) {
	runID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "RecordFetcher.FetchAll")
	defer span.End()
	span.SetAttributes(attribute.String("fetch.run_id", runID))

	establishments, err := f.store.ListAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		span.SetStatus(codes.Error, "establishment store unavailable")
		return nil, err
	}

	targets := make([]entities.Establishment, 0, len(establishments))
	for _, e := range establishments {
		if !e.Queryable() {
			continue
		}
		targets = append(targets, e)
	}

	results := make([][]entities.InspectionRow, len(targets))
	failures := make([]*FetchFailure, len(targets))

	var g errgroup.Group
	g.SetLimit(f.cfg.MaxConcurrency)
	for i := range targets {
		e := targets[i]
		g.Go(func() error {
			results[i], failures[i] = f.fetchOne(ctx, runID, e.ProgramIdentifier, e.City, f.cfg.StartDate)
			return nil // one establishment never fails the batch
		})
	}
	_ = g.Wait()

	report := &FetchReport{
		RunID:     runID,
		Attempted: len(targets),
		Skipped:   len(establishments) - len(targets),
		Failures:  []FetchFailure{},
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	combined := make([]entities.InspectionRow, 0, total)
	for i, rows := range results {
		combined = append(combined, rows...)
		if failures[i] != nil {
			report.Failures = append(report.Failures, *failures[i])
		}
	}
	report.Rows = AssignViolationIDs(combined)

	span.SetAttributes(
		attribute.Int("fetch.attempted", report.Attempted),
		attribute.Int("fetch.failed", len(report.Failures)),
		attribute.Int("fetch.rows", len(report.Rows)),
	)
	observability.LoggerFromContext(ctx).Info().
		Str("run_id", runID).
		Int("attempted", report.Attempted).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Int("rows", len(report.Rows)).
		Msg("Bulk inspection fetch completed")

	return report, nil
}

// fetchOne issues the request for one establishment with retry and a per-attempt
// timeout. It always returns a non-nil slice.
func (f *RecordFetcher) fetchOne(ctx context.Context, runID, identifier, city, startDate string) ([]entities.InspectionRow, *FetchFailure) {
	ctx, span := observability.StartSpan(ctx, "RecordFetcher.fetchOne")
	defer span.End()
	span.SetAttributes(
		attribute.String("establishment.program_identifier", identifier),
		attribute.String("establishment.city", city),
	)

	query := f.builder.Build(identifier, city, startDate)
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	var rows []entities.InspectionRow
	err := retry.DoWithLog(ctx, retry.RequestConfig(f.cfg.RetryAttempts), "inspection-api", func() error {
		attemptCtx := ctx
		if f.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
			defer cancel()
		}

		fetched, err := f.source.GetInspections(attemptCtx, query.URL)
		if err != nil {
			if !f.cfg.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		rows = fetched
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Debug().Err(err).
			Str("program_identifier", identifier).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("Retrying inspection fetch")
	})

	if err != nil {
		errType := apperrors.TypeOf(err)
		if errType != apperrors.ErrorTypeMalformedResponse {
			errType = apperrors.ErrorTypeFetchFailed
		}

		observability.RecordError(span, err)
		span.SetStatus(codes.Error, string(errType))
		observability.RecordFetch(ctx, f.metrics, string(errType), time.Since(start))

		event := logger.Warn().Err(err).
			Str("program_identifier", identifier).
			Str("city", city).
			Str("error_type", string(errType))
		if runID != "" {
			event = event.Str("run_id", runID)
		}
		event.Msg("Establishment inspection fetch failed")

		return []entities.InspectionRow{}, &FetchFailure{
			ProgramIdentifier: identifier,
			City:              city,
			ErrorType:         errType,
			Message:           err.Error(),
		}
	}

	observability.RecordFetch(ctx, f.metrics, "", time.Since(start))
	span.SetAttributes(attribute.Int("fetch.rows", len(rows)))
	if rows == nil {
		rows = []entities.InspectionRow{}
	}
	return rows, nil
}
