package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	"github.com/zatekoja/foodinspector/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PostgresEstablishmentStore keeps identities in a single keyed table
type PostgresEstablishmentStore struct {
	client  *postgres.Client
	db      *goqu.Database
	table   string
	metrics *observability.Metrics

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewPostgresEstablishmentStore creates a PostgreSQL-backed establishment store
func NewPostgresEstablishmentStore(client *postgres.Client, table string, metrics *observability.Metrics) repositories.EstablishmentRepository {
	if table == "" {
		table = "establishments"
	}
	return &PostgresEstablishmentStore{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		table:   table,
		metrics: metrics,
	}
}

// EnsureSchema creates the establishments table when it does not exist yet
func (s *PostgresEstablishmentStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		identity_key TEXT PRIMARY KEY,
		program_identifier TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pq.QuoteIdentifier(s.table))

	if _, err := s.client.DB().ExecContext(ctx, ddl); err != nil {
		return apperrors.NewStoreUnavailableError("failed to create establishments table", err)
	}
	s.schemaReady = true
	return nil
}

// Upsert inserts or overwrites each identity by key
func (s *PostgresEstablishmentStore) Upsert(ctx context.Context, establishments []entities.Establishment) (int, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "postgres", "upsert", time.Since(start)) }()

	if err := s.client.Ping(ctx); err != nil {
		return 0, apperrors.NewStoreUnavailableError("postgres establishment store unreachable", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	// Rows whose fields already match keep their updated_at
	changed := goqu.L(fmt.Sprintf(
		"(%[1]s.program_identifier, %[1]s.name, %[1]s.city) IS DISTINCT FROM (EXCLUDED.program_identifier, EXCLUDED.name, EXCLUDED.city)",
		pq.QuoteIdentifier(s.table),
	))

	logger := observability.LoggerFromContext(ctx)
	now := time.Now().UTC()
	written := 0
	for _, e := range establishments {
		key := e.Key()
		if key == "" {
			logger.Warn().
				Str("program_identifier", e.ProgramIdentifier).
				Str("city", e.City).
				Msg("Skipping establishment without identifier or city")
			continue
		}

		record := goqu.Record{
			"identity_key":       key,
			"program_identifier": e.ProgramIdentifier,
			"name":               e.Name,
			"city":               e.City,
			"updated_at":         now,
		}

		query, args, err := s.db.Insert(s.table).
			Rows(record).
			OnConflict(goqu.DoUpdate("identity_key", goqu.Record{
				"program_identifier": goqu.L("EXCLUDED.program_identifier"),
				"name":               goqu.L("EXCLUDED.name"),
				"city":               goqu.L("EXCLUDED.city"),
				"updated_at":         goqu.L("EXCLUDED.updated_at"),
			}).Where(changed)).
			ToSQL()
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to build establishment upsert")
			continue
		}

		if _, err := s.client.DB().ExecContext(ctx, query, args...); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to write establishment")
			continue
		}
		written++
	}

	return written, nil
}

// ListAll returns every stored identity ordered by key
func (s *PostgresEstablishmentStore) ListAll(ctx context.Context) ([]entities.Establishment, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "postgres", "list", time.Since(start)) }()

	query, args, err := s.db.Select("program_identifier", "name", "city", "updated_at").
		From(s.table).
		Order(goqu.I("identity_key").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == undefinedTable {
			return []entities.Establishment{}, nil
		}
		return nil, apperrors.NewStoreUnavailableError("postgres establishment store unreachable", err)
	}
	defer rows.Close()

	establishments := []entities.Establishment{}
	for rows.Next() {
		var e entities.Establishment
		if err := rows.Scan(&e.ProgramIdentifier, &e.Name, &e.City, &e.UpdatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan establishment", err)
		}
		establishments = append(establishments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to read establishments", err)
	}

	return establishments, nil
}
