package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

// MemoryEstablishmentStore is a process-local store, used when no durable backend is available
type MemoryEstablishmentStore struct {
	mu      sync.RWMutex
	entries map[string]entities.Establishment
	metrics *observability.Metrics
}

// NewMemoryEstablishmentStore creates an empty in-memory store
func NewMemoryEstablishmentStore(metrics *observability.Metrics) repositories.EstablishmentRepository {
	return &MemoryEstablishmentStore{
		entries: make(map[string]entities.Establishment),
		metrics: metrics,
	}
}

// Upsert stores identities by key. Unchanged entries keep their UpdatedAt.
func (s *MemoryEstablishmentStore) Upsert(ctx context.Context, establishments []entities.Establishment) (int, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "memory", "upsert", time.Since(start)) }()

	logger := observability.LoggerFromContext(ctx)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

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
		if existing, ok := s.entries[key]; ok && existing.SameContent(e) {
			written++
			continue
		}
		e.UpdatedAt = now
		s.entries[key] = e
		written++
	}
	return written, nil
}

// ListAll returns every stored identity ordered by key
func (s *MemoryEstablishmentStore) ListAll(ctx context.Context) ([]entities.Establishment, error) {
	start := time.Now()
	defer func() { observability.RecordStoreMetric(ctx, s.metrics, "memory", "list", time.Since(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	establishments := make([]entities.Establishment, 0, len(keys))
	for _, k := range keys {
		establishments = append(establishments, s.entries[k])
	}
	return establishments, nil
}
