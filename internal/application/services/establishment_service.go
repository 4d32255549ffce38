package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
)

// EstablishmentService populates the establishment store from the descriptor file
type EstablishmentService struct {
	source   providers.DescriptorSource
	store    repositories.EstablishmentRepository
	eventBus providers.EventBus

	initOnce   sync.Once
	initErr    error
	ready      atomic.Bool
	refreshing atomic.Bool
	readyOnce  sync.Once
	onReady    []func()
}

// NewEstablishmentService creates a new establishment service
func NewEstablishmentService(source providers.DescriptorSource, store repositories.EstablishmentRepository) *EstablishmentService {
	return &EstablishmentService{
		source: source,
		store:  store,
	}
}

// SetEventBus sets the bus that refreshes are announced on
func (s *EstablishmentService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// OnReady registers fn to run once, the first time the store is populated by
// either Initialize or Refresh. Register hooks before calling Initialize.
func (s *EstablishmentService) OnReady(fn func()) {
	s.onReady = append(s.onReady, fn)
}

func (s *EstablishmentService) markReady() {
	s.ready.Store(true)
	s.readyOnce.Do(func() {
		for _, fn := range s.onReady {
			fn()
		}
	})
}

// Initialize loads the descriptor file into the store once per process.
// Later calls return the first call's result.
func (s *EstablishmentService) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		_, s.initErr = s.load(ctx)
		if s.initErr == nil {
			s.markReady()
		}
	})
	return s.initErr
}

// Ready reports whether the store has been populated
func (s *EstablishmentService) Ready() bool {
	return s.ready.Load()
}

// Refresh re-applies the descriptor file. Concurrent refreshes are rejected.
func (s *EstablishmentService) Refresh(ctx context.Context) (int, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return 0, apperrors.NewConflictError("establishment refresh already in progress")
	}
	defer s.refreshing.Store(false)

	written, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	s.markReady()
	s.publishRefreshed(ctx, written)
	return written, nil
}

func (s *EstablishmentService) publishRefreshed(ctx context.Context, written int) {
	if s.eventBus == nil {
		return
	}

	event := &entities.EstablishmentEvent{
		ID:        uuid.NewString(),
		Type:      entities.EstablishmentsRefreshed,
		Written:   written,
		Timestamp: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelEstablishments, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to publish establishment refresh event")
	}
}

// List returns every stored establishment
func (s *EstablishmentService) List(ctx context.Context) ([]entities.Establishment, error) {
	return s.store.ListAll(ctx)
}

func (s *EstablishmentService) load(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)

	establishments, err := s.source.Load(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load establishment descriptors")
		return 0, err
	}

	written, err := s.store.Upsert(ctx, establishments)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write establishments")
		return 0, err
	}

	logger.Info().
		Int("descriptors", len(establishments)).
		Int("written", written).
		Msg("Establishment store populated")
	return written, nil
}
