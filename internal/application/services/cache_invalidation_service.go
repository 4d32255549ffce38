package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

// SnapshotRefresher rebuilds the cached bulk views
type SnapshotRefresher interface {
	Refresh(ctx context.Context) error
}

// CacheInvalidationService rebuilds snapshots when any replica refreshes establishments
type CacheInvalidationService struct {
	snapshots      SnapshotRefresher
	eventBus       providers.EventBus
	refreshTimeout time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	started        atomic.Bool
	done           chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(snapshots SnapshotRefresher, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		snapshots:      snapshots,
		eventBus:       eventBus,
		refreshTimeout: 10 * time.Minute,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Start begins listening for establishment events
func (s *CacheInvalidationService) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("cache invalidation service already started")
	}

	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelEstablishments)
	if err != nil {
		close(s.done)
		return fmt.Errorf("failed to subscribe to establishment updates: %w", err)
	}

	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for an in-flight rebuild
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
	observability.GetLogger().Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.EstablishmentEvent) {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || event.Type != entities.EstablishmentsRefreshed {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.EstablishmentEvent) {
	ctx, cancel := context.WithTimeout(s.ctx, s.refreshTimeout)
	defer cancel()

	logger := observability.GetLogger().With().
		Str("event_id", event.ID).
		Int("written", event.Written).
		Logger()

	logger.Info().Msg("Establishments changed, rebuilding inspection snapshots")
	if err := s.snapshots.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Snapshot rebuild failed")
	}
}
