package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
)

var descriptorSet = []entities.Establishment{
	{ProgramIdentifier: "ALPHA", Name: "Alpha", City: "SEATTLE"},
	{ProgramIdentifier: "BRAVO", Name: "Bravo", City: "RENTON"},
}

func TestEstablishmentService_InitializeRunsOnce(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)

	source.On("Load", mock.Anything).Return(descriptorSet, nil).Once()
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil).Once()

	assert.False(t, service.Ready())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, service.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.True(t, service.Ready())
	source.AssertNumberOfCalls(t, "Load", 1)
	repo.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestEstablishmentService_InitializeFailureIsSticky(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)
	storeErr := apperrors.NewStoreUnavailableError("redis down", errors.New("dial tcp"))

	source.On("Load", mock.Anything).Return(descriptorSet, nil)
	repo.On("Upsert", mock.Anything, descriptorSet).Return(0, storeErr).Once()
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil)

	assert.Equal(t, storeErr, service.Initialize(context.Background()))
	assert.Equal(t, storeErr, service.Initialize(context.Background()))
	assert.False(t, service.Ready())

	written, err := service.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.True(t, service.Ready())
}

func TestEstablishmentService_OnReadyRunsOnceAfterInitialize(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)
	calls := 0
	service.OnReady(func() { calls++ })

	source.On("Load", mock.Anything).Return(descriptorSet, nil)
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil)

	require.NoError(t, service.Initialize(context.Background()))
	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestEstablishmentService_OnReadyRunsOnRefreshAfterFailedInitialize(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)
	calls := 0
	service.OnReady(func() { calls++ })
	storeErr := apperrors.NewStoreUnavailableError("redis down", errors.New("dial tcp"))

	source.On("Load", mock.Anything).Return(descriptorSet, nil)
	repo.On("Upsert", mock.Anything, descriptorSet).Return(0, storeErr).Once()
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil)

	require.Error(t, service.Initialize(context.Background()))
	assert.Equal(t, 0, calls)

	for i := 0; i < 2; i++ {
		_, err := service.Refresh(context.Background())
		require.NoError(t, err)
	}

	assert.True(t, service.Ready())
	assert.Equal(t, 1, calls)
}

func TestEstablishmentService_ConcurrentRefreshConflicts(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)

	started := make(chan struct{})
	release := make(chan struct{})
	source.On("Load", mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return(descriptorSet, nil).Once()
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := service.Refresh(context.Background())
		done <- err
	}()
	<-started

	_, err := service.Refresh(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	close(release)
	require.NoError(t, <-done)
}

func TestEstablishmentService_DescriptorErrorPropagates(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	service := services.NewEstablishmentService(source, repo)

	source.On("Load", mock.Anything).Return(nil, apperrors.NewValidationError("bad file"))

	_, err := service.Refresh(context.Background())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestEstablishmentService_RefreshPublishesEvent(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	bus := NewMockEventBus()
	service := services.NewEstablishmentService(source, repo)
	service.SetEventBus(bus)

	source.On("Load", mock.Anything).Return(descriptorSet, nil)
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil)

	require.NoError(t, service.Initialize(context.Background()))
	assert.Empty(t, bus.Published(), "initialization is local and not announced")

	_, err := service.Refresh(context.Background())
	require.NoError(t, err)

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, entities.EstablishmentsRefreshed, published[0].Type)
	assert.Equal(t, 2, published[0].Written)
	assert.NotEmpty(t, published[0].ID)
}

func TestEstablishmentService_PublishFailureDoesNotFailRefresh(t *testing.T) {
	source := new(MockDescriptorSource)
	repo := new(MockEstablishmentRepository)
	bus := NewMockEventBus()
	bus.publishErr = errors.New("redis down")
	service := services.NewEstablishmentService(source, repo)
	service.SetEventBus(bus)

	source.On("Load", mock.Anything).Return(descriptorSet, nil)
	repo.On("Upsert", mock.Anything, descriptorSet).Return(2, nil)

	written, err := service.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, written)
}
