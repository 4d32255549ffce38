package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

// Mocks

type MockInspectionSource struct {
	mock.Mock
}

func (m *MockInspectionSource) GetInspections(ctx context.Context, url string) ([]entities.InspectionRow, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.InspectionRow), args.Error(1)
}

type MockEstablishmentRepository struct {
	mock.Mock
}

func (m *MockEstablishmentRepository) Upsert(ctx context.Context, establishments []entities.Establishment) (int, error) {
	args := m.Called(ctx, establishments)
	return args.Int(0), args.Error(1)
}

func (m *MockEstablishmentRepository) ListAll(ctx context.Context) ([]entities.Establishment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Establishment), args.Error(1)
}

type MockDescriptorSource struct {
	mock.Mock
}

func (m *MockDescriptorSource) Load(ctx context.Context) ([]entities.Establishment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Establishment), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// funcSource adapts a function to providers.InspectionSource.
type funcSource func(ctx context.Context, url string) ([]entities.InspectionRow, error)

func (f funcSource) GetInspections(ctx context.Context, url string) ([]entities.InspectionRow, error) {
	return f(ctx, url)
}
