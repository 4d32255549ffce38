package store

import (
	"fmt"

	"github.com/zatekoja/foodinspector/internal/domain/repositories"
	"github.com/zatekoja/foodinspector/internal/infrastructure/clients/postgres"
	redisclient "github.com/zatekoja/foodinspector/internal/infrastructure/clients/redis"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
	"github.com/zatekoja/foodinspector/pkg/config"
)

// Backend is an opened establishment store plus whatever must be closed with it
type Backend struct {
	Name  string
	Store repositories.EstablishmentRepository
	close func() error
}

// Close releases the backend's client, if any
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects the establishment store selected by cfg.Establishments.Store
func Open(cfg *config.Config, metrics *observability.Metrics) (*Backend, error) {
	switch cfg.Establishments.Store {
	case "redis":
		client, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis establishment store: %w", err)
		}
		return &Backend{
			Name:  "redis",
			Store: NewRedisEstablishmentStore(client, cfg.Establishments.RedisHashKey, metrics),
			close: client.Close,
		}, nil
	case "postgres":
		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres establishment store: %w", err)
		}
		return &Backend{
			Name:  "postgres",
			Store: NewPostgresEstablishmentStore(client, cfg.Establishments.TableName, metrics),
			close: client.Close,
		}, nil
	case "memory":
		return NewMemoryBackend(metrics), nil
	default:
		return nil, fmt.Errorf("unsupported establishment store %q", cfg.Establishments.Store)
	}
}

// NewMemoryBackend returns a process-local store
func NewMemoryBackend(metrics *observability.Metrics) *Backend {
	return &Backend{
		Name:  "memory",
		Store: NewMemoryEstablishmentStore(metrics),
	}
}
