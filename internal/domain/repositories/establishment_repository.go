package repositories

import (
	"context"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

// EstablishmentRepository defines the durable establishment identity store
type EstablishmentRepository interface {
	// Upsert writes identities keyed by (program identifier, city), overwriting
	// existing entries. Identities that cannot be written are logged and skipped;
	// an error is returned only when the store cannot be reached.
	Upsert(ctx context.Context, establishments []entities.Establishment) (int, error)

	// ListAll returns every stored identity ordered by key, or an empty slice
	ListAll(ctx context.Context) ([]entities.Establishment, error)
}
