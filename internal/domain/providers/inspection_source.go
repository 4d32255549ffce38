package providers

import (
	"context"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

// InspectionSource fetches raw inspection rows for a fully built query URL
type InspectionSource interface {
	GetInspections(ctx context.Context, url string) ([]entities.InspectionRow, error)
}

// DescriptorSource loads the static establishment descriptor set
type DescriptorSource interface {
	Load(ctx context.Context) ([]entities.Establishment, error)
}
