package api

import (
	"context"

	"canvaslab/internal/models"
)

/*
CONSUMER-DRIVEN INTERFACES

This package is the consumer of storage and the persister, so the
interfaces it needs live here, not next to the implementations. Handlers
only declare the methods they actually call; implementations can change
freely and handler tests can substitute fakes without import cycles.
*/

// LabRepository is what handlers need from lab storage.
type LabRepository interface {
	Create(ctx context.Context, in *models.LabCreate) (*models.Lab, error)
	Get(ctx context.Context, id string) (*models.Lab, error)
	List(ctx context.Context, limit, offset int) ([]*models.Lab, error)
	Delete(ctx context.Context, id string) error
}

// CommitLog is what handlers need from commit persistence: queue depth
// for health reporting and history replay for the REST surface.
type CommitLog interface {
	Replay(ctx context.Context, labID string) ([]*models.ShapeCommit, error)
	QueueLength() int
}

// ShapeHistory is what handlers need for per-shape commit queries; the
// GORM commit repository implements it via the shape-id index column.
type ShapeHistory interface {
	ListByShape(ctx context.Context, labID, shapeID string) ([]*models.CommitRecord, error)
}
