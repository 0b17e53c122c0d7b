package store

import (
	"context"

	"github.com/arkiven4/autowatch/internal/models"
)

// Store defines the persistence interface for autowatch.
type Store interface {
	// Failure records
	CreateFailure(ctx context.Context, f *models.FailureRecord) error
	GetFailure(ctx context.Context, id string) (*models.FailureRecord, error)
	ListFailures(ctx context.Context, project string, limit int) ([]*models.FailureRecord, error)

	// Status snapshots
	UpsertStatus(ctx context.Context, s *models.StatusSnapshot) error
	ListStatuses(ctx context.Context) ([]*models.StatusSnapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
