package repository

import (
	"context"
	"errors"
	"fmt"

	"canvaslab/internal/models"

	"gorm.io/gorm"
)

// ErrLabNotFound is returned when a lab id does not exist.
var ErrLabNotFound = errors.New("lab not found")

// LabRepositoryImpl handles lab persistence.
type LabRepositoryImpl struct {
	db *gorm.DB
}

// NewLabRepository creates a new lab repository.
func NewLabRepository(db *gorm.DB) *LabRepositoryImpl {
	return &LabRepositoryImpl{db: db}
}

// Create inserts a new lab.
func (r *LabRepositoryImpl) Create(ctx context.Context, in *models.LabCreate) (*models.Lab, error) {
	lab := &models.Lab{
		WorkspaceID: in.WorkspaceID,
		Name:        in.Name,
	}
	if err := r.db.WithContext(ctx).Create(lab).Error; err != nil {
		return nil, fmt.Errorf("failed to create lab: %w", err)
	}
	return lab, nil
}

// Get returns one lab by id.
func (r *LabRepositoryImpl) Get(ctx context.Context, id string) (*models.Lab, error) {
	var lab models.Lab
	err := r.db.WithContext(ctx).First(&lab, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLabNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lab: %w", err)
	}
	return &lab, nil
}

// List returns labs, newest first, paginated.
func (r *LabRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.Lab, error) {
	var labs []*models.Lab
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&labs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}
	return labs, nil
}

// Delete soft-deletes a lab.
func (r *LabRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Lab{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete lab: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLabNotFound
	}
	return nil
}
