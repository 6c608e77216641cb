package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"canvaslab/internal/models"

	"gorm.io/gorm"
)

// CommitRepositoryImpl handles shape commit log storage.
type CommitRepositoryImpl struct {
	db *gorm.DB
}

// NewCommitRepository creates a new commit repository.
func NewCommitRepository(db *gorm.DB) *CommitRepositoryImpl {
	return &CommitRepositoryImpl{db: db}
}

// Store appends one commit to a lab's log. Ops are serialized to JSONB;
// the ShapeIDs column records which shapes the commit touched so history
// per shape stays queryable without unpacking JSON.
func (r *CommitRepositoryImpl) Store(ctx context.Context, labID string, commit *models.ShapeCommit) error {
	ops, err := json.Marshal(commit.Ops)
	if err != nil {
		return fmt.Errorf("marshal commit ops: %w", err)
	}

	record := &models.CommitRecord{
		LabID:    labID,
		AuthorID: commit.AuthorID,
		Seq:      commit.Seq,
		Ops:      ops,
		ShapeIDs: shapeIDsOf(commit.Ops),
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to store commit: %w", err)
	}
	return nil
}

// ListByLab returns a lab's commits in applied order. Used for late-joiner
// catch-up: replaying them in order reconstructs the canvas.
func (r *CommitRepositoryImpl) ListByLab(ctx context.Context, labID string) ([]*models.ShapeCommit, error) {
	var records []*models.CommitRecord

	err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}

	commits := make([]*models.ShapeCommit, 0, len(records))
	for _, record := range records {
		var ops []models.ShapeOp
		if err := json.Unmarshal(record.Ops, &ops); err != nil {
			// A corrupt row must not break catch-up for the whole lab.
			continue
		}
		commits = append(commits, &models.ShapeCommit{
			AuthorID: record.AuthorID,
			Seq:      record.Seq,
			Ops:      ops,
		})
	}
	return commits, nil
}

// ListByShape returns the commits that touched one shape, newest first.
func (r *CommitRepositoryImpl) ListByShape(ctx context.Context, labID, shapeID string) ([]*models.CommitRecord, error) {
	var records []*models.CommitRecord

	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND ? = ANY(shape_ids)", labID, shapeID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commits for shape: %w", err)
	}
	return records, nil
}

// DeleteOldCommits keeps only the most recent keepCount commits for a
// lab. Call periodically to prevent unbounded log growth.
func (r *CommitRepositoryImpl) DeleteOldCommits(ctx context.Context, labID string, keepCount int) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommitRecord{}).
		Where("lab_id = ?", labID).
		Count(&count).Error; err != nil {
		return err
	}

	if count <= int64(keepCount) {
		return nil // Nothing to delete
	}

	var cutoff models.CommitRecord
	offset := count - int64(keepCount)
	if err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Order("created_at ASC").
		Offset(int(offset)).
		First(&cutoff).Error; err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Where("lab_id = ? AND created_at < ?", labID, cutoff.CreatedAt).
		Delete(&models.CommitRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete old commits: %w", result.Error)
	}
	return nil
}

func shapeIDsOf(ops []models.ShapeOp) []string {
	seen := make(map[string]struct{}, len(ops))
	ids := make([]string, 0, len(ops))
	for _, op := range ops {
		id := op.ID
		if op.Action == models.OpCreate && op.Shape != nil {
			id = op.Shape.ID
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
