package repository

import (
	"testing"

	"canvaslab/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestShapeIDsOfCollectsFromAllActions(t *testing.T) {
	ops := []models.ShapeOp{
		{Action: models.OpCreate, Shape: &models.Shape{ID: "s1"}},
		{Action: models.OpUpdate, ID: "s2"},
		{Action: models.OpDelete, ID: "s3"},
	}

	assert.Equal(t, []string{"s1", "s2", "s3"}, shapeIDsOf(ops))
}

func TestShapeIDsOfDeduplicates(t *testing.T) {
	ops := []models.ShapeOp{
		{Action: models.OpCreate, Shape: &models.Shape{ID: "s1"}},
		{Action: models.OpUpdate, ID: "s1"},
		{Action: models.OpUpdate, ID: "s2"},
		{Action: models.OpDelete, ID: "s1"},
	}

	assert.Equal(t, []string{"s1", "s2"}, shapeIDsOf(ops))
}

func TestShapeIDsOfSkipsMalformedOps(t *testing.T) {
	ops := []models.ShapeOp{
		{Action: models.OpCreate}, // create with no shape payload
		{Action: models.OpUpdate}, // update with no id
	}

	assert.Empty(t, shapeIDsOf(ops))
	assert.Empty(t, shapeIDsOf(nil))
}
