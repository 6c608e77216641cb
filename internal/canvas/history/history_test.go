package history

import (
	"fmt"
	"testing"

	"canvaslab/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) []models.ShapeOp {
	return []models.ShapeOp{{Action: models.OpDelete, ID: id}}
}

func TestRecordClearsRedo(t *testing.T) {
	e := NewEngine(10)

	e.Record(entry("a"))
	popped, ok := e.PopUndo()
	require.True(t, ok)
	e.PushRedo(popped)
	require.True(t, e.CanRedo())

	e.Record(entry("b"))
	assert.False(t, e.CanRedo(), "new action invalidates the redo branch")
}

func TestDepthEvictsOldestFirst(t *testing.T) {
	e := NewEngine(3)
	for i := 0; i < 5; i++ {
		e.Record(entry(fmt.Sprintf("s%d", i)))
	}

	undo, redo := e.Depths()
	assert.Equal(t, 3, undo)
	assert.Equal(t, 0, redo)

	// Newest out first; s0 and s1 were evicted.
	for _, want := range []string{"s4", "s3", "s2"} {
		ops, ok := e.PopUndo()
		require.True(t, ok)
		assert.Equal(t, want, ops[0].ID)
	}
	_, ok := e.PopUndo()
	assert.False(t, ok)
}

func TestEmptyRecordIsIgnored(t *testing.T) {
	e := NewEngine(10)
	e.Record(nil)
	assert.False(t, e.CanUndo())
}

func TestZeroDepthFallsBackToDefault(t *testing.T) {
	e := NewEngine(0)
	for i := 0; i < DefaultDepth+10; i++ {
		e.Record(entry(fmt.Sprintf("s%d", i)))
	}
	undo, _ := e.Depths()
	assert.Equal(t, DefaultDepth, undo)
}

func TestPushUndoKeepsRedo(t *testing.T) {
	e := NewEngine(10)
	e.Record(entry("a"))
	ops, _ := e.PopUndo()
	e.PushRedo(ops)

	// Redoing re-stacks the undo entry without touching the redo stack.
	redoOps, ok := e.PopRedo()
	require.True(t, ok)
	e.PushUndo(redoOps)
	assert.True(t, e.CanUndo())
	assert.False(t, e.CanRedo())
}
