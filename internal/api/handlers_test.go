package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"canvaslab/internal/models"
	"canvaslab/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLabRepo struct {
	labs map[string]*models.Lab
}

func (f *fakeLabRepo) Create(ctx context.Context, in *models.LabCreate) (*models.Lab, error) {
	lab := &models.Lab{ID: "lab-" + in.Name, WorkspaceID: in.WorkspaceID, Name: in.Name}
	if f.labs == nil {
		f.labs = make(map[string]*models.Lab)
	}
	f.labs[lab.ID] = lab
	return lab, nil
}

func (f *fakeLabRepo) Get(ctx context.Context, id string) (*models.Lab, error) {
	lab, ok := f.labs[id]
	if !ok {
		return nil, repository.ErrLabNotFound
	}
	return lab, nil
}

func (f *fakeLabRepo) List(ctx context.Context, limit, offset int) ([]*models.Lab, error) {
	out := make([]*models.Lab, 0, len(f.labs))
	for _, lab := range f.labs {
		out = append(out, lab)
	}
	return out, nil
}

func (f *fakeLabRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.labs[id]; !ok {
		return repository.ErrLabNotFound
	}
	delete(f.labs, id)
	return nil
}

type fakeCommitLog struct {
	commits []*models.ShapeCommit
}

func (f *fakeCommitLog) Replay(ctx context.Context, labID string) ([]*models.ShapeCommit, error) {
	return f.commits, nil
}

func (f *fakeCommitLog) QueueLength() int { return len(f.commits) }

type fakeShapeHistory struct {
	records  []*models.CommitRecord
	gotLab   string
	gotShape string
}

func (f *fakeShapeHistory) ListByShape(ctx context.Context, labID, shapeID string) ([]*models.CommitRecord, error) {
	f.gotLab = labID
	f.gotShape = shapeID
	return f.records, nil
}

func newTestHandler() (*Handler, *fakeLabRepo, *fakeShapeHistory) {
	repo := &fakeLabRepo{labs: make(map[string]*models.Lab)}
	history := &fakeShapeHistory{}
	h := NewHandler(repo, &fakeCommitLog{}, history, nil)
	return h, repo, history
}

func TestGetLabNotFound(t *testing.T) {
	h, _, _ := newTestHandler()
	r := SetupRoutes(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/labs/nope", nil))

	assert.Equal(t, 404, rec.Code)
}

func TestGetShapeCommits(t *testing.T) {
	h, _, history := newTestHandler()
	history.records = []*models.CommitRecord{
		{ID: "c2", LabID: "lab1", AuthorID: "alice", Seq: 2, ShapeIDs: []string{"s1"}},
		{ID: "c1", LabID: "lab1", AuthorID: "alice", Seq: 1, ShapeIDs: []string{"s1"}},
	}
	r := SetupRoutes(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/labs/lab1/shapes/s1/commits", nil))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "lab1", history.gotLab)
	assert.Equal(t, "s1", history.gotShape)

	var body struct {
		LabID   string                 `json:"lab_id"`
		ShapeID string                 `json:"shape_id"`
		Commits []*models.CommitRecord `json:"commits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "lab1", body.LabID)
	assert.Equal(t, "s1", body.ShapeID)
	require.Len(t, body.Commits, 2)
	assert.Equal(t, "c2", body.Commits[0].ID)
}

func TestHealthReportsQueueDepth(t *testing.T) {
	h, _, _ := newTestHandler()
	r := SetupRoutes(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
