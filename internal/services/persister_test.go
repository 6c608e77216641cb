package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"canvaslab/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommitRepo records stores in memory and signals each write.
type fakeCommitRepo struct {
	mu        sync.Mutex
	byLab     map[string][]*models.ShapeCommit
	trimCalls []trimCall
	written   chan struct{}
}

type trimCall struct {
	labID string
	keep  int
}

func newFakeCommitRepo() *fakeCommitRepo {
	return &fakeCommitRepo{
		byLab:   make(map[string][]*models.ShapeCommit),
		written: make(chan struct{}, 64),
	}
}

func (f *fakeCommitRepo) Store(ctx context.Context, labID string, commit *models.ShapeCommit) error {
	f.mu.Lock()
	f.byLab[labID] = append(f.byLab[labID], commit)
	f.mu.Unlock()
	f.written <- struct{}{}
	return nil
}

func (f *fakeCommitRepo) ListByLab(ctx context.Context, labID string) ([]*models.ShapeCommit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.ShapeCommit(nil), f.byLab[labID]...), nil
}

func (f *fakeCommitRepo) DeleteOldCommits(ctx context.Context, labID string, keepCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trimCalls = append(f.trimCalls, trimCall{labID: labID, keep: keepCount})
	return nil
}

func (f *fakeCommitRepo) stored(labID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byLab[labID])
}

func (f *fakeCommitRepo) trims() []trimCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trimCall(nil), f.trimCalls...)
}

func waitWrites(t *testing.T, repo *fakeCommitRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-repo.written:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for write %d of %d", i+1, n)
		}
	}
}

func TestSubmitPersistsThroughWorkers(t *testing.T) {
	repo := newFakeCommitRepo()
	p := NewCommitPersister(repo, 2, 16, 0)
	p.Start()
	defer p.Shutdown()

	for i := 0; i < 5; i++ {
		commit := &models.ShapeCommit{AuthorID: "u1", Seq: uint64(i + 1)}
		require.NoError(t, p.Submit("lab1", commit))
	}

	waitWrites(t, repo, 5)
	assert.Equal(t, 5, repo.stored("lab1"))
}

func TestReplayDelegatesToRepository(t *testing.T) {
	repo := newFakeCommitRepo()
	repo.byLab["lab1"] = []*models.ShapeCommit{
		{AuthorID: "u1", Seq: 1},
		{AuthorID: "u2", Seq: 1},
	}

	p := NewCommitPersister(repo, 1, 4, 0)

	commits, err := p.Replay(context.Background(), "lab1")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "u1", commits[0].AuthorID)

	empty, err := p.Replay(context.Background(), "lab2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestShutdownDrainsQueue(t *testing.T) {
	repo := newFakeCommitRepo()
	p := NewCommitPersister(repo, 1, 16, 0)
	p.Start()

	for i := 0; i < 8; i++ {
		require.NoError(t, p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: uint64(i + 1)}))
	}

	// Queued but not-yet-written jobs must complete before Shutdown
	// returns.
	p.Shutdown()
	assert.Equal(t, 8, repo.stored("lab1"))
	assert.Equal(t, 0, p.QueueLength())
}

func TestRetentionTrimsLabsWithNewWrites(t *testing.T) {
	repo := newFakeCommitRepo()
	p := NewCommitPersister(repo, 1, 16, 100)
	p.Start()
	defer p.Shutdown()

	require.NoError(t, p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: 1}))
	require.NoError(t, p.Submit("lab2", &models.ShapeCommit{AuthorID: "u1", Seq: 1}))
	require.NoError(t, p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: 2}))
	waitWrites(t, repo, 3)

	p.trim()
	assert.ElementsMatch(t, []trimCall{
		{labID: "lab1", keep: 100},
		{labID: "lab2", keep: 100},
	}, repo.trims(), "each written lab trimmed once to the retention bound")

	// No writes since the last pass, nothing to trim.
	p.trim()
	assert.Len(t, repo.trims(), 2)

	// New writes make a lab eligible again.
	require.NoError(t, p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: 3}))
	waitWrites(t, repo, 1)
	p.trim()
	assert.Len(t, repo.trims(), 3)
}

func TestRetentionDisabledNeverTrims(t *testing.T) {
	repo := newFakeCommitRepo()
	p := NewCommitPersister(repo, 1, 16, 0)
	p.Start()
	defer p.Shutdown()

	require.NoError(t, p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: 1}))
	waitWrites(t, repo, 1)

	p.trim()
	assert.Empty(t, repo.trims())
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	repo := newFakeCommitRepo()
	p := NewCommitPersister(repo, 1, 4, 0)
	p.Start()
	p.Shutdown()

	err := p.Submit("lab1", &models.ShapeCommit{AuthorID: "u1", Seq: 1})
	assert.Error(t, err)
}
