package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"canvaslab/internal/metrics"
	"canvaslab/internal/models"
)

/*
COMMIT PERSISTER WORKER POOL

Relayed shape commits are written to the commit log by a fixed pool of
workers fed from a bounded queue. The broadcast loop only ever pays the
cost of a channel send; the database write happens on a worker goroutine.

Benefits:
- Fan-out latency is independent of database latency
- Bounded queue gives backpressure instead of unbounded memory growth
- Fixed worker count caps concurrent database writes
*/

// PersistJob is one commit waiting to be written to the log.
type PersistJob struct {
	LabID  string
	Commit *models.ShapeCommit
}

// CommitRepository is what the persister needs from storage (consumer-
// defined; the GORM repository implements it).
type CommitRepository interface {
	Store(ctx context.Context, labID string, commit *models.ShapeCommit) error
	ListByLab(ctx context.Context, labID string) ([]*models.ShapeCommit, error)
	DeleteOldCommits(ctx context.Context, labID string, keepCount int) error
}

// CommitPersister implements the hub's CommitLog: Submit queues a write,
// Replay reads the log back for late joiners.
type CommitPersister struct {
	repo CommitRepository

	jobs    chan PersistJob
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// retain caps the commit log per lab; 0 disables trimming. Labs with
	// writes since the last trim accumulate in dirty.
	retain  int
	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	// closeMu orders Submit sends against the queue close in Shutdown.
	closeMu sync.RWMutex
	closed  bool
}

// NewCommitPersister creates the pool without starting it. retain is the
// number of commits kept per lab; 0 keeps everything.
func NewCommitPersister(repo CommitRepository, numWorkers, queueSize, retain int) *CommitPersister {
	ctx, cancel := context.WithCancel(context.Background())

	return &CommitPersister{
		repo:    repo,
		jobs:    make(chan PersistJob, queueSize),
		workers: numWorkers,
		ctx:     ctx,
		cancel:  cancel,
		retain:  retain,
		dirty:   make(map[string]struct{}),
	}
}

// Start spawns the worker goroutines and, when retention is configured,
// the periodic log trimmer.
func (p *CommitPersister) Start() {
	log.Printf("🔧 Starting commit persister with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	if p.retain > 0 {
		go p.retentionLoop()
		log.Printf("  Commit log retention: keeping latest %d per lab", p.retain)
	}

	log.Println("✓ Commit persister started")
}

func (p *CommitPersister) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Printf("  Persister worker %d shutting down", id)
			return

		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.repo.Store(context.Background(), job.LabID, job.Commit); err != nil {
				log.Printf("  Persister worker %d error: %v", id, err)
			} else {
				metrics.PersistedCommits.Inc()
			}
		}
	}
}

// Submit queues a commit for persistence. Blocks only when the queue is
// full (backpressure); fails once shutdown has begun.
func (p *CommitPersister) Submit(labID string, commit *models.ShapeCommit) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return fmt.Errorf("persister is shutting down")
	}

	select {
	case p.jobs <- PersistJob{LabID: labID, Commit: commit}:
		p.markDirty(labID)
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("persister is shutting down")
	}
}

func (p *CommitPersister) markDirty(labID string) {
	if p.retain <= 0 {
		return
	}
	p.dirtyMu.Lock()
	p.dirty[labID] = struct{}{}
	p.dirtyMu.Unlock()
}

// retentionLoop periodically trims the commit log of labs written to
// since the last pass, so the log cannot grow without bound.
func (p *CommitPersister) retentionLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.trim()
		}
	}
}

func (p *CommitPersister) trim() {
	if p.retain <= 0 {
		return
	}

	p.dirtyMu.Lock()
	labs := make([]string, 0, len(p.dirty))
	for id := range p.dirty {
		labs = append(labs, id)
	}
	p.dirty = make(map[string]struct{})
	p.dirtyMu.Unlock()

	for _, labID := range labs {
		if err := p.repo.DeleteOldCommits(context.Background(), labID, p.retain); err != nil {
			log.Printf("  Failed to trim commit log for lab %s: %v", labID, err)
		}
	}
}

// Replay returns the lab's commits in applied order for catch-up.
func (p *CommitPersister) Replay(ctx context.Context, labID string) ([]*models.ShapeCommit, error) {
	return p.repo.ListByLab(ctx, labID)
}

// QueueLength returns the number of pending writes.
func (p *CommitPersister) QueueLength() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs, drains the queue, and waits for
// in-flight writes. Cancel comes last so workers finish queued jobs
// instead of bailing out mid-drain.
func (p *CommitPersister) Shutdown() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()

	log.Println("🛑 Shutting down commit persister...")

	p.wg.Wait()
	p.cancel()

	log.Println("✓ Commit persister shutdown complete")
}
