package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SaveRequest is one queued persistence job. Record is a snapshot taken on
// the tick goroutine; workers never touch live simulation state. When
// HonorSource is set the worker also appends an honor ledger row, which feeds
// the recent-honor average shown on join.
type SaveRequest struct {
	Record      *PlayerRecord
	Reason      string
	HonorSource string
}

// QueueStats is a hook for counters; nil methods are fine to leave unset.
type QueueStats struct {
	Queued  func()
	Dropped func()
	Errored func()
}

// Queue is a bounded save queue with a worker pool. The tick loop enqueues
// and never blocks: when the queue is full the oldest pending request is
// dropped to make room, on the theory that a newer snapshot of the same
// world supersedes an older one.
type Queue struct {
	store   PlayerStore
	jobs    chan SaveRequest
	workers int
	timeout time.Duration
	log     *zap.Logger
	stats   QueueStats
	wg      sync.WaitGroup
}

func NewQueue(store PlayerStore, size, workers int, log *zap.Logger, stats QueueStats) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		store:   store,
		jobs:    make(chan SaveRequest, size),
		workers: workers,
		timeout: 10 * time.Second,
		log:     log,
		stats:   stats,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled and the
// queue has been drained.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue posts a save without blocking. Returns false when an older request
// had to be dropped to make room.
func (q *Queue) Enqueue(req SaveRequest) bool {
	for {
		select {
		case q.jobs <- req:
			if q.stats.Queued != nil {
				q.stats.Queued()
			}
			return true
		default:
		}
		select {
		case old := <-q.jobs:
			q.log.Warn("save queue full, dropping oldest",
				zap.String("dropped_reason", old.Reason),
				zap.Int64("dropped_player", old.Record.PlayerDbID))
			if q.stats.Dropped != nil {
				q.stats.Dropped()
			}
		default:
			// A worker raced us and made room; retry the send.
		}
	}
}

// Close stops accepting work implicitly via ctx cancellation upstream and
// waits for in-flight saves to finish.
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case req, ok := <-q.jobs:
					if !ok {
						return
					}
					q.save(req)
				default:
					return
				}
			}
		case req, ok := <-q.jobs:
			if !ok {
				return
			}
			q.save(req)
		}
	}
}

func (q *Queue) save(req SaveRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.store.Save(ctx, req.Record, req.Reason); err != nil {
		q.log.Error("player save failed",
			zap.Int64("player", req.Record.PlayerDbID),
			zap.String("reason", req.Reason),
			zap.Error(err))
		if q.stats.Errored != nil {
			q.stats.Errored()
		}
		return
	}
	if req.HonorSource == "" {
		return
	}
	if err := q.store.SaveHonorSnapshot(ctx, req.Record.UserID, req.Record.Honor, req.HonorSource); err != nil {
		q.log.Error("honor snapshot failed",
			zap.String("user", req.Record.UserID),
			zap.String("source", req.HonorSource),
			zap.Error(err))
		if q.stats.Errored != nil {
			q.stats.Errored()
		}
	}
}
