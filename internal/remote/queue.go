// Package remote queues requests for items that are missing locally so the
// network layer can fetch them later.
package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
)

// DefaultQueueSize is the number of requests buffered before new ones are
// dropped.
const DefaultQueueSize = 64

// Queue errors.
var (
	ErrQueueAlreadyRunning = errors.New("fetch queue already running")
	ErrQueueNotRunning     = errors.New("fetch queue not running")
)

// Sink persists fetch requests. The local store is the usual sink.
type Sink interface {
	RecordFetchRequest(ctx context.Context, req models.FetchRequest) error
}

// Queue accepts fetch requests without blocking and hands them to a Sink
// from a single worker goroutine.
type Queue struct {
	sink     Sink
	logger   zerolog.Logger
	requests chan models.FetchRequest
	dropped  atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a stopped queue buffering up to size requests.
func NewQueue(sink Sink, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		sink:     sink,
		logger:   logging.Component("remote-queue"),
		requests: make(chan models.FetchRequest, size),
	}
}

// RequestFetch enqueues a request for id. It never blocks; when the buffer
// is full the request is dropped and logged.
func (q *Queue) RequestFetch(id int64) {
	if id <= 0 {
		return
	}
	req := models.FetchRequest{
		ID:          uuid.New().String(),
		ItemID:      id,
		Status:      models.FetchRequestPending,
		RequestedAt: time.Now().UTC(),
	}
	select {
	case q.requests <- req:
	default:
		q.dropped.Add(1)
		log := logging.WithItem(q.logger, id)
		log.Warn().Msg("fetch queue full, dropping request")
	}
}

// Dropped returns how many requests were dropped because the buffer was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Start launches the worker.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return ErrQueueAlreadyRunning
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.running = true

	q.wg.Add(1)
	go q.run(ctx)

	q.logger.Debug().Int("capacity", cap(q.requests)).Msg("fetch queue started")
	return nil
}

// Stop halts the worker after it has flushed what is already buffered.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return ErrQueueNotRunning
	}
	q.cancel()
	q.running = false
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Debug().Int64("dropped", q.Dropped()).Msg("fetch queue stopped")
	return nil
}

// run records requests until ctx is done. Writes use a context detached
// from ctx: a request taken off the buffer is recorded even when Stop races
// with it.
func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			q.flush(writeCtx)
			return
		case req := <-q.requests:
			q.record(writeCtx, req)
		}
	}
}

// flush records whatever is still buffered.
func (q *Queue) flush(ctx context.Context) {
	for {
		select {
		case req := <-q.requests:
			q.record(ctx, req)
		default:
			return
		}
	}
}

func (q *Queue) record(ctx context.Context, req models.FetchRequest) {
	log := logging.WithItem(q.logger, req.ItemID)
	if err := q.sink.RecordFetchRequest(ctx, req); err != nil {
		log.Error().Err(err).Msg("failed to record fetch request")
		return
	}
	log.Debug().Str("request_id", req.ID).Msg("fetch requested")
}
