package db

import (
	"context"
	"database/sql"
)

// TxFn runs inside a write transaction owned by the Worker.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// defaultQueueDepth bounds how many writes may sit queued behind the
// one in flight before enqueueing callers start blocking.
const defaultQueueDepth = 256

type writeJob struct {
	ctx    context.Context
	fn     TxFn
	result chan error
}

// Worker serializes all write transactions through a single goroutine.
// sqlite allows one writer at a time; funnelling writes here turns
// SQLITE_BUSY contention into ordinary queueing.
type Worker struct {
	conn  *sql.DB
	queue chan writeJob
	done  chan struct{}
}

// NewWorker starts the write loop. A queueDepth of zero or less uses
// the default.
func NewWorker(conn *sql.DB, queueDepth int) *Worker {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	w := &Worker{
		conn:  conn,
		queue: make(chan writeJob, queueDepth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Close stops accepting writes and waits for queued jobs to drain.
func (w *Worker) Close() {
	close(w.queue)
	<-w.done
}

// Do runs fn in its own transaction on the write goroutine, committing
// if fn returns nil and rolling back otherwise.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	j := writeJob{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case w.queue <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	// If the caller gives up while the job is queued or running, the
	// loop still finishes the transaction; the outcome lands in the
	// buffered result channel and is dropped.
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run() {
	defer close(w.done)

	for j := range w.queue {
		j.result <- w.execute(j)
	}
}

func (w *Worker) execute(j writeJob) error {
	tx, err := w.conn.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
