// Package scheduler provides serialized execution lanes. A Lane runs at most
// one task at a time, in submission order, on its own goroutine. Results are
// returned through a Future, synchronously with Run or through callbacks
// delivered by a Dispatcher with Async.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrLaneClosed = errors.New("scheduler: lane closed")
	ErrPanic      = errors.New("scheduler: task panicked")
)

// Lane is an unbounded FIFO work queue drained by a single goroutine.
type Lane struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue   []func()
	running bool
	closed  bool

	shutdownDone chan struct{}
}

// NewLane creates a lane and starts its goroutine.
func NewLane(name string, logger *slog.Logger) *Lane {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lane{
		name:         name,
		logger:       logger.With("lane", name),
		shutdownDone: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.loop()
	return l
}

func (l *Lane) Name() string { return l.name }

// Len reports the number of queued tasks, excluding the running one.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Lane) enqueue(task func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLaneClosed
	}
	l.queue = append(l.queue, task)
	l.cond.Signal()
	return nil
}

func (l *Lane) loop() {
	defer close(l.shutdownDone)
	for {
		l.mu.Lock()
		l.running = false
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.running = true
		l.mu.Unlock()

		task()
	}
}

// Stop rejects new tasks and waits until the queued ones have run or ctx is
// done, whichever comes first. An idle lane always stops, even when ctx is
// already done. Tasks still queued when ctx expires keep running in the
// background.
func (l *Lane) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Broadcast()
	}
	idle := len(l.queue) == 0 && !l.running
	l.mu.Unlock()

	if idle {
		<-l.shutdownDone
		l.logger.Debug("lane stopped")
		return nil
	}
	select {
	case <-l.shutdownDone:
		l.logger.Debug("lane stopped")
		return nil
	case <-ctx.Done():
		l.logger.Warn("lane shutdown timed out", "pending", l.Len())
		return ctx.Err()
	}
}
