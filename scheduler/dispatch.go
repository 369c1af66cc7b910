package scheduler

import (
	"context"
	"log/slog"
)

// Dispatcher delivers completion callbacks for Async.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher, e.g. a UI loop's post call.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// GoDispatcher runs every callback on a new goroutine.
type GoDispatcher struct{}

func (GoDispatcher) Dispatch(fn func()) { go fn() }

// SerialDispatcher runs callbacks one at a time in delivery order, the way a
// main loop would. A panicking callback is logged and does not stop the loop.
type SerialDispatcher struct {
	lane   *Lane
	logger *slog.Logger
}

func NewSerialDispatcher(logger *slog.Logger) *SerialDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialDispatcher{
		lane:   NewLane("completion", logger),
		logger: logger,
	}
}

// Dispatch queues fn. After Stop, callbacks run on their own goroutine so no
// delivery is lost.
func (d *SerialDispatcher) Dispatch(fn func()) {
	safe := func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("completion callback panicked", "panic", r)
			}
		}()
		fn()
	}
	if err := d.lane.enqueue(safe); err != nil {
		go safe()
	}
}

// Stop waits for queued callbacks to run.
func (d *SerialDispatcher) Stop(ctx context.Context) error {
	return d.lane.Stop(ctx)
}
