package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
)

const (
	stateQueued int32 = iota
	stateRunning
	stateCancelled
)

// Future is the pending result of a task submitted to a Lane.
type Future[T any] struct {
	done  chan struct{}
	state atomic.Int32
	val   T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result blocks until the task has completed.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Wait blocks until the task has completed or ctx is done. A task that has
// not started when ctx is done is withdrawn and never runs; a running task is
// always waited for.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
	}
	if f.state.CompareAndSwap(stateQueued, stateCancelled) {
		var zero T
		return zero, ctx.Err()
	}
	return f.Result()
}

// Submit queues fn on l. If l is stopped the future resolves to ErrLaneClosed.
func Submit[T any](l *Lane, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	err := l.enqueue(func() {
		if !f.state.CompareAndSwap(stateQueued, stateRunning) {
			var zero T
			f.resolve(zero, context.Canceled)
			return
		}
		v, err := call(fn)
		f.resolve(v, err)
	})
	if err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}

// Run submits fn on l and waits for its result.
func Run[T any](ctx context.Context, l *Lane, fn func() (T, error)) (T, error) {
	return Submit(l, fn).Wait(ctx)
}

// Async submits fn on l and hands its outcome to exactly one of onSuccess or
// onError through d. Neither callback runs before Async returns.
func Async[T any](l *Lane, d Dispatcher, fn func() (T, error), onSuccess func(T), onError func(error)) {
	deliver := func(v T, err error) {
		d.Dispatch(func() {
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			if onSuccess != nil {
				onSuccess(v)
			}
		})
	}
	err := l.enqueue(func() {
		deliver(call(fn))
	})
	if err != nil {
		var zero T
		go deliver(zero, err)
	}
}

func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
