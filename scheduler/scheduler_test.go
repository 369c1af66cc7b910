package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLane(t *testing.T) *Lane {
	t.Helper()
	l := NewLane("test", nil)
	t.Cleanup(func() { l.Stop(context.Background()) })
	return l
}

// block occupies l until the returned function is called.
func block(t *testing.T, l *Lane) (release func()) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	Submit(l, func() (struct{}, error) {
		close(started)
		<-gate
		return struct{}{}, nil
	})
	<-started
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

func TestLaneFIFO(t *testing.T) {
	l := newTestLane(t)

	const n = 200
	var (
		mu    sync.Mutex
		order []int
	)
	futures := make([]*Future[int], n)
	for i := 0; i < n; i++ {
		i := i
		futures[i] = Submit(l, func() (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
	}
	for i, f := range futures {
		v, err := f.Result()
		if err != nil || v != i {
			t.Fatalf("future %d = %d, %v", i, v, err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, tasks ran out of submission order", i, v)
		}
	}
}

func TestLaneSingleInFlight(t *testing.T) {
	l := newTestLane(t)

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Run(context.Background(), l, func() (struct{}, error) {
				n := inFlight.Add(1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				inFlight.Add(-1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()
	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max in-flight tasks = %d, want 1", got)
	}
}

func TestRunReturnsError(t *testing.T) {
	l := newTestLane(t)
	want := errors.New("boom")

	_, err := Run(context.Background(), l, func() (int, error) { return 0, want })
	if !errors.Is(err, want) {
		t.Errorf("Run() error = %v, want %v", err, want)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	l := newTestLane(t)

	_, err := Run(context.Background(), l, func() (int, error) { panic("bad statement") })
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("Run() error = %v, want ErrPanic", err)
	}
	v, err := Run(context.Background(), l, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("lane unusable after panic: %d, %v", v, err)
	}
}

func TestWaitWithdrawsQueuedTask(t *testing.T) {
	l := newTestLane(t)
	release := block(t, l)

	var ran atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	f := Submit(l, func() (int, error) {
		ran.Store(true)
		return 1, nil
	})
	cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}

	release()
	if _, err := Run(context.Background(), l, func() (int, error) { return 0, nil }); err != nil {
		t.Fatalf("Run() after withdraw failed: %v", err)
	}
	if ran.Load() {
		t.Error("withdrawn task ran")
	}
}

func TestWaitDoesNotAbandonRunningTask(t *testing.T) {
	l := newTestLane(t)

	started := make(chan struct{})
	gate := make(chan struct{})
	f := Submit(l, func() (int, error) {
		close(started)
		<-gate
		return 42, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	v, err := f.Wait(ctx)
	if err != nil || v != 42 {
		t.Errorf("Wait() = %d, %v; want the running task's result", v, err)
	}
}

func TestStopDrainsAndRejects(t *testing.T) {
	l := NewLane("stop", nil)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		Submit(l, func() (int, error) {
			count.Add(1)
			return 0, nil
		})
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if got := count.Load(); got != 10 {
		t.Errorf("drained tasks = %d, want 10", got)
	}
	if _, err := Submit(l, func() (int, error) { return 0, nil }).Result(); !errors.Is(err, ErrLaneClosed) {
		t.Errorf("Submit() after Stop error = %v, want ErrLaneClosed", err)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}

func TestStopTimeout(t *testing.T) {
	l := newTestLane(t)
	block(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
}

func TestStopAfterDrainIgnoresDoneContext(t *testing.T) {
	l := newTestLane(t)
	if _, err := Run(context.Background(), l, func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 100; i++ {
		if err := l.Stop(ctx); err != nil {
			t.Fatalf("Stop() on a drained lane = %v, want nil", err)
		}
	}
}

func TestAsyncExactlyOnce(t *testing.T) {
	l := newTestLane(t)
	d := NewSerialDispatcher(nil)
	defer d.Stop(context.Background())

	const n = 100
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
		seen      sync.Map
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		Async(l, d, func() (int, error) {
			if i%2 == 1 {
				return 0, errors.New("odd")
			}
			return i, nil
		}, func(v int) {
			if _, dup := seen.LoadOrStore(i, true); dup {
				t.Errorf("callback for %d fired twice", i)
			}
			successes.Add(1)
			wg.Done()
		}, func(err error) {
			if _, dup := seen.LoadOrStore(i, true); dup {
				t.Errorf("callback for %d fired twice", i)
			}
			failures.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if s, f := successes.Load(), failures.Load(); s != n/2 || f != n/2 {
		t.Errorf("successes = %d, failures = %d; want %d each", s, f, n/2)
	}
}

func TestAsyncNeverCallsBackBeforeReturning(t *testing.T) {
	l := newTestLane(t)
	release := block(t, l)

	var called atomic.Bool
	done := make(chan struct{})
	inline := DispatcherFunc(func(fn func()) { fn() })
	Async(l, inline, func() (int, error) { return 1, nil }, func(int) {
		called.Store(true)
		close(done)
	}, nil)

	if called.Load() {
		t.Fatal("callback fired before Async returned")
	}
	release()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestAsyncOnStoppedLane(t *testing.T) {
	l := NewLane("stopped", nil)
	l.Stop(context.Background())

	errs := make(chan error, 1)
	Async(l, GoDispatcher{}, func() (int, error) { return 1, nil }, func(int) {
		t.Error("onSuccess fired on a stopped lane")
	}, func(err error) { errs <- err })

	select {
	case err := <-errs:
		if !errors.Is(err, ErrLaneClosed) {
			t.Errorf("onError(%v), want ErrLaneClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("onError never fired")
	}
}

func TestSerialDispatcherSurvivesPanic(t *testing.T) {
	d := NewSerialDispatcher(nil)

	var order []int
	d.Dispatch(func() { order = append(order, 1) })
	d.Dispatch(func() { panic("callback") })
	d.Dispatch(func() { order = append(order, 3) })
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("order = %v, want [1 3]", order)
	}
}
