package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateCollapsesConcurrentCalls(t *testing.T) {
	g := New(time.Second)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "translated", nil
	}

	const n = 20
	var (
		wg      sync.WaitGroup
		results = make([]any, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i], _ = g.Do(context.Background(), "s1|1:translate:", fn)
		}(i)
	}

	waitFor(t, func() bool { return g.InFlight() == 1 })
	// let stragglers attach before releasing
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn called %d times, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil || results[i] != "translated" {
			t.Fatalf("caller %d got (%v, %v)", i, results[i], errs[i])
		}
	}
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d after completion", g.InFlight())
	}
}

func TestGateSharesErrorsWithoutCaching(t *testing.T) {
	g := New(time.Second)
	boom := errors.New("upstream 500")

	var calls atomic.Int32
	release := make(chan struct{})
	failing := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return nil, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i], _ = g.Do(context.Background(), "k", failing)
		}(i)
	}
	waitFor(t, func() bool { return g.InFlight() == 1 })
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d error = %v, want %v", i, err, boom)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("failing fn called %d times, want 1", calls.Load())
	}

	// the failure is not remembered
	v, err, _ := g.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("retry got (%v, %v)", v, err)
	}
}

func TestGateDistinctKeysRunInParallel(t *testing.T) {
	g := New(time.Second)

	var running atomic.Int32
	both := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		if running.Add(1) == 2 {
			close(both)
		}
		select {
		case <-both:
			return nil, nil
		case <-time.After(time.Second):
			return nil, errors.New("keys were serialized")
		}
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if _, err, _ := g.Do(context.Background(), key, fn); err != nil {
				t.Error(err)
			}
		}(key)
	}
	wg.Wait()
}

func TestGateCallerCancelDoesNotAbortWork(t *testing.T) {
	g := New(time.Second)

	finished := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		close(finished)
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err, _ := g.Do(ctx, "k", fn)
		errc <- err
	}()

	waitFor(t, func() bool { return g.InFlight() == 1 })
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("work was aborted by caller cancellation")
	}
}

func TestGateTimeout(t *testing.T) {
	g := New(10 * time.Millisecond)

	_, err, _ := g.Do(context.Background(), "slow", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want deadline exceeded", err)
	}
}

func TestGateTimeoutReleasesWaitersWhenFnIgnoresContext(t *testing.T) {
	g := New(50 * time.Millisecond)

	unblock := make(chan struct{})
	var finished atomic.Bool
	fn := func(ctx context.Context) (any, error) {
		<-unblock
		finished.Store(true)
		return "late", nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	start := time.Now()
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i], _ = g.Do(context.Background(), "stuck", fn)
		}(i)
	}
	wg.Wait()

	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("waiters released after %s", took)
	}
	for i, err := range errs {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("caller %d error = %v, want deadline exceeded", i, err)
		}
	}
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d after timeout", g.InFlight())
	}

	close(unblock)
	waitFor(t, finished.Load)
}

func TestGateRecoversPanics(t *testing.T) {
	g := New(time.Second)

	_, err, _ := g.Do(context.Background(), "p", func(ctx context.Context) (any, error) {
		panic("adapter bug")
	})
	if err == nil {
		t.Fatal("expected error from panicking call")
	}
	if g.InFlight() != 0 {
		t.Fatalf("InFlight() = %d", g.InFlight())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
