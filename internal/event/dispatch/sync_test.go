package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestResult_Classification(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		success bool
		isErr   bool
		isPanic bool
	}{
		{"success", Result{Success: true}, true, false, false},
		{"error", Result{Error: errors.New("error")}, false, true, false},
		{"panic", Result{Panicked: true, PanicValue: "boom"}, false, false, true},
		{"skipped", Result{Skipped: true, Error: context.Canceled}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsError(); got != tt.isErr {
				t.Errorf("IsError() = %v, want %v", got, tt.isErr)
			}
			if got := tt.result.IsPanic(); got != tt.isPanic {
				t.Errorf("IsPanic() = %v, want %v", got, tt.isPanic)
			}
		})
	}
}

func TestResult_Err(t *testing.T) {
	if err := (Result{Success: true}).Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	sentinel := errors.New("boom")
	if err := (Result{Error: sentinel}).Err(); !errors.Is(err, sentinel) {
		t.Errorf("Err() = %v, want %v", err, sentinel)
	}

	err := (Result{Panicked: true, PanicValue: "bad"}).Err()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Err() = %T, want *PanicError", err)
	}
	if pe.Value != "bad" {
		t.Errorf("PanicError.Value = %v, want bad", pe.Value)
	}
	if pe.Error() != "panic: bad" {
		t.Errorf("PanicError.Error() = %q", pe.Error())
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	mock := clock.NewMock()
	e := NewExecutor(WithExecutorClock(mock))

	result := e.Execute(context.Background(), "user:created", func(ctx context.Context) error {
		mock.Add(5 * time.Millisecond)
		return nil
	})

	if !result.IsSuccess() {
		t.Errorf("expected success, got %+v", result)
	}
	if result.Label != "user:created" {
		t.Errorf("Label = %q, want user:created", result.Label)
	}
	if result.Duration != 5*time.Millisecond {
		t.Errorf("Duration = %v, want 5ms", result.Duration)
	}
}

func TestExecutor_Execute_Error(t *testing.T) {
	e := NewExecutor()
	expected := errors.New("handler failed")

	result := e.Execute(context.Background(), "x", func(ctx context.Context) error {
		return expected
	})

	if result.Success {
		t.Error("expected failure")
	}
	if !errors.Is(result.Error, expected) {
		t.Errorf("Error = %v, want %v", result.Error, expected)
	}
}

func TestExecutor_Execute_Panic(t *testing.T) {
	var (
		gotLabel string
		gotValue any
		gotStack []byte
	)
	e := NewExecutor(WithExecutorPanicHandler(func(label string, v any, stack []byte) {
		gotLabel, gotValue, gotStack = label, v, stack
	}))

	result := e.Execute(context.Background(), "hook", func(ctx context.Context) error {
		panic("boom")
	})

	if !result.Panicked {
		t.Fatal("expected panic to be recorded")
	}
	if result.PanicValue != "boom" {
		t.Errorf("PanicValue = %v, want boom", result.PanicValue)
	}
	if len(result.PanicStack) == 0 {
		t.Error("expected stack trace")
	}
	if gotLabel != "hook" || gotValue != "boom" || len(gotStack) == 0 {
		t.Errorf("panic handler got (%q, %v, %d bytes)", gotLabel, gotValue, len(gotStack))
	}
}

func TestExecutor_Execute_PanicHandlerPanics(t *testing.T) {
	e := NewExecutor(WithExecutorPanicHandler(func(string, any, []byte) {
		panic("handler panic")
	}))

	result := e.Execute(context.Background(), "x", func(ctx context.Context) error {
		panic("boom")
	})

	if !result.Panicked {
		t.Error("expected panic to be recorded")
	}
}

func TestExecutor_Execute_ContextCancelled(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := e.Execute(ctx, "x", func(ctx context.Context) error {
		called = true
		return nil
	})

	if called {
		t.Error("call should not run with cancelled context")
	}
	if !result.Skipped {
		t.Error("expected Skipped")
	}
	if !errors.Is(result.Error, context.Canceled) {
		t.Errorf("Error = %v, want context.Canceled", result.Error)
	}
}

func TestSyncDispatcher_DispatchAll(t *testing.T) {
	d := NewSyncDispatcher()
	var order []int

	calls := []Call{
		func(context.Context) error { order = append(order, 1); return nil },
		func(context.Context) error { order = append(order, 2); panic("x") },
		func(context.Context) error { order = append(order, 3); return errors.New("e") },
		func(context.Context) error { order = append(order, 4); return nil },
	}

	results := d.DispatchAll(context.Background(), "evt", calls)

	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	if len(order) != 4 {
		t.Errorf("order = %v, want all four calls", order)
	}
	if !results[0].IsSuccess() || !results[1].IsPanic() || !results[2].IsError() || !results[3].IsSuccess() {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSyncDispatcher_DispatchAll_ContextCancelled(t *testing.T) {
	d := NewSyncDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	calls := []Call{
		func(context.Context) error { cancel(); return nil },
		func(context.Context) error { t.Error("should not run"); return nil },
	}

	results := d.DispatchAll(ctx, "evt", calls)
	if !results[1].Skipped {
		t.Error("second call should be skipped")
	}
}

func TestSyncDispatcher_Stats(t *testing.T) {
	mock := clock.NewMock()
	d := NewSyncDispatcher(WithClock(mock))
	ctx := context.Background()

	d.Dispatch(ctx, "a", func(context.Context) error { mock.Add(2 * time.Millisecond); return nil })
	d.Dispatch(ctx, "b", func(context.Context) error { mock.Add(4 * time.Millisecond); return errors.New("x") })
	d.Dispatch(ctx, "c", func(context.Context) error { panic("p") })

	stats := d.Stats()
	if stats.Dispatched != 3 {
		t.Errorf("Dispatched = %d, want 3", stats.Dispatched)
	}
	if stats.Succeeded != 1 || stats.Failed != 1 || stats.Panicked != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalDuration != 6*time.Millisecond {
		t.Errorf("TotalDuration = %v, want 6ms", stats.TotalDuration)
	}
	if stats.AvgDuration != 2*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 2ms", stats.AvgDuration)
	}

	d.ResetStats()
	if d.Stats().Dispatched != 0 {
		t.Error("ResetStats should clear counters")
	}
}

func TestSyncDispatcher_Concurrent(t *testing.T) {
	d := NewSyncDispatcher()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Dispatch(context.Background(), "x", func(context.Context) error { return nil })
			}
		}()
	}
	wg.Wait()

	if got := d.Stats().Dispatched; got != 1000 {
		t.Errorf("Dispatched = %d, want 1000", got)
	}
}
