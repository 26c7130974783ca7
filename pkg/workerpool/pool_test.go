package workerpool

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCollectReturnsAllResults(t *testing.T) {
	pool, err := New(Config{Workers: 4, QueueSize: 64}, func(ctx context.Context, task *Task) *Result {
		return &Result{
			TaskID:  task.ID,
			Success: true,
			Data:    strings.ToUpper(task.Payload.(string)),
		}
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	var tasks []*Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, &Task{
			ID:      fmt.Sprintf("t-%d", i),
			Payload: fmt.Sprintf("payload-%d", i),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := pool.Collect(ctx, tasks)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(results) != len(tasks) {
		t.Fatalf("got %d results, want %d", len(results), len(tasks))
	}

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("t-%d", i)
		r, ok := results[id]
		if !ok {
			t.Fatalf("missing result for %s", id)
		}
		if r.Data != fmt.Sprintf("PAYLOAD-%d", i) {
			t.Errorf("result for %s = %v", id, r.Data)
		}
	}

	stats := pool.Stats()
	if stats.TasksCompleted != 20 {
		t.Errorf("TasksCompleted = %d, want 20", stats.TasksCompleted)
	}
}

func TestCollectSurfacesFailures(t *testing.T) {
	pool, err := New(Config{Workers: 2, QueueSize: 8}, func(ctx context.Context, task *Task) *Result {
		return &Result{TaskID: task.ID, Success: false, Error: fmt.Errorf("boom")}
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := pool.Collect(ctx, []*Task{{ID: "only"}})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if results["only"].Success {
		t.Error("expected failed result")
	}
	if pool.Stats().TasksFailed != 1 {
		t.Errorf("TasksFailed = %d, want 1", pool.Stats().TasksFailed)
	}
}

func TestCollectAfterAbandonedCollect(t *testing.T) {
	gate := make(chan struct{})
	pool, err := New(Config{Workers: 1, QueueSize: 16}, func(ctx context.Context, task *Task) *Result {
		<-gate
		return &Result{TaskID: task.ID, Success: true, Data: task.Payload}
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pool.Start()
	defer func() {
		close(gate)
		pool.Stop()
	}()

	// First batch is abandoned mid-flight: its context is already cancelled
	// and the worker is blocked on the gate.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	first := []*Task{{ID: "a-0"}, {ID: "a-1"}}
	if _, err := pool.Collect(cancelled, first); err != context.Canceled {
		t.Fatalf("Collect on cancelled ctx: %v, want context.Canceled", err)
	}

	// Release the worker; the abandoned batch's results complete now.
	gate <- struct{}{}
	gate <- struct{}{}

	// The next batch must receive exactly its own results, not the
	// abandoned batch's.
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	second := []*Task{{ID: "b-0", Payload: "b-0"}, {ID: "b-1", Payload: "b-1"}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		results, err := pool.Collect(ctx, second)
		if err != nil {
			t.Errorf("Collect: %v", err)
			return
		}
		for _, id := range []string{"b-0", "b-1"} {
			r, ok := results[id]
			if !ok {
				t.Errorf("missing result for %s, got %d results", id, len(results))
				continue
			}
			if r.Data != id {
				t.Errorf("result for %s carries %v", id, r.Data)
			}
		}
		for id := range results {
			if id == "a-0" || id == "a-1" {
				t.Errorf("received stale result %s from abandoned batch", id)
			}
		}
	}()

	gate <- struct{}{}
	gate <- struct{}{}
	<-done
}

func TestSubmitAfterStop(t *testing.T) {
	pool, err := New(Config{Workers: 1, QueueSize: 1, GracefulShutdownTimeout: time.Second}, func(ctx context.Context, task *Task) *Result {
		return &Result{TaskID: task.ID, Success: true}
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pool.Start()
	pool.Stop()

	if err := pool.Submit(&Task{ID: "late"}); err == nil {
		t.Error("Submit after Stop should fail")
	}
}

func TestNewRequiresWorkerFunc(t *testing.T) {
	if _, err := New(DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for nil worker function")
	}
}
