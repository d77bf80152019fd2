package worker

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestQueueRunsTasks(t *testing.T) {
	q := NewQueue(2, 8, nil)
	var count int64
	for i := 0; i < 20; i++ {
		if !q.Submit(func() { atomic.AddInt64(&count, 1) }) {
			t.Fatal("submit rejected before close")
		}
	}
	q.Close()

	if got := atomic.LoadInt64(&count); got != 20 {
		t.Fatalf("ran %d tasks, want 20", got)
	}
}

func TestQueueCloseDrainsPending(t *testing.T) {
	q := NewQueue(1, 16, nil)
	var order []int
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		i := i
		q.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	q.Close()

	if len(order) != 10 {
		t.Fatalf("drained %d tasks, want 10", len(order))
	}
	// single worker preserves submission order
	for i, got := range order {
		if got != i {
			t.Fatalf("task %d ran out of order: %v", i, order)
		}
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(1, 0, nil)
	q.Close()
	if q.Submit(func() {}) {
		t.Fatal("submit accepted after close")
	}
	// double close is a no-op
	q.Close()
}

func TestQueueRecoversPanics(t *testing.T) {
	var recovered atomic.Value
	q := NewQueue(1, 4, func(r any) { recovered.Store(r) })

	var ran int64
	q.Submit(func() { panic("boom") })
	q.Submit(func() { atomic.AddInt64(&ran, 1) })
	q.Close()

	if got := atomic.LoadInt64(&ran); got != 1 {
		t.Fatalf("worker died after panic, later task did not run (ran=%d)", got)
	}
	if recovered.Load() != "boom" {
		t.Fatalf("panic not observed: %v", recovered.Load())
	}
}

func TestQueueMinimums(t *testing.T) {
	q := NewQueue(0, -1, nil)
	var ran int64
	q.Submit(func() { atomic.AddInt64(&ran, 1) })
	q.Close()
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatal("queue with clamped minimums did not run task")
	}
}
