package job

import (
	"math"
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue returned ok")
	}
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	if q.Len() != 5 {
		t.Errorf("Len = %d, want 5", q.Len())
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop = %d, %v; want %d", v, ok, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after drain", q.Len())
	}
}

func TestQueueConcurrentOrder(t *testing.T) {
	const n = 10000
	q := NewQueue[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(i)
		}
	}()

	next := 0
	for next < n {
		v, ok := q.TryPop()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("got %d, want %d", v, next)
		}
		next++
	}
	wg.Wait()
}

func TestStateCancelMarksDone(t *testing.T) {
	var s State
	if s.Done() || s.Cancelled() {
		t.Fatal("zero State not clear")
	}
	s.MarkDone()
	if !s.Done() || s.Cancelled() {
		t.Error("MarkDone set cancel")
	}
	var c State
	c.RequestCancel()
	if !c.Done() || !c.Cancelled() {
		t.Error("RequestCancel did not set both flags")
	}
}

func TestEstimateProgress(t *testing.T) {
	tests := []struct {
		elapsed, assumed int
		want             float64
	}{
		{0, 60, 0},
		{30, 60, 50},
		{59, 60, 59.0 / 60 * 100},
		{60, 60, 99},
		{600, 60, 99},
		{10, 0, 0},
	}
	for _, tt := range tests {
		got := EstimateProgress(sec(tt.elapsed), sec(tt.assumed))
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EstimateProgress(%ds, %ds) = %v, want %v", tt.elapsed, tt.assumed, got, tt.want)
		}
	}
}
