package orch

import (
	"sync"
	"testing"
	"time"
)

func TestWorkerRunsJobsInOrder(t *testing.T) {
	w := newWorker()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i // per-iteration copy (Go <1.22 loop semantics)
		w.do(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	done := make(chan struct{})
	w.stop(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("final job never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 50 {
		t.Fatalf("ran %d jobs, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestWorkerDropsJobsAfterStop(t *testing.T) {
	w := newWorker()
	done := make(chan struct{})
	w.stop(func() { close(done) })
	<-done

	ran := make(chan struct{}, 1)
	w.do(func() { ran <- struct{}{} })
	w.stop(func() { ran <- struct{}{} })

	select {
	case <-ran:
		t.Error("job ran after stop")
	case <-time.After(50 * time.Millisecond):
	}
}
