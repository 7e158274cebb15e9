package worker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := newQueue()
	var got []int

	for i := range 5 {
		if err := q.push(func() { got = append(got, i) }); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.len() != 5 {
		t.Errorf("expected len 5, got %d", q.len())
	}

	for range 5 {
		job, ok := q.pop()
		if !ok {
			t.Fatal("expected job")
		}
		job()
	}

	for i, v := range got {
		if v != i {
			t.Errorf("position %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newQueue()
	result := make(chan bool, 1)

	go func() {
		_, ok := q.pop()
		result <- ok
	}()

	select {
	case <-result:
		t.Fatal("pop returned before push")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.push(func() {}); err != nil {
		t.Fatalf("push: %v", err)
	}

	select {
	case ok := <-result:
		if !ok {
			t.Error("expected pop to return a job")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pop")
	}
}

func TestQueueCloseWakesAllReceivers(t *testing.T) {
	q := newQueue()
	const receivers = 4

	var wg sync.WaitGroup
	results := make(chan bool, receivers)
	for range receivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.pop()
			results <- ok
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.close()
	wg.Wait()
	close(results)

	for ok := range results {
		if ok {
			t.Error("expected closed result")
		}
	}
}

func TestQueueDrainsAfterClose(t *testing.T) {
	q := newQueue()
	_ = q.push(func() {})
	_ = q.push(func() {})
	q.close()
	// Double close should be no-op
	q.close()

	for i := range 2 {
		if _, ok := q.pop(); !ok {
			t.Fatalf("expected queued job %d after close", i)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("expected closed after drain")
	}
}

func TestQueuePushAfterClose(t *testing.T) {
	q := newQueue()
	q.close()

	if err := q.push(func() {}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueEachJobDeliveredOnce(t *testing.T) {
	q := newQueue()
	const jobs = 1000
	const receivers = 8

	var mu sync.Mutex
	seen := make(map[int]int)
	var wg sync.WaitGroup

	for range receivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := q.pop()
				if !ok {
					return
				}
				job()
			}
		}()
	}

	for i := range jobs {
		_ = q.push(func() {
			mu.Lock()
			seen[i]++
			mu.Unlock()
		})
	}
	q.close()
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("expected %d distinct jobs, got %d", jobs, len(seen))
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("job %d delivered %d times", i, n)
		}
	}
}
