package worker

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"webpool/internal/events"
	"webpool/internal/logger"
)

// panicSource は pop で panic する受信元
type panicSource struct{}

func (panicSource) pop() (Job, bool) {
	panic("queue corrupted")
}

func TestReceiverReceive(t *testing.T) {
	q := newQueue()
	rx := newReceiver(q)

	_ = q.push(func() {})
	job, err := rx.receive()
	if err != nil || job == nil {
		t.Fatalf("expected job, got %v, %v", job, err)
	}

	q.close()
	if _, err := rx.receive(); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	if rx.isPoisoned() {
		t.Error("closed queue should not poison the receiver")
	}
}

func TestReceiverPoisonedByPanic(t *testing.T) {
	rx := newReceiver(panicSource{})

	_, err := rx.receive()
	if !errors.Is(err, ErrReceiverPoisoned) {
		t.Fatalf("expected ErrReceiverPoisoned, got %v", err)
	}
	if !strings.Contains(err.Error(), "queue corrupted") {
		t.Errorf("expected panic value in error, got %v", err)
	}
	if !rx.isPoisoned() {
		t.Error("expected receiver to be poisoned")
	}

	// The lock must have been released
	done := make(chan error, 1)
	go func() {
		_, err := rx.receive()
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrReceiverPoisoned) {
			t.Errorf("expected ErrReceiverPoisoned, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver lock was not released after panic")
	}
}

func TestWorkerExitsOnPoisonedReceiver(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(buf, logger.LevelDebug)
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer bus.Close()

	rx := newReceiver(panicSource{})
	w := newWorker(0, rx, log, bus, nil)
	w.start()

	if err := w.join(); err != nil {
		t.Fatalf("poisoned receiver should end the loop normally, got %v", err)
	}
	if w.loadState() != StateTerminated {
		t.Errorf("expected Terminated, got %s", w.loadState())
	}
	if !strings.Contains(buf.String(), "cannot access job queue") {
		t.Errorf("expected poisoned receiver to be logged, got: %s", buf.String())
	}

	var sawPoisoned bool
	for len(sub) > 0 {
		if ev := <-sub; ev.Type == events.EventReceiverPoisoned {
			sawPoisoned = true
		}
	}
	if !sawPoisoned {
		t.Error("expected receiver_poisoned event")
	}
}

func TestWorkersShareOnePoisonedReceiver(t *testing.T) {
	rx := newReceiver(panicSource{})
	log := logger.New(&bytes.Buffer{}, logger.LevelError)

	workers := make([]*worker, 3)
	for i := range workers {
		workers[i] = newWorker(i, rx, log, nil, nil)
		workers[i].start()
	}

	for _, w := range workers {
		if err := w.join(); err != nil {
			t.Errorf("worker %d: unexpected join error %v", w.id, err)
		}
	}
}
