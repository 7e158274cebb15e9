package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"webpool/internal/events"
)

// Job はワーカーが実行するジョブを表す
type Job func()

// State はワーカーの状態
type State int32

const (
	StateIdle State = iota
	StateBusy
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBusy:
		return "Busy"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// MarshalText は JSON などで状態名を出力するため
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// WorkerInfo はワーカーの状態スナップショット
type WorkerInfo struct {
	ID    int   `json:"id"`
	State State `json:"state"`
}

// worker は受信ハンドルからジョブを取り出して実行し続けるゴルーチン
type worker struct {
	id      int
	name    string
	rx      *receiver
	log     Logger
	events  events.Publisher
	onPanic func(workerID int, v any)

	state   atomic.Int32
	done    chan struct{}
	exitErr error
	joined  atomic.Bool
}

func newWorker(id int, rx *receiver, log Logger, pub events.Publisher, onPanic func(int, any)) *worker {
	return &worker{
		id:      id,
		name:    fmt.Sprintf("worker-%d", id),
		rx:      rx,
		log:     log,
		events:  pub,
		onPanic: onPanic,
		done:    make(chan struct{}),
	}
}

// start はワーカーのゴルーチンを起動する
func (w *worker) start() {
	go w.run()
}

// run はディスパッチループ。キューのクローズか受信ハンドルの破損でのみ終了する
func (w *worker) run() {
	defer close(w.done)
	defer func() {
		if v := recover(); v != nil {
			w.exitErr = fmt.Errorf("%w: %v", ErrWorkerPanicked, v)
		}
		w.setState(StateTerminated)
		w.publish(events.NewWorkerStoppedEvent(w.name, w.exitErr))
	}()

	w.publish(events.NewWorkerStartedEvent(w.name))
	w.log.Debug(w.name, "Worker %d started", w.id)

	for {
		w.setState(StateIdle)

		job, err := w.rx.receive()
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				w.log.Info(w.name, "Worker %d disconnected; shutting down.", w.id)
				return
			}
			w.log.Error(w.name, "Worker %d cannot access job queue: %v", w.id, err)
			w.publish(events.NewReceiverPoisonedEvent(w.name, err))
			return
		}

		w.setState(StateBusy)
		w.log.Debug(w.name, "Worker %d got a job; executing.", w.id)
		w.execute(job)
	}
}

// execute はジョブを1回実行する。panic はここで止めてループを継続させる
func (w *worker) execute(job Job) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		w.report(v, debug.Stack())
	}()

	job()
}

// report はジョブの panic を記録する。ここでの panic もループに漏らさない
func (w *worker) report(v any, stack []byte) {
	defer func() {
		if rv := recover(); rv != nil {
			// ロガー自体が壊れている場合もあるので、ここでも止める
			defer func() { _ = recover() }()
			w.log.Error(w.name, "Worker %d failed to report job panic: %v", w.id, rv)
		}
	}()

	w.log.Warn(w.name, "Worker %d job panicked: %v\n%s", w.id, v, stack)
	w.publish(events.NewJobPanickedEvent(w.name, v))
	if w.onPanic != nil {
		w.onPanic(w.id, v)
	}
}

// join はゴルーチンの終了を待つ。2回目以降はすぐに戻る
func (w *worker) join() error {
	if !w.joined.CompareAndSwap(false, true) {
		return nil
	}
	<-w.done
	if w.exitErr != nil {
		return &JoinError{WorkerID: w.id, Err: w.exitErr}
	}
	return nil
}

func (w *worker) setState(s State) {
	w.state.Store(int32(s))
}

func (w *worker) loadState() State {
	return State(w.state.Load())
}

func (w *worker) info() WorkerInfo {
	return WorkerInfo{ID: w.id, State: w.loadState()}
}

func (w *worker) publish(ev events.Event) {
	if w.events != nil {
		w.events.Publish(ev)
	}
}
