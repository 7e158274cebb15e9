package worker

import (
	"errors"
	"sync/atomic"

	"webpool/internal/events"
	"webpool/internal/logger"
)

// Logger はプールが使うログ出力インターフェース。*logger.Logger が満たす
type Logger interface {
	Debug(id string, format string, args ...any)
	Info(id string, format string, args ...any)
	Warn(id string, format string, args ...any)
	Error(id string, format string, args ...any)
}

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers   int                       // ワーカー数（1以上）
	Logger       Logger                    // nil なら logger.Default
	Events       events.Publisher          // nil ならイベントを発行しない
	PanicHandler func(workerID int, v any) // ジョブが panic したときに呼ばれる
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers: 4,
		Logger:     logger.Default,
	}
}

// Pool は固定数のワーカーと送信ハンドルを保持する
type Pool struct {
	workers []*worker
	queue   *queue
	rx      *receiver
	sender  atomic.Pointer[sender]
	log     Logger
	events  events.Publisher
	stopped chan struct{}
}

// NewPool は numWorkers 個のワーカーで新しいプールを作成し、ワーカーを起動する
func NewPool(numWorkers int) (*Pool, error) {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// MustNewPool は NewPool と同じだが、設定誤りの場合は panic する
func MustNewPool(numWorkers int) *Pool {
	p, err := NewPool(numWorkers)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPoolWithConfig は設定を指定してプールを作成する。
// NumWorkers が 1 未満ならワーカーを1つも起動せずにエラーを返す
func NewPoolWithConfig(config PoolConfig) (*Pool, error) {
	if config.NumWorkers <= 0 {
		return nil, &ConfigError{Field: "NumWorkers", Value: config.NumWorkers, Err: ErrInvalidSize}
	}
	if config.Logger == nil {
		config.Logger = logger.Default
	}

	q := newQueue()
	p := &Pool{
		workers: make([]*worker, 0, config.NumWorkers),
		queue:   q,
		rx:      newReceiver(q),
		log:     config.Logger,
		events:  config.Events,
		stopped: make(chan struct{}),
	}
	p.sender.Store(&sender{q: q})

	for id := range config.NumWorkers {
		w := newWorker(id, p.rx, p.log, p.events, config.PanicHandler)
		p.workers = append(p.workers, w)
		w.start()
	}

	p.log.Info("", "WorkerPool started with %d workers", config.NumWorkers)
	return p, nil
}

// Submit はジョブをキューに追加する。
// Close 開始後は ErrPoolClosed を返し、ジョブは実行されない。
// 受信ハンドルが壊れた後は ErrReceiverPoisoned を返す。どのワーカーも二度と受信しないため。
// 破損の直前に受け付けたジョブは実行されないことがある
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	tx := p.sender.Load()
	if tx == nil {
		return ErrPoolClosed
	}
	if p.rx.isPoisoned() {
		return ErrReceiverPoisoned
	}
	if err := tx.send(job); err != nil {
		// Close と競合した場合
		return ErrPoolClosed
	}
	return nil
}

// Close は送信ハンドルを一度だけ手放し、ワーカーを ID 順に join する。
// キューに残っているジョブは実行されてからワーカーが終了する。
// 2回目以降の呼び出しは最初の Close の完了を待って nil を返す。
// ジョブの中から呼ぶと自分自身の join を待ってデッドロックする
func (p *Pool) Close() error {
	tx := p.sender.Swap(nil)
	if tx == nil {
		<-p.stopped
		return nil
	}
	defer close(p.stopped)

	tx.close()

	var errs []error
	for _, w := range p.workers {
		p.log.Info(w.name, "Shutting down worker %d", w.id)
		if err := w.join(); err != nil {
			p.log.Error(w.name, "Failed to join worker %d: %v", w.id, err)
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if p.events != nil {
		p.events.Publish(events.NewPoolClosedEvent(len(p.workers), err))
	}
	p.log.Info("", "WorkerPool stopped")
	return err
}

// Closed は Close が開始されたかを返す
func (p *Pool) Closed() bool {
	return p.sender.Load() == nil
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return p.queue.len()
}

// Workers は全ワーカーの状態を ID 順に返す
func (p *Pool) Workers() []WorkerInfo {
	infos := make([]WorkerInfo, len(p.workers))
	for i, w := range p.workers {
		infos[i] = w.info()
	}
	return infos
}
