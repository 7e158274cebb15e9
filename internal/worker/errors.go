package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize はワーカー数が 1 未満のときに返される
	ErrInvalidSize = errors.New("worker count must be greater than zero")
	// ErrPoolClosed は Close 開始後に Submit されたときに返される
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrNilJob は nil のジョブが Submit されたときに返される
	ErrNilJob = errors.New("job must not be nil")
	// ErrQueueClosed はキューがクローズされ空になったことを表す
	ErrQueueClosed = errors.New("job queue closed")
	// ErrReceiverPoisoned は共有受信ハンドルのロックが使用不能になったことを表す
	ErrReceiverPoisoned = errors.New("job receiver poisoned")
	// ErrWorkerPanicked はワーカーのループ自体が panic で終了したことを表す
	ErrWorkerPanicked = errors.New("worker loop panicked")
)

// ConfigError はプールの設定誤り
type ConfigError struct {
	Field string
	Value int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pool config: %s=%d: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// JoinError はワーカーを正常に join できなかったことを表す
type JoinError struct {
	WorkerID int
	Err      error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.WorkerID, e.Err)
}

func (e *JoinError) Unwrap() error {
	return e.Err
}
