package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// source はジョブの受信元
type source interface {
	pop() (Job, bool)
}

// receiver は全ワーカーで共有する受信側ハンドル。
// 同時に受信できるのは1ワーカーだけで、ロックはジョブ実行中には保持しない。
// ロック保持中に panic が起きると poisoned になり、以降の受信はすべて失敗する
type receiver struct {
	mu       sync.Mutex
	src      source
	poisoned atomic.Bool
}

func newReceiver(src source) *receiver {
	return &receiver{src: src}
}

// receive はロックを取得して1件だけ受信し、ロックを解放する
func (r *receiver) receive() (job Job, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned.Load() {
		return nil, ErrReceiverPoisoned
	}

	defer func() {
		if v := recover(); v != nil {
			r.poisoned.Store(true)
			job, err = nil, fmt.Errorf("%w: %v", ErrReceiverPoisoned, v)
		}
	}()

	job, ok := r.src.pop()
	if !ok {
		return nil, ErrQueueClosed
	}
	return job, nil
}

// isPoisoned はロックが壊れているかを返す
func (r *receiver) isPoisoned() bool {
	return r.poisoned.Load()
}
