package worker

import (
	"container/list"
	"sync"
)

// queue は無制限の FIFO ジョブキュー (複数送信者・複数受信者)
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *list.List
	closed bool
}

func newQueue() *queue {
	q := &queue{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push はジョブを末尾に追加する。クローズ後は ErrQueueClosed
func (q *queue) push(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items.PushBack(job)
	q.cond.Signal()
	return nil
}

// pop は先頭のジョブを取り出す。空なら到着かクローズまでブロックする。
// クローズ後も残っているジョブは順に返し、空になったら ok=false
func (q *queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return nil, false
	}
	return q.items.Remove(q.items.Front()).(Job), true
}

// close は以降の push を拒否し、待機中の受信者を起こす。二度目以降は何もしない
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// len は未処理のジョブ数を返す
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// sender はキューの送信側ハンドル
type sender struct {
	q *queue
}

func (s *sender) send(job Job) error {
	return s.q.push(job)
}

// close は送信側を手放す
func (s *sender) close() {
	s.q.close()
}
