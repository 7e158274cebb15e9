// Package worker provides a fixed-size goroutine pool for fire-and-forget jobs.
//
// The Pool starts a fixed number of worker goroutines at construction. They
// share the receiving end of one unbounded FIFO queue: a worker takes the
// receiver lock, receives one job (blocking while the queue is empty), releases
// the lock and then runs the job. The lock is never held while a job runs.
//
// # Basic Usage
//
//	pool, err := worker.NewPool(4) // 4 workers, already running
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	for i := 0; i < 100; i++ {
//	    if err := pool.Submit(func() {
//	        // do work
//	    }); err != nil {
//	        // pool is closing; the job was not accepted
//	    }
//	}
//
// # Configuration
//
// Use NewPoolWithConfig to inject a logger, an event publisher, or a panic
// handler:
//
//	pool, err := worker.NewPoolWithConfig(worker.PoolConfig{
//	    NumWorkers:   8,
//	    Logger:       logger.Default,
//	    Events:       bus,
//	    PanicHandler: func(id int, v any) { ... },
//	})
//
// # Shutdown
//
// Close stops accepting jobs, lets the workers drain the queue, and joins
// them in ID order. It is safe to call more than once. A job that panics is
// recovered inside its worker and never stops the pool.
package worker
