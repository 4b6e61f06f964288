package worker

import (
	"context"
	"sync"
)

// Task is a unit of work executed by the pool.
type Task[R any] interface {
	Execute(ctx context.Context) R
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc[R any] func(ctx context.Context) R

func (f TaskFunc[R]) Execute(ctx context.Context) R {
	return f(ctx)
}

// Pool runs tasks on a fixed number of workers and collects every result.
// Analysis units use it to fan extraction calls out across segments without
// unbounded goroutine growth.
type Pool[R any] struct {
	workers    int
	tasks      chan Task[R]
	results    chan R
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool with the given number of workers (minimum 1).
func NewPool[R any](workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool[R]{
		workers:    workers,
		tasks:      make(chan Task[R], workers*2), // Buffered to prevent blocking
		results:    make(chan R, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			result := task.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task for execution. Submitting after Wait is a bug.
func (p *Pool[R]) Submit(task Task[R]) {
	select {
	case <-p.ctx.Done():
		return
	case p.tasks <- task:
	}
}

// Wait blocks until all submitted tasks finish and returns their results.
// Ordering across tasks is not guaranteed.
func (p *Pool[R]) Wait() []R {
	close(p.tasks)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []R
	for result := range p.results {
		results = append(results, result)
	}

	return results
}

// Shutdown stops the pool immediately, abandoning queued tasks.
func (p *Pool[R]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
