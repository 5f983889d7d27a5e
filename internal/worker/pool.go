// Package worker bounds how many jobs the agent runs concurrently: a
// fixed number of goroutines pull from one shared queue, and Submit
// blocks once the pool's buffered channel is full. This caps container
// fan-out while letting the Agent keep one goroutine per inbound task
// for link responsiveness.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dontdude/execagent/internal/domain"
)

// Executor is the subset of executor.Executor the pool depends on.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) (domain.JobOutcome, error)
}

// Task is one job submitted to the pool, along with where to deliver its
// result.
type Task struct {
	Job      domain.Job
	ResultCh chan<- Result
}

// Result is what a worker reports back after running a Task.
type Result struct {
	Outcome domain.JobOutcome
	Err     error
}

// Pool throttles concurrent job execution to a fixed worker count.
type Pool struct {
	workerCount int
	tasksCh     chan Task
	wg          sync.WaitGroup
	executor    Executor
}

// NewPool initializes the worker pool with a fixed concurrency limit.
func NewPool(concurrency int, executor Executor) *Pool {
	return &Pool{
		workerCount: concurrency,
		tasksCh:     make(chan Task, concurrency),
		executor:    executor,
	}
}

// Start spawns the fixed number of worker goroutines and returns
// immediately. Each worker runs until the pool is stopped.
func (p *Pool) Start() {
	slog.Info("starting worker pool", "concurrency", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the task queue, then blocks until every worker has exited.
// Workers keep running tasks that were already queued and exit once the
// queue is empty.
func (p *Pool) Stop() {
	slog.Info("stopping worker pool, waiting for tasks to drain")
	close(p.tasksCh)
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

// Submit enqueues t. It blocks if the pool is fully saturated, which is
// exactly the back-pressure that caps how many containers run at once.
func (p *Pool) Submit(t Task) {
	p.tasksCh <- t
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	slog.Debug("worker started", "workerId", id)

	for t := range p.tasksCh {
		slog.Debug("processing job", "workerId", id, "jobId", t.Job.ID)

		// A job's own context is independent of whatever cancelled the
		// caller's: Stop() drains in-flight work by waiting for it to
		// actually finish, not by tearing down the context underneath it.
		ctx := context.Background()
		outcome, err := p.executor.Execute(ctx, t.Job)
		t.ResultCh <- Result{Outcome: outcome, Err: err}
	}

	slog.Debug("worker stopped", "workerId", id)
}
