package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobmatch/internal/domain/job"
)

// Task is one unit of fetch work. Index keeps the submission order so callers
// can merge results deterministically.
type Task struct {
	Index int
	Name  string
	Fn    func(ctx context.Context) ([]job.Posting, error)
}

type Result struct {
	Index    int
	Name     string
	Postings []job.Posting
	Err      error
	Elapsed  time.Duration
}

// WorkerPool runs fetch tasks on a fixed number of goroutines. Submit after
// Close panics.
type WorkerPool struct {
	workers int
	tasks   chan Task
	once    sync.Once
}

func NewWorkerPool(workers, buffer int) *WorkerPool {
	return &WorkerPool{
		workers: max(workers, 1),
		tasks:   make(chan Task, max(buffer, 0)),
	}
}

func (p *WorkerPool) Submit(t Task) {
	if p == nil || t.Fn == nil {
		return
	}
	p.tasks <- t
}

// Close ends the queue. Workers finish what is queued and exit.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.tasks) })
}

// Run starts the workers. The returned channel closes once every worker exits,
// which happens after Close drains the queue or ctx is cancelled.
func (p *WorkerPool) Run(ctx context.Context) <-chan Result {
	out := make(chan Result, p.capacity())
	if p == nil {
		close(out)
		return out
	}

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, out)
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (p *WorkerPool) capacity() int {
	if p == nil {
		return 0
	}
	return cap(p.tasks) + p.workers
}

func (p *WorkerPool) work(ctx context.Context, out chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			res := runTask(ctx, t)
			select {
			case <-ctx.Done():
				return
			case out <- res:
			}
		}
	}
}

func runTask(ctx context.Context, t Task) (res Result) {
	start := time.Now()
	res = Result{Index: t.Index, Name: t.Name}
	defer func() {
		if r := recover(); r != nil {
			res.Postings = nil
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Elapsed = time.Since(start)
	}()
	res.Postings, res.Err = t.Fn(ctx)
	return res
}
