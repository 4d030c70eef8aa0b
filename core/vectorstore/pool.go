package vectorstore

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed indicates a submit to a shut-down pool.
var ErrPoolClosed = errors.New("vector store pool is closed")

// DefaultPoolWorkers bounds concurrent store operations per pool.
const DefaultPoolWorkers = 4

// Pool decorates a Store so blocking store work runs on a bounded set of
// worker goroutines instead of the caller's goroutine pool. Callers block
// until their operation completes; cancelling the context abandons the wait
// while the in-flight operation runs to completion and its result is
// discarded.
type Pool struct {
	store Store
	tasks chan func()

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewPool wraps store with workers goroutines. workers <= 0 uses the
// default.
func NewPool(store Store, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultPoolWorkers
	}

	p := &Pool{
		store: store,
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case task := <-p.tasks:
			task()
		}
	}
}

// submit runs fn on a pool worker and waits for it, honoring ctx.
func (p *Pool) submit(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	completed := make(chan struct{})
	task := func() {
		fn()
		close(completed)
	}

	select {
	case p.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolClosed
	}

	select {
	case <-completed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Upsert(ctx context.Context, entries []Entry) error {
	var opErr error
	if err := p.submit(ctx, func() {
		opErr = p.store.Upsert(ctx, entries)
	}); err != nil {
		return err
	}
	return opErr
}

func (p *Pool) Query(ctx context.Context, text string, k int) ([]Match, error) {
	var (
		matches []Match
		opErr   error
	)
	if err := p.submit(ctx, func() {
		matches, opErr = p.store.Query(ctx, text, k)
	}); err != nil {
		return nil, err
	}
	return matches, opErr
}

func (p *Pool) Get(ctx context.Context, ids []string) ([]Match, error) {
	var (
		matches []Match
		opErr   error
	)
	if err := p.submit(ctx, func() {
		matches, opErr = p.store.Get(ctx, ids)
	}); err != nil {
		return nil, err
	}
	return matches, opErr
}

func (p *Pool) Count(ctx context.Context) (int, error) {
	var (
		count int
		opErr error
	)
	if err := p.submit(ctx, func() {
		count, opErr = p.store.Count(ctx)
	}); err != nil {
		return 0, err
	}
	return count, opErr
}

// Close stops the workers and closes the underlying store.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return p.store.Close()
}
