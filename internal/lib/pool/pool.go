// Package pool implements a bounded worker pool for blocking calls.
//
// The retrieval pipeline performs synchronous HTTP calls to the embedding,
// vector-search and LLM services; running them through the pool keeps the
// number of in-flight blocking calls bounded so request handling is never
// starved.
package pool

import (
	"context"
	"fmt"
)

// Pool bounds the number of concurrently executing blocking calls.
type Pool struct {
	sem chan struct{}
}

// New creates a pool admitting at most size concurrent calls.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a worker slot is free, or returns the context error if ctx
// expires first. fn runs on its own goroutine; Do waits for it to finish or
// for ctx to expire. When ctx expires after fn has started, fn keeps running
// to completion on its goroutine but its result is discarded.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	const op = "pool.Do"
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-p.sem }()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
