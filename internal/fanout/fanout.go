// Package fanout runs independent work items under a fixed concurrency
// ceiling and gathers one outcome per item, in input order.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidLimit = errors.New("fanout: limit must be > 0")

// Outcome is the result of one item: either Value or Err is meaningful.
type Outcome[R any] struct {
	Value R
	Err   error
}

func (o Outcome[R]) OK() bool { return o.Err == nil }

// WorkFunc processes the item at index i.
type WorkFunc[T, R any] func(ctx context.Context, i int, item T) (R, error)

// Run invokes work for every item with at most limit calls in flight. A
// failing item never cancels its siblings; its error is recorded in its own
// slot. Items not yet started when ctx is done fail with ctx.Err().
// Nothing is retried.
func Run[T, R any](ctx context.Context, items []T, limit int, work WorkFunc[T, R]) ([]Outcome[R], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidLimit, limit)
	}
	if work == nil {
		return nil, errors.New("fanout: work func is nil")
	}
	out := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Value, out[i].Err = call(ctx, i, item, work)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// call shields the batch from a panicking worker.
func call[T, R any](ctx context.Context, i int, item T, work WorkFunc[T, R]) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fanout: item %d panicked: %v", i, p)
		}
	}()
	return work(ctx, i, item)
}

// Values returns the successful values in input order.
func Values[R any](outcomes []Outcome[R]) []R {
	vals := make([]R, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			vals = append(vals, o.Value)
		}
	}
	return vals
}

// Failures counts failed outcomes.
func Failures[R any](outcomes []Outcome[R]) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
