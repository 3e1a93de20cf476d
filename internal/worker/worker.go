// Package worker offloads index building, search, and link resolution
// to a background goroutine. The computations are pure functions over
// a collection snapshot, so the worker holds no state of its own.
//
// Protocol: a request carries a correlation identifier and an
// operation tag; the reply carries the same identifier and either a
// result or an error. Callers correlate by identifier, not arrival
// order, since multiple requests may be in flight. There is no
// preemption: a superseded request runs to completion and its reply is
// discarded once nobody is waiting on the identifier. Timeouts are the
// caller's job, via context.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/resolve"
	"github.com/starford/ansuz/internal/search"
)

// Op tags a worker operation.
type Op string

// Supported operations.
const (
	OpBuildIndex   Op = "buildIndex"
	OpSearch       Op = "search"
	OpComputeLinks Op = "computeLinks"
)

// Request is one unit of work. Notes is the collection snapshot the
// operation runs against.
type Request struct {
	CorrelationID string
	Op            Op
	Query         string // OpSearch
	Body          string // OpComputeLinks
	Notes         []note.Note
}

// Response answers the request with the same correlation identifier
// and either a result or an error.
type Response struct {
	CorrelationID string
	Op            Op
	Result        any
	Err           error
}

// Worker processes requests on a single background goroutine.
type Worker struct {
	weights search.Weights

	requests chan Request

	mu      sync.Mutex
	pending map[string]chan Response

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a worker. queue bounds how many requests may sit unserved
// before submitters block.
func New(weights search.Weights, queue int) *Worker {
	if queue <= 0 {
		queue = 16
	}
	w := &Worker{
		weights:  weights,
		requests: make(chan Request, queue),
		pending:  make(map[string]chan Response),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.stopCh:
			return
		case req := <-w.requests:
			w.deliver(w.handle(req))
		}
	}
}

// handle executes one request synchronously on the worker goroutine.
func (w *Worker) handle(req Request) Response {
	resp := Response{CorrelationID: req.CorrelationID, Op: req.Op}
	switch req.Op {
	case OpBuildIndex:
		resp.Result = search.Build(req.Notes, w.weights)
	case OpSearch:
		resp.Result = search.Build(req.Notes, w.weights).Search(req.Query)
	case OpComputeLinks:
		resp.Result = resolve.Links(req.Body, req.Notes)
	default:
		resp.Err = fmt.Errorf("worker: unknown op %q", req.Op)
	}
	return resp
}

// deliver routes a response to the waiter registered under its
// correlation identifier. A reply nobody waits for anymore is dropped.
func (w *Worker) deliver(resp Response) {
	w.mu.Lock()
	ch, ok := w.pending[resp.CorrelationID]
	if ok {
		delete(w.pending, resp.CorrelationID)
	}
	w.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// Close stops the worker loop. In-flight waiters receive
// apperr.ErrWorkerClosed through Do.
func (w *Worker) Close() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.stopCh)
	}
	<-w.stopped
}

// Do submits a request and waits for its correlated response. The
// correlation identifier is assigned here; a caller-supplied one is
// preserved. On ctx expiry the waiter deregisters and the eventual
// reply is discarded — the worker does not preempt running work.
func (w *Worker) Do(ctx context.Context, req Request) (Response, error) {
	if w.closed.Load() {
		return Response{}, apperr.ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	ch := make(chan Response, 1)
	w.mu.Lock()
	w.pending[req.CorrelationID] = ch
	w.mu.Unlock()

	drop := func() {
		w.mu.Lock()
		delete(w.pending, req.CorrelationID)
		w.mu.Unlock()
	}

	select {
	case w.requests <- req:
	case <-ctx.Done():
		drop()
		return Response{}, ctx.Err()
	case <-w.stopped:
		drop()
		return Response{}, apperr.ErrWorkerClosed
	}

	select {
	case resp := <-ch:
		return resp, resp.Err
	case <-ctx.Done():
		drop()
		return Response{}, ctx.Err()
	case <-w.stopped:
		drop()
		return Response{}, apperr.ErrWorkerClosed
	}
}

// BuildIndex builds a search index off the caller's goroutine.
func (w *Worker) BuildIndex(ctx context.Context, notes []note.Note) (*search.Index, error) {
	resp, err := w.Do(ctx, Request{Op: OpBuildIndex, Notes: notes})
	if err != nil {
		return nil, err
	}
	return resp.Result.(*search.Index), nil
}

// Search builds an index for the snapshot and runs the query.
func (w *Worker) Search(ctx context.Context, query string, notes []note.Note) ([]search.Result, error) {
	resp, err := w.Do(ctx, Request{Op: OpSearch, Query: query, Notes: notes})
	if err != nil {
		return nil, err
	}
	return resp.Result.([]search.Result), nil
}

// ComputeLinks resolves wikilinks off the caller's goroutine.
func (w *Worker) ComputeLinks(ctx context.Context, body string, notes []note.Note) ([]string, error) {
	resp, err := w.Do(ctx, Request{Op: OpComputeLinks, Body: body, Notes: notes})
	if err != nil {
		return nil, err
	}
	return resp.Result.([]string), nil
}
