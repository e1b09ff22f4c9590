package crypto

import (
	"context"
	"sync"
)

// envelope pairs a message with the id of the request it belongs to.
type envelope[T any] struct {
	ID   uint64
	Body T
}

// WorkerConnection is a long-lived worker goroutine reached through a typed
// request channel and a typed response channel.
//
// At most one request is in flight per connection. Requests are numbered by a
// monotonic id and a response is only delivered to the caller that posted the
// matching id; responses to abandoned requests are dropped.
type WorkerConnection[Req, Res any] struct {
	requests  chan envelope[Req]
	responses chan envelope[Res]

	mu     sync.Mutex
	nextID uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewWorkerConnection starts a worker goroutine running handle for every
// posted request.
func NewWorkerConnection[Req, Res any](handle func(Req) Res) *WorkerConnection[Req, Res] {
	c := &WorkerConnection[Req, Res]{
		requests:  make(chan envelope[Req]),
		responses: make(chan envelope[Res], 1),
		done:      make(chan struct{}),
	}
	go c.serve(handle)
	return c
}

func (c *WorkerConnection[Req, Res]) serve(handle func(Req) Res) {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requests:
			res := envelope[Res]{ID: req.ID, Body: handle(req.Body)}
			select {
			case c.responses <- res:
			case <-c.done:
				return
			}
		}
	}
}

// PostMessage sends body to the worker and waits for its response.
//
// Cancelling ctx abandons the request; the worker still finishes it and the
// late response is discarded by the next caller.
func (c *WorkerConnection[Req, Res]) PostMessage(ctx context.Context, body Req) (Res, error) {
	var zero Res

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	req := envelope[Req]{ID: id, Body: body}

	for sent := false; !sent; {
		select {
		case c.requests <- req:
			sent = true
		case <-c.responses:
			// late response of an abandoned request
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-c.done:
			return zero, ErrWorkerClosed
		}
	}

	for {
		select {
		case res := <-c.responses:
			if res.ID != id {
				continue
			}
			return res.Body, nil
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-c.done:
			return zero, ErrWorkerClosed
		}
	}
}

// Close stops the worker goroutine. Pending and later calls fail with
// [ErrWorkerClosed].
func (c *WorkerConnection[Req, Res]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
