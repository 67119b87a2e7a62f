package disk

import (
	"context"

	"go.uber.org/atomic"

	"github.com/tuannm99/novapage/internal/common"
)

// Completion is a single-assignment result handle shared by the submitter and the
// scheduler worker. Waiting blocks on a channel until the worker resolves it.
type Completion struct {
	resolved atomic.Bool
	done     chan struct{}
	err      error
}

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolve publishes err to every waiter. Resolving twice is a caller bug.
func (c *Completion) resolve(err error) {
	common.Assert(c.resolved.CAS(false, true), "disk: completion resolved twice")
	c.err = err
	close(c.done)
}

// Done is closed once the request has been executed.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Wait blocks until the request has been executed and returns the I/O error, if any.
func (c *Completion) Wait() error {
	<-c.done
	return c.err
}

// WaitContext is Wait bounded by ctx. A cancelled wait does not cancel the request.
func (c *Completion) WaitContext(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request is one page read or write. Data is read or filled in place; the
// submitter must leave it alone until Done is resolved.
type Request struct {
	PageID  common.PageID
	Data    []byte
	IsWrite bool
	Done    *Completion
}

func NewReadRequest(pageID common.PageID, dst []byte) *Request {
	return &Request{PageID: pageID, Data: dst, Done: NewCompletion()}
}

func NewWriteRequest(pageID common.PageID, src []byte) *Request {
	return &Request{PageID: pageID, Data: src, IsWrite: true, Done: NewCompletion()}
}
