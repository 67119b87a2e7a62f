package disk

import (
	"sync"

	"github.com/golang-collections/collections/queue"
)

// Channel is an unbounded blocking FIFO. Put never blocks on capacity;
// Get blocks until an element is available.
type Channel[T any] struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	q        *queue.Queue
}

func NewChannel[T any]() *Channel[T] {
	c := &Channel[T]{q: queue.New()}
	c.nonEmpty = sync.NewCond(&c.mu)
	return c
}

func (c *Channel[T]) Put(v T) {
	c.mu.Lock()
	c.q.Enqueue(v)
	c.mu.Unlock()
	c.nonEmpty.Signal()
}

func (c *Channel[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.q.Len() == 0 {
		c.nonEmpty.Wait()
	}
	return c.q.Dequeue().(T)
}

func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.Len()
}
