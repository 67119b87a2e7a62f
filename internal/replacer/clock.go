package replacer

import (
	"github.com/tuannm99/novapage/internal/common"
)

var _ Replacer = (*ClockReplacer)(nil)

// ClockReplacer implements CLOCK (second-chance) replacement for a fixed number of frames.
// It tracks ref bits and evictable state for frame ids [0..capacity).
type ClockReplacer struct {
	latch common.Latch

	ref       []bool
	evictable []bool
	present   []bool
	hand      int
	size      int // number of evictable frames
}

func NewClockReplacer(capacity int) *ClockReplacer {
	common.Assert(capacity > 0, "clock replacer: capacity must be positive, got %d", capacity)
	return &ClockReplacer{
		ref:       make([]bool, capacity),
		evictable: make([]bool, capacity),
		present:   make([]bool, capacity),
	}
}

func (c *ClockReplacer) Capacity() int { return len(c.ref) }

// RecordAccess marks the frame present and sets its ref bit.
func (c *ClockReplacer) RecordAccess(frameID FrameID, _ AccessType) {
	c.latch.Lock()
	defer c.latch.Unlock()

	common.Assert(c.inRange(frameID), "clock replacer: frame id %d out of range [0, %d)", frameID, len(c.ref))
	c.present[frameID] = true
	c.ref[frameID] = true
}

func (c *ClockReplacer) SetEvictable(frameID FrameID, evictable bool) {
	c.latch.Lock()
	defer c.latch.Unlock()

	if !c.inRange(frameID) || !c.present[frameID] {
		return
	}
	if c.evictable[frameID] == evictable {
		return
	}

	c.evictable[frameID] = evictable
	if evictable {
		c.size++
	} else {
		c.size--
	}
}

// Evict sweeps at most twice around the clock: the first pass clears ref bits,
// the second is guaranteed to find a victim.
func (c *ClockReplacer) Evict() (FrameID, bool) {
	c.latch.Lock()
	defer c.latch.Unlock()

	n := len(c.ref)
	if c.size == 0 {
		return InvalidFrameID, false
	}

	for i := 0; i < 2*n; i++ {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		if !c.present[idx] || !c.evictable[idx] {
			continue
		}
		if c.ref[idx] {
			c.ref[idx] = false
			continue
		}
		c.forget(idx)
		return FrameID(idx), true
	}

	common.Assert(false, "clock replacer: %d evictable frames counted but none found", c.size)
	return InvalidFrameID, false
}

func (c *ClockReplacer) Remove(frameID FrameID) {
	c.latch.Lock()
	defer c.latch.Unlock()

	common.Assert(c.inRange(frameID) && c.present[frameID], "clock replacer: frame id %d doesn't exist in replacer", frameID)
	common.Assert(c.evictable[frameID], "clock replacer: frame id %d is not evictable", frameID)
	c.forget(int(frameID))
}

func (c *ClockReplacer) Size() int {
	c.latch.Lock()
	defer c.latch.Unlock()
	return c.size
}

func (c *ClockReplacer) inRange(frameID FrameID) bool {
	return frameID >= 0 && int(frameID) < len(c.ref)
}

func (c *ClockReplacer) forget(idx int) {
	c.present[idx] = false
	c.evictable[idx] = false
	c.ref[idx] = false
	c.size--
}
