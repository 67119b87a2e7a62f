package replacer

import (
	"math"

	"github.com/tuannm99/novapage/internal/common"
)

const infDistance = math.MaxUint64

var _ Replacer = (*LRUKReplacer)(nil)

type accessRecord struct {
	history   history
	evictable bool
}

// evictionScore orders candidates; the smallest score is evicted.
type evictionScore struct {
	distance uint64 // backward k-distance, infDistance with fewer than k accesses
	earliest uint64
}

func (s evictionScore) less(o evictionScore) bool {
	if s.distance != o.distance {
		return s.distance > o.distance
	}
	return s.earliest < o.earliest
}

// LRUKReplacer evicts the frame whose k-th most recent access lies furthest in the past.
//
// Frames with fewer than k recorded accesses have an infinite backward k-distance and
// are reclaimed first, oldest first. Every method holds the same exclusive latch.
type LRUKReplacer struct {
	latch common.Latch

	capacity int
	k        int

	records []*accessRecord // index is FrameID, nil == untracked
	recency *recencyList

	currentTimestamp uint64
	evictableCount   int
}

// NewLRUKReplacer tracks frames [0, capacity) keeping k timestamps per frame.
func NewLRUKReplacer(capacity, k int) *LRUKReplacer {
	common.Assert(capacity > 0, "lru-k replacer: capacity must be positive, got %d", capacity)
	common.Assert(k > 0, "lru-k replacer: k must be positive, got %d", k)

	return &LRUKReplacer{
		capacity: capacity,
		k:        k,
		records:  make([]*accessRecord, capacity),
		recency:  newRecencyList(capacity),
	}
}

func (r *LRUKReplacer) Capacity() int { return r.capacity }

func (r *LRUKReplacer) K() int { return r.k }

// RecordAccess appends the next logical timestamp to frameID's history.
func (r *LRUKReplacer) RecordAccess(frameID FrameID, _ AccessType) {
	r.latch.Lock()
	defer r.latch.Unlock()

	common.Assert(r.inRange(frameID), "lru-k replacer: frame id %d out of range [0, %d)", frameID, r.capacity)

	ts := r.currentTimestamp
	r.currentTimestamp++

	rec := r.records[frameID]
	if rec == nil {
		rec = &accessRecord{history: newHistory(r.k)}
		rec.history.push(ts)
		r.records[frameID] = rec
		r.recency.pushFront(int(frameID))
		return
	}

	rec.history.push(ts)
	r.recency.moveToFront(int(frameID))
}

// Evict removes and returns the evictable frame with the smallest eviction score.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.latch.Lock()
	defer r.latch.Unlock()

	if r.evictableCount == 0 {
		return InvalidFrameID, false
	}

	victim := InvalidFrameID
	best := evictionScore{distance: 0, earliest: math.MaxUint64}
	r.recency.each(func(id int) bool {
		rec := r.records[id]
		if !rec.evictable {
			return true
		}
		if score := r.scoreOf(rec); victim == InvalidFrameID || score.less(best) {
			best = score
			victim = FrameID(id)
		}
		return true
	})

	common.Assert(victim != InvalidFrameID, "lru-k replacer: %d evictable frames counted but none tracked", r.evictableCount)
	r.drop(victim)
	return victim, true
}

// SetEvictable flips frameID's evictable flag and keeps the evictable count in step.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.latch.Lock()
	defer r.latch.Unlock()

	if !r.inRange(frameID) {
		return
	}
	rec := r.records[frameID]
	if rec == nil || rec.evictable == evictable {
		return
	}

	rec.evictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
}

// Remove discards the history of an evictable frame chosen by the caller.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.latch.Lock()
	defer r.latch.Unlock()

	common.Assert(r.inRange(frameID) && r.records[frameID] != nil, "lru-k replacer: frame id %d doesn't exist in replacer", frameID)
	common.Assert(r.records[frameID].evictable, "lru-k replacer: frame id %d is not evictable", frameID)

	r.drop(frameID)
}

// Size returns the number of evictable frames.
func (r *LRUKReplacer) Size() int {
	r.latch.Lock()
	defer r.latch.Unlock()
	return r.evictableCount
}

func (r *LRUKReplacer) inRange(frameID FrameID) bool {
	return frameID >= 0 && int(frameID) < r.capacity
}

func (r *LRUKReplacer) scoreOf(rec *accessRecord) evictionScore {
	score := evictionScore{distance: infDistance, earliest: rec.history.earliest()}
	if rec.history.full() {
		score.distance = rec.history.latest() - rec.history.earliest()
	}
	return score
}

// drop forgets an evictable frame. Caller holds the latch.
func (r *LRUKReplacer) drop(frameID FrameID) {
	r.recency.unlink(int(frameID))
	r.records[frameID] = nil
	r.evictableCount--
}
