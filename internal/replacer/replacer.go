// Package replacer decides which buffer frames may be reclaimed under memory pressure.
//
// A replacer only tracks frame ids handed to it by the buffer pool manager. It knows
// nothing about page contents or disk I/O.
package replacer

import (
	"strings"

	"github.com/pkg/errors"
)

// FrameID indexes a fixed-size array of buffer frames, 0 <= id < capacity.
type FrameID int

const InvalidFrameID FrameID = -1

// AccessType classifies a frame access. Policies in this package accept it but
// score every access the same way.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

func (a AccessType) String() string {
	switch a {
	case AccessLookup:
		return "lookup"
	case AccessScan:
		return "scan"
	case AccessIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Replacer is the contract the buffer pool manager calls on every page fault and unpin.
type Replacer interface {
	// RecordAccess notes an access to frameID, starting to track it if needed.
	// An out-of-range frame id is a caller bug and panics.
	RecordAccess(frameID FrameID, accessType AccessType)
	// SetEvictable toggles whether frameID may be chosen as a victim.
	// Unknown frames are ignored.
	SetEvictable(frameID FrameID, evictable bool)
	// Evict picks a victim and stops tracking it. ok is false when nothing is evictable.
	Evict() (frameID FrameID, ok bool)
	// Remove stops tracking an evictable frame. Unknown or pinned frames panic.
	Remove(frameID FrameID)
	// Size is the number of evictable frames.
	Size() int
}

type Policy string

const (
	PolicyLRUK  Policy = "lru-k"
	PolicyClock Policy = "clock"
)

var ErrUnknownPolicy = errors.New("replacer: unknown policy")

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyLRUK, "lruk":
		return PolicyLRUK, nil
	case PolicyClock:
		return PolicyClock, nil
	default:
		return "", errors.Wrapf(ErrUnknownPolicy, "%q", s)
	}
}

// New builds the replacer for policy. k is ignored by the clock policy.
func New(policy Policy, capacity, k int) (Replacer, error) {
	switch policy {
	case PolicyLRUK:
		return NewLRUKReplacer(capacity, k), nil
	case PolicyClock:
		return NewClockReplacer(capacity), nil
	default:
		return nil, errors.Wrapf(ErrUnknownPolicy, "%q", policy)
	}
}
