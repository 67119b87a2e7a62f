package common

import (
	"github.com/pkg/errors"
)

const (
	OneKB = 1024
	OneMB = OneKB * 1024
	OneGB = OneMB * 1024

	PageSize = OneKB * 8

	// SegmentSize bounds a single data file; pages past it spill into base.1, base.2, ...
	SegmentSize       = OneGB
	MaxPagePerSegment = SegmentSize / PageSize
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// PageID is a logical page number on disk.
type PageID int32

const InvalidPageID PageID = -1

var (
	// ErrContractViolation is the cause of every panic raised by Assert.
	ErrContractViolation = errors.New("contract violation")

	ErrInvalidPageID   = errors.New("storage: invalid page id")
	ErrBadPageBuffer   = errors.New("storage: page buffer must be exactly PageSize bytes")
	ErrStoreClosed     = errors.New("storage: page store is closed")
)
