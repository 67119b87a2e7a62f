// Package disk holds the synchronous page stores and the asynchronous scheduler
// that runs their I/O on a single background worker.
package disk

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tuannm99/novapage/internal/common"
)

// PageIO is the blocking collaborator the scheduler drives.
type PageIO interface {
	// ReadPage fills dst (exactly common.PageSize bytes) with the page contents.
	ReadPage(pageID common.PageID, dst []byte) error
	// WritePage persists src (exactly common.PageSize bytes).
	WritePage(pageID common.PageID, src []byte) error
}

// PageStore is a PageIO that also hands out page ids and owns its resources.
type PageStore interface {
	PageIO
	AllocatePage() common.PageID
	NumReads() uint64
	NumWrites() uint64
	Close() error
}

type Mode string

const (
	ModeFile   Mode = "file"
	ModeMemory Mode = "memory"
)

var ErrUnknownMode = errors.New("disk: unknown store mode")

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFile:
		return ModeFile, nil
	case ModeMemory, "mem":
		return ModeMemory, nil
	default:
		return "", errors.Wrapf(ErrUnknownMode, "%q", s)
	}
}

// OpenStore opens the page store for mode. dir and base are only used by ModeFile.
func OpenStore(mode Mode, dir, base string, opts ...Option) (PageStore, error) {
	switch mode {
	case ModeFile:
		return OpenFileStore(dir, base, opts...)
	case ModeMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", mode)
	}
}

type options struct {
	logger          logrus.FieldLogger
	pagesPerSegment int
}

type Option func(*options)

// WithLogger routes store and scheduler logs to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPagesPerSegment caps how many pages a single file segment holds.
func WithPagesPerSegment(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pagesPerSegment = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:          discardLogger(),
		pagesPerSegment: common.MaxPagePerSegment,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func checkPage(pageID common.PageID, buf []byte) error {
	if pageID < 0 {
		return errors.Wrapf(common.ErrInvalidPageID, "page %d", pageID)
	}
	if len(buf) != common.PageSize {
		return errors.Wrapf(common.ErrBadPageBuffer, "got %d bytes", len(buf))
	}
	return nil
}
