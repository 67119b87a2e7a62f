package disk

import (
	"io"

	"github.com/dsnet/golib/memfile"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/tuannm99/novapage/internal/common"
)

var _ PageStore = (*MemoryStore)(nil)

// MemoryStore keeps pages in an in-memory file. Used by tests and by the
// simulator when no durable storage is wanted.
type MemoryStore struct {
	log logrus.FieldLogger

	latch  common.Latch
	db     *memfile.File
	closed bool

	nextPageID atomic.Int32
	reads      atomic.Uint64
	writes     atomic.Uint64
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		log: o.logger.WithField("store", "memory"),
		db:  memfile.New(make([]byte, 0)),
	}
}

func (m *MemoryStore) ReadPage(pageID common.PageID, dst []byte) error {
	if err := checkPage(pageID, dst); err != nil {
		return err
	}

	m.latch.Lock()
	defer m.latch.Unlock()

	if m.closed {
		return common.ErrStoreClosed
	}
	off := int64(pageID) * common.PageSize
	n := 0
	if off < int64(len(m.db.Bytes())) {
		var err error
		n, err = m.db.ReadAt(dst, off)
		if err != nil && err != io.EOF {
			return errors.Wrapf(err, "read page %d", pageID)
		}
	}
	clear(dst[n:])
	m.reads.Inc()
	return nil
}

func (m *MemoryStore) WritePage(pageID common.PageID, src []byte) error {
	if err := checkPage(pageID, src); err != nil {
		return err
	}

	m.latch.Lock()
	defer m.latch.Unlock()

	if m.closed {
		return common.ErrStoreClosed
	}
	if _, err := m.db.WriteAt(src, int64(pageID)*common.PageSize); err != nil {
		return errors.Wrapf(err, "write page %d", pageID)
	}
	m.writes.Inc()
	return nil
}

func (m *MemoryStore) AllocatePage() common.PageID {
	return common.PageID(m.nextPageID.Inc() - 1)
}

func (m *MemoryStore) NumReads() uint64 { return m.reads.Load() }

func (m *MemoryStore) NumWrites() uint64 { return m.writes.Load() }

// Size is the number of bytes currently backing the store.
func (m *MemoryStore) Size() int64 {
	m.latch.Lock()
	defer m.latch.Unlock()
	return int64(len(m.db.Bytes()))
}

func (m *MemoryStore) Close() error {
	m.latch.Lock()
	defer m.latch.Unlock()
	m.closed = true
	m.log.WithField("bytes", len(m.db.Bytes())).Debug("memory store closed")
	return nil
}
