package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tuannm99/novapage/internal/common"
)

var _ PageStore = (*FileStore)(nil)

// FileStore maps a logical page id to (segment, offset) inside a local directory.
// Segments are stored as: Base, Base.1, Base.2, ...
type FileStore struct {
	dir             string
	base            string
	pagesPerSegment int
	log             logrus.FieldLogger

	latch    common.Latch
	segments map[int32]*os.File
	closed   bool

	nextPageID atomic.Int32
	reads      atomic.Uint64
	writes     atomic.Uint64
}

// OpenFileStore creates dir if needed and resumes page allocation after the
// pages already present on disk.
func OpenFileStore(dir, base string, opts ...Option) (*FileStore, error) {
	o := buildOptions(opts)
	if err := os.MkdirAll(dir, common.FileMode0755); err != nil {
		return nil, errors.Wrapf(err, "create store dir %s", dir)
	}

	fs := &FileStore{
		dir:             dir,
		base:            base,
		pagesPerSegment: o.pagesPerSegment,
		log:             o.logger.WithField("store", filepath.Join(dir, base)),
		segments:        make(map[int32]*os.File),
	}

	n, err := fs.countPages()
	if err != nil {
		return nil, err
	}
	fs.nextPageID.Store(int32(n))
	fs.log.WithField("pages", n).Debug("file store opened")
	return fs, nil
}

func (fs *FileStore) segmentPath(segNo int32) string {
	name := fs.base
	if segNo > 0 {
		name = fmt.Sprintf("%s.%d", fs.base, segNo)
	}
	return filepath.Join(fs.dir, name)
}

func (fs *FileStore) locate(pageID common.PageID) (segNo int32, offset int64) {
	pps := int32(fs.pagesPerSegment)
	segNo = int32(pageID) / pps
	offset = int64(int32(pageID)%pps) * common.PageSize
	return segNo, offset
}

// segment returns the open handle for segNo, opening it on first use.
func (fs *FileStore) segment(segNo int32) (*os.File, error) {
	fs.latch.Lock()
	defer fs.latch.Unlock()

	if fs.closed {
		return nil, common.ErrStoreClosed
	}
	if f, ok := fs.segments[segNo]; ok {
		return f, nil
	}
	// RDWR | CREATE (no truncate)
	f, err := os.OpenFile(fs.segmentPath(segNo), os.O_RDWR|os.O_CREATE, common.FileMode0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open segment %d", segNo)
	}
	fs.segments[segNo] = f
	return f, nil
}

// ReadPage reads exactly one page into dst. Bytes past the end of the segment
// read as zero, so pages allocated but never written come back empty.
func (fs *FileStore) ReadPage(pageID common.PageID, dst []byte) error {
	if err := checkPage(pageID, dst); err != nil {
		return err
	}
	segNo, off := fs.locate(pageID)
	f, err := fs.segment(segNo)
	if err != nil {
		return err
	}

	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "read page %d", pageID)
	}
	clear(dst[n:])
	fs.reads.Inc()
	return nil
}

// WritePage writes exactly one page from src at the location of pageID.
func (fs *FileStore) WritePage(pageID common.PageID, src []byte) error {
	if err := checkPage(pageID, src); err != nil {
		return err
	}
	segNo, off := fs.locate(pageID)
	f, err := fs.segment(segNo)
	if err != nil {
		return err
	}

	n, err := f.WriteAt(src, off)
	if err != nil {
		return errors.Wrapf(err, "write page %d", pageID)
	}
	if n != common.PageSize {
		return errors.Wrapf(io.ErrShortWrite, "write page %d", pageID)
	}
	fs.writes.Inc()
	return nil
}

// AllocatePage hands out the next page id; the page materialises on first write.
func (fs *FileStore) AllocatePage() common.PageID {
	return common.PageID(fs.nextPageID.Inc() - 1)
}

func (fs *FileStore) NumReads() uint64 { return fs.reads.Load() }

func (fs *FileStore) NumWrites() uint64 { return fs.writes.Load() }

// Close syncs and closes every open segment. It is idempotent.
func (fs *FileStore) Close() error {
	fs.latch.Lock()
	defer fs.latch.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	var err error
	for segNo, f := range fs.segments {
		if e := f.Sync(); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "sync segment %d", segNo))
		}
		if e := f.Close(); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "close segment %d", segNo))
		}
	}
	fs.segments = nil
	fs.log.Debug("file store closed")
	return err
}

// countPages scans Base, Base.1, ... until a segment is missing.
func (fs *FileStore) countPages() (int64, error) {
	var total int64
	for segNo := int32(0); ; segNo++ {
		info, err := os.Stat(fs.segmentPath(segNo))
		if err != nil {
			if os.IsNotExist(err) {
				return total, nil
			}
			return 0, errors.Wrapf(err, "stat segment %d", segNo)
		}
		pages := (info.Size() + common.PageSize - 1) / common.PageSize
		total = int64(segNo)*int64(fs.pagesPerSegment) + pages
	}
}
