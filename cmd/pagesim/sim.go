package main

import (
	"context"
	"encoding/binary"
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"

	"github.com/tuannm99/novapage/internal/common"
	"github.com/tuannm99/novapage/internal/disk"
	"github.com/tuannm99/novapage/internal/replacer"
)

// frame is one buffer slot. pageID, dirty and pins are guarded by Simulator.latch;
// data is guarded by the frame latch while pinned and by Simulator.latch otherwise.
type frame struct {
	latch  common.Latch
	pageID common.PageID
	data   []byte
	dirty  bool
	pins   int
}

type Report struct {
	Accesses   uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Scheduler  disk.Stats
}

func (r Report) HitRatio() float64 {
	if r.Accesses == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Accesses)
}

// Simulator is a minimal buffer pool: a page table over a fixed set of frames,
// with victims chosen by a replacer and all I/O going through the scheduler.
type Simulator struct {
	log       logrus.FieldLogger
	replacer  replacer.Replacer
	scheduler *disk.Scheduler

	latch     common.Latch
	frames    []*frame
	pageTable map[common.PageID]replacer.FrameID
	free      []replacer.FrameID

	accesses   atomic.Uint64
	writes     atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	writeBacks atomic.Uint64
}

func NewSimulator(r replacer.Replacer, s *disk.Scheduler, frames int, log logrus.FieldLogger) *Simulator {
	common.Assert(frames > 0, "pagesim: frames must be positive, got %d", frames)

	sim := &Simulator{
		log:       log,
		replacer:  r,
		scheduler: s,
		frames:    make([]*frame, frames),
		pageTable: make(map[common.PageID]replacer.FrameID, frames),
		free:      make([]replacer.FrameID, 0, frames),
	}
	for i := 0; i < frames; i++ {
		sim.frames[i] = &frame{pageID: common.InvalidPageID, data: make([]byte, common.PageSize)}
		sim.free = append(sim.free, replacer.FrameID(frames-1-i))
	}
	return sim
}

// Access touches pageID, faulting it in if needed. A write bumps the counter kept
// in the first eight bytes of the page.
func (s *Simulator) Access(pageID common.PageID, write bool, at replacer.AccessType) error {
	fid, err := s.pin(pageID, at)
	if err != nil {
		return err
	}

	f := s.frames[fid]
	if write {
		s.writes.Inc()
		f.latch.Lock()
		binary.LittleEndian.PutUint64(f.data, binary.LittleEndian.Uint64(f.data)+1)
		f.latch.Unlock()
	}

	s.unpin(fid, write)
	return nil
}

func (s *Simulator) pin(pageID common.PageID, at replacer.AccessType) (replacer.FrameID, error) {
	s.accesses.Inc()
	for {
		s.latch.Lock()
		if fid, ok := s.pageTable[pageID]; ok {
			s.hits.Inc()
			s.pinLocked(fid, at)
			s.latch.Unlock()
			return fid, nil
		}

		fid, ok, err := s.victimLocked()
		if err != nil {
			s.latch.Unlock()
			return replacer.InvalidFrameID, err
		}
		if !ok {
			// Every frame is pinned by another worker.
			s.latch.Unlock()
			runtime.Gosched()
			continue
		}

		f := s.frames[fid]
		r := disk.NewReadRequest(pageID, f.data)
		if err := s.submit(r); err != nil {
			s.free = append(s.free, fid)
			s.latch.Unlock()
			return replacer.InvalidFrameID, errors.Wrapf(err, "fault in page %d", pageID)
		}
		s.misses.Inc()
		f.pageID = pageID
		s.pageTable[pageID] = fid
		s.pinLocked(fid, at)
		s.latch.Unlock()
		return fid, nil
	}
}

func (s *Simulator) pinLocked(fid replacer.FrameID, at replacer.AccessType) {
	s.frames[fid].pins++
	s.replacer.RecordAccess(fid, at)
	s.replacer.SetEvictable(fid, false)
}

func (s *Simulator) unpin(fid replacer.FrameID, dirty bool) {
	s.latch.Lock()
	defer s.latch.Unlock()

	f := s.frames[fid]
	common.Assert(f.pins > 0, "pagesim: unpin of unpinned frame %d", fid)
	f.pins--
	f.dirty = f.dirty || dirty
	if f.pins == 0 {
		s.replacer.SetEvictable(fid, true)
	}
}

// victimLocked returns an empty frame, taking one from the free list or evicting
// and writing back a resident page.
func (s *Simulator) victimLocked() (replacer.FrameID, bool, error) {
	if n := len(s.free); n > 0 {
		fid := s.free[n-1]
		s.free = s.free[:n-1]
		return fid, true, nil
	}

	fid, ok := s.replacer.Evict()
	if !ok {
		return replacer.InvalidFrameID, false, nil
	}
	s.evictions.Inc()

	f := s.frames[fid]
	common.Assert(f.pins == 0, "pagesim: replacer evicted pinned frame %d", fid)
	if err := s.writeBackLocked(f); err != nil {
		// The page stays resident, so the frame must stay tracked.
		s.replacer.RecordAccess(fid, replacer.AccessUnknown)
		s.replacer.SetEvictable(fid, true)
		return replacer.InvalidFrameID, false, err
	}
	delete(s.pageTable, f.pageID)
	s.log.WithFields(logrus.Fields{"frame_id": fid, "page_id": f.pageID}).Trace("evicted")
	f.pageID = common.InvalidPageID
	return fid, true, nil
}

func (s *Simulator) writeBackLocked(f *frame) error {
	if !f.dirty {
		return nil
	}
	if err := s.submit(disk.NewWriteRequest(f.pageID, f.data)); err != nil {
		return errors.Wrapf(err, "write back page %d", f.pageID)
	}
	f.dirty = false
	s.writeBacks.Inc()
	return nil
}

func (s *Simulator) submit(r *disk.Request) error {
	if err := s.scheduler.Schedule(r); err != nil {
		return err
	}
	return r.Done.Wait()
}

// FlushAll writes back every dirty unpinned page and releases its frame.
func (s *Simulator) FlushAll() error {
	s.latch.Lock()
	defer s.latch.Unlock()

	for pageID, fid := range s.pageTable {
		f := s.frames[fid]
		if f.pins > 0 {
			continue
		}
		if err := s.writeBackLocked(f); err != nil {
			return err
		}
		s.replacer.Remove(fid)
		delete(s.pageTable, pageID)
		f.pageID = common.InvalidPageID
		s.free = append(s.free, fid)
	}
	return nil
}

func (s *Simulator) Report() Report {
	return Report{
		Accesses:   s.accesses.Load(),
		Writes:     s.writes.Load(),
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Evictions:  s.evictions.Load(),
		WriteBacks: s.writeBacks.Load(),
		Scheduler:  s.scheduler.Stats(),
	}
}

type Workload struct {
	Pages      int
	Accesses   int
	Workers    int
	Skew       float64
	WriteRatio float64
	Seed       int64
}

// Run splits the workload across workers, each drawing Zipf-distributed page ids
// from its own source. The first failing worker cancels the rest.
func (s *Simulator) Run(ctx context.Context, w Workload) error {
	common.Assert(w.Pages > 0 && w.Workers > 0, "pagesim: workload needs pages and workers")

	p := pool.New().
		WithMaxGoroutines(w.Workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for worker := 0; worker < w.Workers; worker++ {
		worker := worker
		n := w.Accesses / w.Workers
		if worker < w.Accesses%w.Workers {
			n++
		}
		p.Go(func(ctx context.Context) error {
			rng := rand.New(rand.NewSource(w.Seed + int64(worker)))
			zipf := rand.NewZipf(rng, w.Skew, 1, uint64(w.Pages-1))
			for i := 0; i < n; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				pageID := common.PageID(zipf.Uint64())
				write := rng.Float64() < w.WriteRatio
				at := replacer.AccessLookup
				if !write && rng.Intn(8) == 0 {
					at = replacer.AccessScan
				}
				if err := s.Access(pageID, write, at); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return p.Wait()
}
