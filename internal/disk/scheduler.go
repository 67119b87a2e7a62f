package disk

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"

	"github.com/tuannm99/novapage/internal/common"
)

var ErrSchedulerClosed = errors.New("disk scheduler: shut down")

// task is what travels through the request queue: either work or the stop marker.
type task struct {
	stop bool
	req  *Request
}

type Stats struct {
	Scheduled uint64
	Completed uint64
	Failed    uint64
	Reads     uint64
	Writes    uint64
}

// Scheduler executes page requests on one background worker in submission order.
type Scheduler struct {
	disk PageIO
	log  logrus.FieldLogger

	queue  *Channel[task]
	worker conc.WaitGroup

	mu           sync.RWMutex // orders Schedule against the stop marker
	closing      bool
	shutdownOnce sync.Once

	scheduled atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	reads     atomic.Uint64
	writes    atomic.Uint64
}

// NewScheduler starts the worker immediately. Call Shutdown to stop it.
func NewScheduler(disk PageIO, opts ...Option) *Scheduler {
	common.Assert(disk != nil, "disk scheduler: nil page io")
	o := buildOptions(opts)

	s := &Scheduler{
		disk:  disk,
		log:   o.logger.WithField("component", "disk_scheduler"),
		queue: NewChannel[task](),
	}
	s.worker.Go(s.run)
	return s
}

// Schedule enqueues r and returns without waiting for the I/O. After Shutdown
// has begun r is rejected and its completion resolves to ErrSchedulerClosed.
func (s *Scheduler) Schedule(r *Request) error {
	common.Assert(r != nil && r.Done != nil, "disk scheduler: request without completion")

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closing {
		r.Done.resolve(ErrSchedulerClosed)
		return ErrSchedulerClosed
	}
	s.scheduled.Inc()
	s.queue.Put(task{req: r})
	return nil
}

// Shutdown queues the stop marker behind every accepted request and blocks
// until the worker has drained them and exited. Safe to call more than once.
func (s *Scheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.queue.Put(task{stop: true})
		s.mu.Unlock()
	})
	s.worker.Wait()
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Scheduled: s.scheduled.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Reads:     s.reads.Load(),
		Writes:    s.writes.Load(),
	}
}

func (s *Scheduler) run() {
	s.log.Debug("worker started")
	for {
		t := s.queue.Get()
		if t.stop {
			s.log.WithField("completed", s.completed.Load()).Debug("worker stopped")
			return
		}
		s.execute(t.req)
	}
}

func (s *Scheduler) execute(r *Request) {
	var err error
	if r.IsWrite {
		err = s.disk.WritePage(r.PageID, r.Data)
		s.writes.Inc()
	} else {
		err = s.disk.ReadPage(r.PageID, r.Data)
		s.reads.Inc()
	}

	if err != nil {
		s.failed.Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"page_id":  r.PageID,
			"is_write": r.IsWrite,
		}).Warn("disk request failed")
	}
	s.completed.Inc()
	r.Done.resolve(err)
}
