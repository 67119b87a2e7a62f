package disk

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novapage/internal/common"
)

type diskOp struct {
	pageID  common.PageID
	isWrite bool
}

// recordingDisk logs every call in order. gate, when set, holds each call until
// a value is received; failOn makes calls for that page fail.
type recordingDisk struct {
	mu     sync.Mutex
	ops    []diskOp
	gate   chan struct{}
	failOn map[common.PageID]error
}

func (d *recordingDisk) do(pageID common.PageID, isWrite bool) error {
	if d.gate != nil {
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, diskOp{pageID: pageID, isWrite: isWrite})
	return d.failOn[pageID]
}

func (d *recordingDisk) ReadPage(pageID common.PageID, dst []byte) error {
	return d.do(pageID, false)
}

func (d *recordingDisk) WritePage(pageID common.PageID, src []byte) error {
	return d.do(pageID, true)
}

func (d *recordingDisk) calls() []diskOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]diskOp(nil), d.ops...)
}

func TestScheduler_WriteThenRead(t *testing.T) {
	store := NewMemoryStore()
	s := NewScheduler(store)
	defer s.Shutdown()

	data := pageWith(0)
	copy(data, "A test string.")
	w := NewWriteRequest(0, data)
	buf := make([]byte, common.PageSize)
	r := NewReadRequest(0, buf)

	require.NoError(t, s.Schedule(w))
	require.NoError(t, s.Schedule(r))

	require.NoError(t, w.Done.Wait())
	require.NoError(t, r.Done.Wait())
	require.Equal(t, data, buf)
}

func TestScheduler_ExecutesInSubmissionOrder(t *testing.T) {
	disk := &recordingDisk{}
	s := NewScheduler(disk)

	const n = 200
	reqs := make([]*Request, n)
	want := make([]diskOp, n)
	for i := 0; i < n; i++ {
		id := common.PageID(i)
		if i%3 == 0 {
			reqs[i] = NewWriteRequest(id, pageWith(byte(i)))
		} else {
			reqs[i] = NewReadRequest(id, make([]byte, common.PageSize))
		}
		want[i] = diskOp{pageID: id, isWrite: reqs[i].IsWrite}
		require.NoError(t, s.Schedule(reqs[i]))
	}

	for i, r := range reqs {
		require.NoError(t, r.Done.Wait())
		// Everything up to i has reached the disk by the time i completes.
		require.GreaterOrEqual(t, len(disk.calls()), i+1)
	}
	s.Shutdown()

	require.Equal(t, want, disk.calls())
	require.Equal(t, Stats{Scheduled: n, Completed: n, Reads: n - (n+2)/3, Writes: (n + 2) / 3}, s.Stats())
}

func TestScheduler_ConcurrentProducersKeepTheirOrder(t *testing.T) {
	disk := &recordingDisk{}
	s := NewScheduler(disk)

	const (
		producers = 8
		perProd   = 50
	)
	var wg conc.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Go(func() {
			for i := 0; i < perProd; i++ {
				id := common.PageID(p*1000 + i)
				r := NewWriteRequest(id, pageWith(1))
				require.NoError(t, s.Schedule(r))
			}
		})
	}
	wg.Wait()
	s.Shutdown()

	calls := disk.calls()
	require.Len(t, calls, producers*perProd)

	last := make(map[int]int)
	for _, op := range calls {
		p, i := int(op.pageID)/1000, int(op.pageID)%1000
		prev, seen := last[p]
		if seen {
			require.Greater(t, i, prev, "producer %d out of order", p)
		}
		last[p] = i
	}
}

func TestScheduler_ShutdownWaitsForQueuedRequest(t *testing.T) {
	disk := &recordingDisk{gate: make(chan struct{})}
	s := NewScheduler(disk)

	r := NewReadRequest(7, make([]byte, common.PageSize))
	require.NoError(t, s.Schedule(r))

	stopped := make(chan struct{})
	go func() {
		s.Shutdown()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Shutdown returned while a request was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(disk.gate)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return")
	}
	require.NoError(t, r.Done.Wait())
	require.Equal(t, []diskOp{{pageID: 7}}, disk.calls())

	// Second Shutdown is a no-op.
	s.Shutdown()
}

func TestScheduler_RejectsAfterShutdown(t *testing.T) {
	s := NewScheduler(&recordingDisk{})
	s.Shutdown()

	r := NewWriteRequest(1, pageWith(1))
	require.ErrorIs(t, s.Schedule(r), ErrSchedulerClosed)
	require.ErrorIs(t, r.Done.Wait(), ErrSchedulerClosed)
	require.Zero(t, s.Stats().Scheduled)
}

func TestScheduler_PropagatesDiskErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	disk := &recordingDisk{failOn: map[common.PageID]error{2: boom}}
	s := NewScheduler(disk)
	defer s.Shutdown()

	var reqs []*Request
	for id := common.PageID(1); id <= 3; id++ {
		r := NewWriteRequest(id, pageWith(1))
		require.NoError(t, s.Schedule(r))
		reqs = append(reqs, r)
	}

	require.NoError(t, reqs[0].Done.Wait())
	require.ErrorIs(t, reqs[1].Done.Wait(), boom)
	require.NoError(t, reqs[2].Done.Wait())
	require.Equal(t, uint64(1), s.Stats().Failed)
}

func TestScheduler_StoreErrorsReachTheWaiter(t *testing.T) {
	s := NewScheduler(NewMemoryStore())
	defer s.Shutdown()

	r := NewReadRequest(0, make([]byte, 16))
	require.NoError(t, s.Schedule(r))
	require.ErrorIs(t, r.Done.Wait(), common.ErrBadPageBuffer)
}

func TestCompletion(t *testing.T) {
	t.Run("WaitBlocksUntilResolved", func(t *testing.T) {
		c := NewCompletion()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, c.WaitContext(ctx), context.DeadlineExceeded)

		c.resolve(nil)
		require.NoError(t, c.Wait())
		require.NoError(t, c.WaitContext(context.Background()))
		<-c.Done()
	})

	t.Run("ResolveTwicePanics", func(t *testing.T) {
		c := NewCompletion()
		c.resolve(fmt.Errorf("first"))
		require.Panics(t, func() { c.resolve(nil) })
		require.EqualError(t, c.Wait(), "first")
	})

	t.Run("ManyWaiters", func(t *testing.T) {
		c := NewCompletion()
		var wg conc.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Go(func() { require.NoError(t, c.Wait()) })
		}
		c.resolve(nil)
		wg.Wait()
	})
}

func TestScheduler_NilRequestIsContractViolation(t *testing.T) {
	s := NewScheduler(&recordingDisk{})
	defer s.Shutdown()

	require.Panics(t, func() { _ = s.Schedule(nil) })
	require.Panics(t, func() { _ = s.Schedule(&Request{PageID: 1}) })
	require.Panics(t, func() { NewScheduler(nil) })
}
