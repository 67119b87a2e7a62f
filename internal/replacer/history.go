package replacer

// history holds the k most recent access timestamps of a frame, oldest first.
type history struct {
	ts    []uint64
	start int
	n     int
}

func newHistory(k int) history {
	return history{ts: make([]uint64, k)}
}

func (h *history) push(ts uint64) {
	if h.n == len(h.ts) {
		h.ts[h.start] = ts
		h.start = (h.start + 1) % len(h.ts)
		return
	}
	h.ts[(h.start+h.n)%len(h.ts)] = ts
	h.n++
}

func (h *history) full() bool { return h.n == len(h.ts) }

func (h *history) len() int { return h.n }

func (h *history) earliest() uint64 { return h.ts[h.start] }

func (h *history) latest() uint64 { return h.ts[(h.start+h.n-1)%len(h.ts)] }
