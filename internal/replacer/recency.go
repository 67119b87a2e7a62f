package replacer

const nilIdx = -1

// recencyList is a most-recently-used ordered list of frame ids kept in dense
// prev/next arrays indexed by frame id, so a record's position never dangles.
type recencyList struct {
	prev   []int
	next   []int
	linked []bool
	head   int // most recent
	tail   int // least recent
	size   int
}

func newRecencyList(capacity int) *recencyList {
	l := &recencyList{
		prev:   make([]int, capacity),
		next:   make([]int, capacity),
		linked: make([]bool, capacity),
		head:   nilIdx,
		tail:   nilIdx,
	}
	for i := 0; i < capacity; i++ {
		l.prev[i] = nilIdx
		l.next[i] = nilIdx
	}
	return l
}

func (l *recencyList) contains(id int) bool { return l.linked[id] }

func (l *recencyList) len() int { return l.size }

func (l *recencyList) pushFront(id int) {
	l.prev[id] = nilIdx
	l.next[id] = l.head
	if l.head != nilIdx {
		l.prev[l.head] = id
	}
	l.head = id
	if l.tail == nilIdx {
		l.tail = id
	}
	l.linked[id] = true
	l.size++
}

func (l *recencyList) unlink(id int) {
	if !l.linked[id] {
		return
	}
	prev, next := l.prev[id], l.next[id]
	if prev == nilIdx {
		l.head = next
	} else {
		l.next[prev] = next
	}
	if next == nilIdx {
		l.tail = prev
	} else {
		l.prev[next] = prev
	}
	l.prev[id] = nilIdx
	l.next[id] = nilIdx
	l.linked[id] = false
	l.size--
}

func (l *recencyList) moveToFront(id int) {
	if l.head == id {
		return
	}
	l.unlink(id)
	l.pushFront(id)
}

// each walks from most to least recent until fn returns false.
func (l *recencyList) each(fn func(id int) bool) {
	for cur := l.head; cur != nilIdx; cur = l.next[cur] {
		if !fn(cur) {
			return
		}
	}
}
