package wheel

// queue is the intrusive doubly linked FIFO backing one wheel bucket. Tasks
// carry the links themselves, so link and unlink are O(1) with no allocation.
// A queue has no identity beyond the slot it occupies; slots are populated
// lazily on first insertion.
//
// Firing order within a bucket is insertion order, so tasks due at the same
// tick fire in the order they were registered.
type queue struct {
	head, tail *Task
	size       int
}

// linkLast appends t at the tail and records this queue as t's owner.
func (q *queue) linkLast(t *Task) {
	t.q = q
	if q.tail == nil {
		q.head = t
		q.tail = t
	} else {
		t.prev = q.tail
		q.tail.next = t
		q.tail = t
	}
	q.size++
}

// peek returns the head without removing it, or nil when empty.
func (q *queue) peek() *Task { return q.head }

// unlink removes t from anywhere in the list, patching neighbors and
// head/tail as needed. t's link fields and owner reference are cleared so no
// stale ownership is retained.
func (q *queue) unlink(t *Task) {
	prev, next := t.prev, t.next
	if prev == nil {
		q.head = next
	} else {
		prev.next = next
		t.prev = nil
	}
	if next == nil {
		q.tail = prev
	} else {
		next.prev = prev
		t.next = nil
	}
	t.q = nil
	q.size--
}

// unlinkFirst pops the head. The draining path uses it after peek, when the
// head is already in hand.
func (q *queue) unlinkFirst() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	next := t.next
	q.head = next
	if next == nil {
		q.tail = nil
	} else {
		next.prev = nil
		t.next = nil
	}
	t.q = nil
	q.size--
	return t
}
