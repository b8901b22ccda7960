package tilecache

// lruList is an intrusive doubly-linked list of entries ordered by last
// use. The head is the most recently used entry, the tail the least.
// It is not thread-safe; the cache mutex guards it.
type lruList struct {
	head *entry
	tail *entry
	len  int
}

// Len returns the number of entries in the list.
func (l *lruList) Len() int {
	return l.len
}

// PushFront inserts e as the most recently used entry.
func (l *lruList) PushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
	l.len++
}

// MoveToFront marks e as the most recently used entry.
func (l *lruList) MoveToFront(e *entry) {
	if e == l.head {
		return
	}
	l.unlink(e)
	l.PushFront(e)
}

// Remove takes e out of the list.
func (l *lruList) Remove(e *entry) {
	l.unlink(e)
}

// Back returns the least recently used entry, or nil.
func (l *lruList) Back() *entry {
	return l.tail
}

func (l *lruList) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}

	e.prev = nil
	e.next = nil
	l.len--
}
