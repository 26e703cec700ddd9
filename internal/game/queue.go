package game

// RoundQueue is the ordered sequence of items a room plays through.
// It only ever shrinks: items are read from the head and popped after a
// round resolves. The empty queue is the signal that the experiment is done.
type RoundQueue struct {
	items []GameItem
}

func NewRoundQueue(items []GameItem) *RoundQueue {
	q := &RoundQueue{items: make([]GameItem, len(items))}
	copy(q.items, items)
	return q
}

// PeekHead returns the current item without consuming it, so a round can be
// re-presented after a reconnect. The second return is false when the queue
// is exhausted.
func (q *RoundQueue) PeekHead() (GameItem, bool) {
	if len(q.items) == 0 {
		return GameItem{}, false
	}
	return q.items[0], true
}

// PopFront drops the head item. Popping an empty queue is a no-op and
// returns false.
func (q *RoundQueue) PopFront() bool {
	if len(q.items) == 0 {
		return false
	}
	q.items = q.items[1:]
	return true
}

func (q *RoundQueue) Remaining() int { return len(q.items) }

func (q *RoundQueue) IsExhausted() bool { return len(q.items) == 0 }
