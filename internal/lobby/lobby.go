package lobby

import (
	"sync"

	"muuzah/internal/engine"
)

// Queue pairs waiting players first come, first served.
type Queue struct {
	mu      sync.Mutex
	waiting []engine.Identity
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Join adds p to the queue. If another player is already waiting the two are
// paired: the waiting player is removed and returned with matched set.
// Joining twice keeps the first position and updates the name.
func (q *Queue) Join(p engine.Identity) (opponent engine.Identity, matched bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiting {
		if w.ID == p.ID {
			q.waiting[i].Name = p.Name // allow reconnect with new name
			return engine.Identity{}, false
		}
	}
	if len(q.waiting) > 0 {
		opponent = q.waiting[0]
		q.waiting = q.waiting[1:]
		return opponent, true
	}
	q.waiting = append(q.waiting, p)
	return engine.Identity{}, false
}

// Leave removes a player from the queue. It reports whether they were waiting.
func (q *Queue) Leave(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiting {
		if w.ID == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of waiting players.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Waiting returns a copy of the queue in pairing order.
func (q *Queue) Waiting() []engine.Identity {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]engine.Identity, len(q.waiting))
	copy(out, q.waiting)
	return out
}
