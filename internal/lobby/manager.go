package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"muuzah/internal/engine"
)

// Pairing is two players assigned to one match. Players[0] plays first.
type Pairing struct {
	ID        string
	Players   [2]engine.Identity
	CreatedAt time.Time
}

// Slot returns 1 or 2 for a paired player, 0 otherwise.
func (p Pairing) Slot(playerID string) int {
	for i, id := range p.Players {
		if id.ID == playerID {
			return i + 1
		}
	}
	return 0
}

// Opponent returns the other player of the pairing.
func (p Pairing) Opponent(playerID string) engine.Identity {
	if p.Players[0].ID == playerID {
		return p.Players[1]
	}
	return p.Players[0]
}

// Manager owns the waiting queue and the registry of active pairings.
type Manager struct {
	mu       sync.Mutex
	queue    *Queue
	pairings map[string]*Pairing
	byPlayer map[string]string // player ID -> pairing ID
}

func NewManager() *Manager {
	return &Manager{
		queue:    NewQueue(),
		pairings: make(map[string]*Pairing),
		byPlayer: make(map[string]string),
	}
}

// FindMatch queues p. It returns the new pairing once an opponent is
// available, with the earlier arrival as player 1. A player that already has
// an active pairing gets it back instead of being queued again.
func (m *Manager) FindMatch(p engine.Identity) (*Pairing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPlayer[p.ID]; ok {
		return m.pairings[id], true
	}
	opp, matched := m.queue.Join(p)
	if !matched {
		return nil, false
	}
	pr := &Pairing{
		ID:        generateID(),
		Players:   [2]engine.Identity{opp, p},
		CreatedAt: time.Now().UTC(),
	}
	m.pairings[pr.ID] = pr
	m.byPlayer[opp.ID] = pr.ID
	m.byPlayer[p.ID] = pr.ID
	return pr, true
}

// Cancel takes a player out of the waiting queue.
func (m *Manager) Cancel(playerID string) bool {
	return m.queue.Leave(playerID)
}

// Get returns a pairing by ID.
func (m *Manager) Get(id string) *Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairings[id]
}

// PairingOf returns the active pairing of a player, if any.
func (m *Manager) PairingOf(playerID string) *Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPlayer[playerID]; ok {
		return m.pairings[id]
	}
	return nil
}

// Release forgets a finished pairing and frees both players so they can
// queue again.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pr, ok := m.pairings[id]
	if !ok {
		return
	}
	for _, p := range pr.Players {
		if m.byPlayer[p.ID] == id {
			delete(m.byPlayer, p.ID)
		}
	}
	delete(m.pairings, id)
}

// Active returns the number of pairings not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pairings)
}

// Waiting returns the number of queued players.
func (m *Manager) Waiting() int {
	return m.queue.Len()
}

func generateID() string {
	return uuid.NewString()
}
