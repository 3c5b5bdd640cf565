package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"muuzah/internal/engine"
	"muuzah/internal/leaderboard"
	"muuzah/internal/protocol"
)

const recordTimeout = 5 * time.Second

// Hub owns one match. All mutations happen on the Run goroutine, one
// message at a time. Run returns once the match is over.
type Hub struct {
	mu       sync.Mutex // guards match for readers outside Run
	match    *engine.Match
	recorded bool

	board    *leaderboard.Service
	onFinish func(final *engine.Match)
	log      *logrus.Entry

	clients    map[string]*Client // player ID -> current connection
	register   chan *Client
	unregister chan *Client
	incoming   chan IncomingMessage
	quit       chan struct{}
	stopOnce   sync.Once

	stopMu  sync.RWMutex // held by senders while they queue
	stopped bool
}

func NewHub(match *engine.Match, board *leaderboard.Service, onFinish func(*engine.Match), log *logrus.Entry) *Hub {
	return &Hub{
		match:      match,
		board:      board,
		onFinish:   onFinish,
		log:        log.WithField("match_id", match.ID),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan IncomingMessage, 256),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			if h.clients[client.ID] == client {
				delete(h.clients, client.ID)
			}

		case msg := <-h.incoming:
			h.handleMessage(msg)
			if h.recorded {
				h.retire()
				return
			}

		case <-h.quit:
			return
		}
	}
}

// retire detaches every client and stops the hub. Messages that were already
// queued are answered from the final state.
func (h *Hub) retire() {
	for _, c := range h.clients {
		c.leave(h, h.match.ID)
	}
	h.Stop()
	for {
		select {
		case msg := <-h.incoming:
			h.handleMessage(msg)
		default:
			h.log.Debug("hub stopped")
			return
		}
	}
}

// Register attaches a connection to the match. A newer connection of the same
// player replaces the older one. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Submit queues a message for the match. It reports false once the hub has
// stopped; a message it accepted is always handled.
func (h *Hub) Submit(msg IncomingMessage) bool {
	h.stopMu.RLock()
	defer h.stopMu.RUnlock()
	if h.stopped {
		return false
	}
	select {
	case h.incoming <- msg:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.stopMu.Lock()
		h.stopped = true
		h.stopMu.Unlock()
	})
}

// View returns the match as seen by playerID; "" is the spectator view.
func (h *Hub) View(playerID string) engine.MatchView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.match.ViewFor(playerID)
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	slot := h.match.Slot(c.ID)
	h.mu.Unlock()
	if slot == 0 {
		c.hub.CompareAndSwap(h, nil)
		c.SendError("not a player of this match")
		return
	}
	h.clients[c.ID] = c

	h.mu.Lock()
	opp := h.match.Opponent(c.ID)
	found := protocol.MatchFound{
		GameID:           h.match.ID,
		Opponent:         engine.Identity{ID: opp.ID, Name: opp.Name},
		YouArePlayer:     slot,
		ShapeValues:      h.match.ShapeValues,
		ColorMultipliers: h.match.ColorMultipliers,
	}
	h.mu.Unlock()

	c.Send(protocol.MsgMatchFound, found)
	h.sendState(c)
	h.log.WithFields(logrus.Fields{"player_id": c.ID, "slot": slot}).Info("player attached")
}

func (h *Hub) handleMessage(msg IncomingMessage) {
	if msg.Envelope.Type == protocol.MsgInit {
		h.sendState(msg.Client)
		return
	}

	action, err := parseAction(msg.Envelope)
	if err != nil {
		msg.Client.SendError(err.Error())
		return
	}

	h.mu.Lock()
	events, err := h.match.Apply(msg.Client.ID, action)
	h.mu.Unlock()
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"player_id": msg.Client.ID,
			"action":    action.Type,
		}).WithError(err).Debug("action rejected")
		msg.Client.SendError(err.Error())
		return
	}

	for _, ev := range events {
		if res, ok := ev.Data.(*engine.AttackResult); ok && ev.Type == engine.EventAttack {
			h.broadcastAttack(res)
		}
	}
	if h.match.IsOver() && !h.recorded {
		h.finish()
	}
	h.broadcastState()
}

func parseAction(env protocol.Envelope) (engine.Action, error) {
	switch env.Type {
	case protocol.MsgSubmitSetup:
		var m protocol.SubmitSetupMsg
		if err := env.Decode(&m); err != nil {
			return engine.Action{}, err
		}
		return engine.Action{Type: engine.ActionSubmitSetup, Grid: &m.Grid}, nil
	case protocol.MsgPlace:
		var m protocol.PlaceMsg
		if err := env.Decode(&m); err != nil {
			return engine.Action{}, err
		}
		return engine.Action{Type: engine.ActionPlace, X: m.X, Y: m.Y, Token: m.Token, Bomb: m.Bomb}, nil
	case protocol.MsgResetGrid:
		return engine.Action{Type: engine.ActionResetGrid}, nil
	case protocol.MsgConfirmSetup:
		return engine.Action{Type: engine.ActionConfirmSetup}, nil
	case protocol.MsgAttack:
		var m protocol.AttackMsg
		if err := env.Decode(&m); err != nil {
			return engine.Action{}, err
		}
		return engine.Action{Type: engine.ActionAttack, X: m.X, Y: m.Y}, nil
	}
	return engine.Action{}, errors.New("unknown message type " + env.Type)
}

// finish stores the result and hands the final match to onFinish. Both
// happen before the final state goes out.
func (h *Hub) finish() {
	h.recorded = true
	h.mu.Lock()
	snapshot := h.match.Clone()
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"winner": snapshot.Winner,
		"reason": snapshot.WinReason,
	}).Info("match over")

	if h.board != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		_ = h.board.RecordMatch(ctx, snapshot) // logged by the service
		cancel()
	}
	if h.onFinish != nil {
		h.onFinish(snapshot)
	}
}

func (h *Hub) broadcastAttack(res *engine.AttackResult) {
	h.log.WithFields(logrus.Fields{
		"attacker": res.Attacker,
		"x":        res.X,
		"y":        res.Y,
		"result":   res.Outcome,
		"points":   res.Points,
	}).Debug("attack resolved")

	for id, client := range h.clients {
		client.Send(protocol.MsgAttackResult, protocol.AttackResult{
			X:         res.X,
			Y:         res.Y,
			Attacker:  res.Attacker,
			Result:    res.Outcome,
			Token:     res.Token,
			Points:    res.Points,
			GameState: h.View(id),
		})
	}
}

func (h *Hub) broadcastState() {
	for _, client := range h.clients {
		h.sendState(client)
	}
}

func (h *Hub) sendState(client *Client) {
	view := h.View(client.ID)
	client.Send(protocol.MsgGameStateUpdate, protocol.GameStateUpdate{
		CurrentUser: client.Identity,
		GameState:   &view,
	})
}
