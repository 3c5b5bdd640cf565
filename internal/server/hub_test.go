package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muuzah/internal/engine"
	"muuzah/internal/logging"
	"muuzah/internal/protocol"
)

func testClient(id string) *Client {
	return &Client{
		send:     make(chan []byte, 64),
		log:      logging.Discard(),
		Identity: engine.Identity{ID: id, Name: id},
	}
}

func submit(t *testing.T, h *Hub, c *Client, typ string, payload interface{}) {
	t.Helper()
	require.True(t, h.Submit(IncomingMessage{Client: c, Envelope: protocol.MustEnvelope(typ, payload)}))
}

func TestHubStopsAfterMatchEnds(t *testing.T) {
	rules := engine.MatchConfig{GridSize: 1, RequiredTokens: 1, StartingLives: 1}
	m, err := engine.NewMatch("m1", engine.Identity{ID: "a"}, engine.Identity{ID: "b"}, rules)
	require.NoError(t, err)

	var final *engine.Match
	h := NewHub(m, nil, func(f *engine.Match) { final = f }, logging.Discard())
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	a, b := testClient("a"), testClient("b")
	for _, c := range []*Client{a, b} {
		c.hub.Store(h)
		require.True(t, h.Register(c))
	}

	g, err := engine.NewGrid(1)
	require.NoError(t, err)
	g, err = g.Place(0, 0, &engine.Token{Shape: engine.ShapeCircle, Color: engine.ColorRed}, false)
	require.NoError(t, err)
	submit(t, h, a, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: g})
	submit(t, h, b, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: g})
	submit(t, h, a, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 0})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub still running after the match ended")
	}

	require.NotNil(t, final)
	assert.Equal(t, "a", final.Winner)
	assert.NotSame(t, m, final, "the archived match must be a copy")

	for _, c := range []*Client{a, b} {
		assert.Nil(t, c.hub.Load(), "%s still attached", c.ID)
		assert.Equal(t, "m1", c.finishedMatch())
	}
	assert.False(t, h.Submit(IncomingMessage{Client: a, Envelope: protocol.MustEnvelope(protocol.MsgInit, nil)}))
	assert.False(t, h.Register(a))

	// The last message b got is the final state.
	var last protocol.Envelope
	for len(b.send) > 0 {
		require.NoError(t, json.Unmarshal(<-b.send, &last))
	}
	require.Equal(t, protocol.MsgGameStateUpdate, last.Type)
	var u protocol.GameStateUpdate
	require.NoError(t, last.Decode(&u))
	assert.Equal(t, engine.PhaseGameOver, u.GameState.Phase)
}

func TestReadLimitCoversFullSetup(t *testing.T) {
	assert.Equal(t, int64(maxMessageSize), readLimit(engine.DefaultConfig()))
	assert.Greater(t, readLimit(engine.MatchConfig{GridSize: 32}), int64(32*32*cellFrameBytes))
}
