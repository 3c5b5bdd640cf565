package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muuzah/internal/engine"
	"muuzah/internal/leaderboard"
	"muuzah/internal/lobby"
	"muuzah/internal/logging"
	"muuzah/internal/protocol"
	"muuzah/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 2x2 boards with one token and one bomb keep the flow short.
var testRules = engine.MatchConfig{GridSize: 2, RequiredTokens: 1, RequiredBombs: 1, StartingLives: 3}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithRules(t, testRules)
}

func newTestServerWithRules(t *testing.T, rules engine.MatchConfig) *httptest.Server {
	t.Helper()
	db, err := leaderboard.Open(fmt.Sprintf("file:server_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	board := leaderboard.NewService(leaderboard.NewSQLiteStore(db), 10, logging.Discard())
	srv := server.New(server.Options{Rules: rules}, lobby.NewManager(), board, logging.Discard())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
		sqlDB.Close()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server, id, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?player=" + id + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.MustEnvelope(typ, payload)))
}

// next reads until a message of type typ satisfies match, skipping the rest.
func next(t *testing.T, conn *websocket.Conn, typ string, match func(protocol.Envelope) bool) protocol.Envelope {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var env protocol.Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", typ)
		if env.Type == typ && (match == nil || match(env)) {
			return env
		}
	}
}

func waitPhase(t *testing.T, conn *websocket.Conn, phase engine.Phase) engine.MatchView {
	t.Helper()
	var view engine.MatchView
	next(t, conn, protocol.MsgGameStateUpdate, func(env protocol.Envelope) bool {
		var u protocol.GameStateUpdate
		require.NoError(t, env.Decode(&u))
		if u.GameState == nil || u.GameState.Phase != phase {
			return false
		}
		view = *u.GameState
		return true
	})
	return view
}

func waitAttack(t *testing.T, conn *websocket.Conn, attacker string) protocol.AttackResult {
	t.Helper()
	var res protocol.AttackResult
	next(t, conn, protocol.MsgAttackResult, func(env protocol.Envelope) bool {
		require.NoError(t, env.Decode(&res))
		return res.Attacker == attacker
	})
	return res
}

func setupGrid(t *testing.T, tokenX, tokenY, bombX, bombY int) engine.Grid {
	t.Helper()
	g, err := engine.NewGrid(testRules.GridSize)
	require.NoError(t, err)
	g, err = g.Place(tokenX, tokenY, &engine.Token{Shape: engine.ShapeStar, Color: engine.ColorYellow}, false)
	require.NoError(t, err)
	g, err = g.Place(bombX, bombY, nil, true)
	require.NoError(t, err)
	return g
}

func TestFullMatchOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts, "a", "Ann")
	b := dial(t, ts, "b", "Bob")

	send(t, a, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgWaiting, nil)
	send(t, b, protocol.MsgFindMatch, nil)

	var foundA, foundB protocol.MatchFound
	require.NoError(t, next(t, a, protocol.MsgMatchFound, nil).Decode(&foundA))
	require.NoError(t, next(t, b, protocol.MsgMatchFound, nil).Decode(&foundB))
	assert.Equal(t, foundA.GameID, foundB.GameID)
	assert.Equal(t, 1, foundA.YouArePlayer)
	assert.Equal(t, 2, foundB.YouArePlayer)
	assert.Equal(t, engine.Identity{ID: "b", Name: "Bob"}, foundA.Opponent)
	require.NoError(t, foundA.ShapeValues.Validate())
	require.NoError(t, foundA.ColorMultipliers.Validate())

	// Player 2 may not act during player 1's setup.
	send(t, b, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 0})
	var errMsg protocol.ErrorMsg
	require.NoError(t, next(t, b, protocol.MsgError, nil).Decode(&errMsg))
	assert.Contains(t, errMsg.Message, "wrong phase")

	// A: token (0,0), bomb (1,0). B: token (1,1), bomb (0,1).
	send(t, a, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: setupGrid(t, 0, 0, 1, 0)})
	view := waitPhase(t, b, engine.PhaseSetupPlayer2)
	assert.True(t, view.CanSetup)
	assert.Zero(t, view.Players[0].Grid.CountTokens(), "player 1's setup leaked")

	send(t, b, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: setupGrid(t, 1, 1, 0, 1)})
	view = waitPhase(t, a, engine.PhaseBattle)
	assert.Equal(t, "a", view.Turn)
	assert.True(t, view.IsMyTurn)

	send(t, a, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 1})
	res := waitAttack(t, b, "a")
	assert.Equal(t, engine.OutcomeBomb, res.Result)
	assert.Equal(t, 2, res.GameState.Players[0].Lives)
	assert.True(t, res.GameState.IsMyTurn, "turn passes to b")

	send(t, b, protocol.MsgAttack, protocol.AttackMsg{X: 1, Y: 1})
	res = waitAttack(t, a, "b")
	assert.Equal(t, engine.OutcomeMiss, res.Result)

	send(t, a, protocol.MsgAttack, protocol.AttackMsg{X: 1, Y: 1})
	res = waitAttack(t, a, "a")
	assert.Equal(t, engine.OutcomeHit, res.Result)
	require.NotNil(t, res.Token)
	assert.Equal(t, engine.Token{Shape: engine.ShapeStar, Color: engine.ColorYellow}, *res.Token)
	assert.Equal(t, engine.CalculateTokenScore(*res.Token, foundA.ShapeValues, foundA.ColorMultipliers), res.Points)

	final := waitPhase(t, a, engine.PhaseGameOver)
	assert.Equal(t, "a", final.Winner)
	assert.Equal(t, engine.WinScore, final.WinReason)
	assert.Equal(t, res.Points, final.Players[0].Score)

	// The result is recorded before the final state goes out.
	resp, err := http.Get(ts.URL + "/api/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var top []protocol.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&top))
	require.Len(t, top, 2)
	assert.Equal(t, protocol.LeaderboardEntry{Rank: 1, PlayerID: "a", Username: "Ann", Score: res.Points, Wins: 1, GamesPlayed: 1}, top[0])
	assert.Equal(t, "b", top[1].PlayerID)

	send(t, b, protocol.MsgGetLeaderboard, protocol.LeaderboardRequest{Limit: 1})
	var viaWS []protocol.LeaderboardEntry
	require.NoError(t, next(t, b, protocol.MsgLeaderboardData, nil).Decode(&viaWS))
	assert.Equal(t, top[:1], viaWS)

	send(t, b, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 0})
	require.NoError(t, next(t, b, protocol.MsgError, nil).Decode(&errMsg))
	assert.Contains(t, errMsg.Message, "match is over")

	// Spectator view over HTTP.
	resp, err = http.Get(ts.URL + "/api/matches/" + foundA.GameID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var spectator engine.MatchView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spectator))
	assert.Equal(t, engine.PhaseGameOver, spectator.Phase)
	assert.Zero(t, spectator.You)
	assert.Equal(t, 0, spectator.Players[0].Grid.CountTokens(), "a's token was never found")
	assert.Equal(t, 1, spectator.Players[1].Grid.CountTokens())

	resp, err = http.Get(ts.URL + "/api/qr?match=" + foundA.GameID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))
}

func TestDuplicateAttackIsRejected(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts, "a", "Ann")
	b := dial(t, ts, "b", "Bob")
	send(t, a, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgWaiting, nil)
	send(t, b, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgMatchFound, nil)

	send(t, a, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: setupGrid(t, 0, 0, 1, 0)})
	waitPhase(t, b, engine.PhaseSetupPlayer2)
	send(t, b, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: setupGrid(t, 1, 1, 0, 1)})
	waitPhase(t, a, engine.PhaseBattle)

	// The second frame reaches the hub after the first already passed the turn.
	send(t, a, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 0})
	send(t, a, protocol.MsgAttack, protocol.AttackMsg{X: 0, Y: 0})
	res := waitAttack(t, a, "a")
	assert.Equal(t, engine.OutcomeMiss, res.Result)
	var errMsg protocol.ErrorMsg
	require.NoError(t, next(t, a, protocol.MsgError, nil).Decode(&errMsg))
	assert.Contains(t, errMsg.Message, "not your turn")

	send(t, a, protocol.MsgInit, nil)
	view := waitPhase(t, a, engine.PhaseBattle)
	assert.Equal(t, "b", view.Turn)
	assert.Equal(t, 3, view.Players[0].Lives)
}

func TestCellByCellSetup(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts, "a", "Ann")
	b := dial(t, ts, "b", "Bob")
	send(t, a, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgWaiting, nil)
	send(t, b, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgMatchFound, nil)

	send(t, a, protocol.MsgConfirmSetup, nil)
	var errMsg protocol.ErrorMsg
	require.NoError(t, next(t, a, protocol.MsgError, nil).Decode(&errMsg))
	assert.Contains(t, errMsg.Message, "setup incomplete")

	send(t, a, protocol.MsgPlace, protocol.PlaceMsg{X: 0, Y: 0, Bomb: true})
	send(t, a, protocol.MsgResetGrid, nil)
	send(t, a, protocol.MsgPlace, protocol.PlaceMsg{X: 1, Y: 1, Token: &engine.Token{Shape: engine.ShapeCircle, Color: engine.ColorRed}})
	send(t, a, protocol.MsgPlace, protocol.PlaceMsg{X: 0, Y: 1, Bomb: true})
	send(t, a, protocol.MsgConfirmSetup, nil)

	view := waitPhase(t, a, engine.PhaseSetupPlayer2)
	own := view.Players[0].Grid
	assert.Equal(t, 1, own.CountTokens())
	assert.Equal(t, 1, own.CountBombs())
	c, err := own.Cell(0, 0)
	require.NoError(t, err)
	assert.True(t, c.Empty(), "reset should have cleared (0,0)")
}

func TestReconnectResumesMatch(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts, "a", "Ann")
	b := dial(t, ts, "b", "Bob")
	send(t, a, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgWaiting, nil)
	send(t, b, protocol.MsgFindMatch, nil)
	var found protocol.MatchFound
	require.NoError(t, next(t, a, protocol.MsgMatchFound, nil).Decode(&found))

	require.NoError(t, a.Close())
	a = dial(t, ts, "a", "Ann")

	var again protocol.MatchFound
	require.NoError(t, next(t, a, protocol.MsgMatchFound, nil).Decode(&again))
	assert.Equal(t, found.GameID, again.GameID)
	assert.Equal(t, 1, again.YouArePlayer)

	send(t, a, protocol.MsgInit, nil)
	var u protocol.GameStateUpdate
	require.NoError(t, next(t, a, protocol.MsgGameStateUpdate, nil).Decode(&u))
	require.NotNil(t, u.GameState, "reconnected player lost their match")
	assert.Equal(t, engine.PhaseSetupPlayer1, u.GameState.Phase)
	assert.True(t, u.GameState.CanSetup)

	send(t, a, protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: setupGrid(t, 0, 0, 1, 0)})
	view := waitPhase(t, a, engine.PhaseSetupPlayer2)
	assert.Equal(t, 1, view.Players[0].Grid.CountTokens())
	waitPhase(t, b, engine.PhaseSetupPlayer2)
}

func TestLargeSetupFitsReadLimit(t *testing.T) {
	rules := engine.MatchConfig{GridSize: 20, RequiredTokens: 399, RequiredBombs: 1, StartingLives: 3}
	ts := newTestServerWithRules(t, rules)
	a := dial(t, ts, "a", "Ann")
	b := dial(t, ts, "b", "Bob")
	send(t, a, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgWaiting, nil)
	send(t, b, protocol.MsgFindMatch, nil)
	next(t, a, protocol.MsgMatchFound, nil)

	g, err := engine.NewGrid(rules.GridSize)
	require.NoError(t, err)
	for i := 0; i < rules.GridSize*rules.GridSize-1; i++ {
		g, err = g.Place(i%rules.GridSize, i/rules.GridSize, &engine.Token{Shape: engine.ShapeTriangle, Color: engine.ColorYellow}, false)
		require.NoError(t, err)
	}
	g, err = g.Place(rules.GridSize-1, rules.GridSize-1, nil, true)
	require.NoError(t, err)

	frame, err := json.Marshal(protocol.MustEnvelope(protocol.MsgSubmitSetup, protocol.SubmitSetupMsg{Grid: g}))
	require.NoError(t, err)
	require.Greater(t, len(frame), 16384)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, frame))
	view := waitPhase(t, b, engine.PhaseSetupPlayer2)
	assert.Equal(t, "a", view.Players[0].ID)
}

func TestLobbyMessagesOutsideMatch(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts, "a", "")

	send(t, a, protocol.MsgInit, nil)
	var u protocol.GameStateUpdate
	require.NoError(t, next(t, a, protocol.MsgGameStateUpdate, nil).Decode(&u))
	assert.Equal(t, "a", u.CurrentUser.ID)
	assert.Equal(t, "player-a", u.CurrentUser.Name)
	assert.Nil(t, u.GameState)

	send(t, a, protocol.MsgAttack, protocol.AttackMsg{})
	var errMsg protocol.ErrorMsg
	require.NoError(t, next(t, a, protocol.MsgError, nil).Decode(&errMsg))
	assert.Equal(t, "not in a match", errMsg.Message)

	send(t, a, protocol.MsgGetLeaderboard, nil)
	var top []protocol.LeaderboardEntry
	require.NoError(t, next(t, a, protocol.MsgLeaderboardData, nil).Decode(&top))
	assert.Empty(t, top)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, next(t, a, protocol.MsgError, nil).Decode(&errMsg))
	assert.Equal(t, "malformed message", errMsg.Message)
}

func TestHTTPEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/player-id")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = uuid.Parse(string(body))
	assert.NoError(t, err)

	tests := []struct {
		path string
		want int
	}{
		{"/api/matches/nope", http.StatusNotFound},
		{"/api/qr", http.StatusBadRequest},
		{"/api/qr?match=nope", http.StatusNotFound},
		{"/api/leaderboard?limit=x", http.StatusBadRequest},
		{"/api/leaderboard?limit=3", http.StatusOK},
		{"/ws", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
}
