package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"muuzah/internal/engine"
	"muuzah/internal/leaderboard"
	"muuzah/internal/lobby"
	"muuzah/internal/protocol"
)

// finishedMatches bounds how many ended matches stay viewable.
const finishedMatches = 1024

// Options configures a Server.
type Options struct {
	Addr  string
	Rules engine.MatchConfig
}

// Server ties together HTTP serving, matchmaking and one hub per match.
type Server struct {
	opts      Options
	lobby     *lobby.Manager
	board     *leaderboard.Service
	log       *logrus.Entry
	readLimit int64

	mu       sync.Mutex
	hubs     map[string]*Hub    // match ID -> hub of a match in progress
	clients  map[string]*Client // player ID -> latest connection
	finished *lru.Cache[string, *engine.Match]

	httpServer *http.Server
}

func New(opts Options, mgr *lobby.Manager, board *leaderboard.Service, log *logrus.Entry) *Server {
	if opts.Rules == (engine.MatchConfig{}) {
		opts.Rules = engine.DefaultConfig()
	}
	finished, _ := lru.New[string, *engine.Match](finishedMatches) // fails only for size <= 0
	return &Server{
		opts:      opts,
		lobby:     mgr,
		board:     board,
		log:       log,
		readLimit: readLimit(opts.Rules),
		hubs:      make(map[string]*Hub),
		clients:   make(map[string]*Client),
		finished:  finished,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	api := r.Group("/api")
	{
		api.GET("/player-id", s.HandlePlayerID)
		api.GET("/leaderboard", s.HandleLeaderboard)
		api.GET("/matches/:id", s.HandleMatch)
		api.GET("/qr", s.HandleQR)
	}
	r.GET("/ws", s.HandleWS)
	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	hs := &http.Server{Addr: s.opts.Addr, Handler: s.Router()}
	s.mu.Lock()
	s.httpServer = hs
	s.mu.Unlock()
	s.log.WithField("addr", s.opts.Addr).Info("muuzah server starting")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and every hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.httpServer
	for _, h := range s.hubs {
		h.Stop()
	}
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

func (s *Server) connect(c *Client) {
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"player_id": c.ID, "name": c.Name}).Info("player connected")

	// A player reconnecting mid-match goes straight back into it.
	if pr := s.lobby.PairingOf(c.ID); pr != nil {
		if h := s.hub(pr.ID); h != nil {
			s.attach(h, c)
			s.log.WithFields(logrus.Fields{"player_id": c.ID, "match_id": pr.ID}).Info("player resumed match")
		}
	}
}

// attach points c at h before the hub sees it, so messages read right after
// are routed to the match.
func (s *Server) attach(h *Hub, c *Client) {
	c.hub.Store(h)
	if !h.Register(c) {
		c.hub.CompareAndSwap(h, nil)
	}
}

func (s *Server) disconnect(c *Client) {
	s.mu.Lock()
	if s.clients[c.ID] == c {
		delete(s.clients, c.ID)
		s.lobby.Cancel(c.ID)
	}
	s.mu.Unlock()
	if h := c.hub.Load(); h != nil {
		h.Unregister(c)
	}
	c.close()
	s.log.WithField("player_id", c.ID).Info("player disconnected")
}

// route handles lobby-level messages and forwards match messages to the
// client's hub.
func (s *Server) route(c *Client, env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgFindMatch:
		s.findMatch(c)
		return
	case protocol.MsgGetLeaderboard:
		s.sendLeaderboard(c, env)
		return
	}
	if h := c.hub.Load(); h != nil && h.Submit(IncomingMessage{Client: c, Envelope: env}) {
		return
	}
	if m, ok := s.finished.Get(c.finishedMatch()); ok {
		if env.Type == protocol.MsgInit {
			view := m.ViewFor(c.ID)
			c.Send(protocol.MsgGameStateUpdate, protocol.GameStateUpdate{CurrentUser: c.Identity, GameState: &view})
			return
		}
		c.SendError(engine.ErrMatchOver.Error())
		return
	}
	if env.Type == protocol.MsgInit {
		c.Send(protocol.MsgGameStateUpdate, protocol.GameStateUpdate{CurrentUser: c.Identity})
		return
	}
	c.SendError("not in a match")
}

func (s *Server) findMatch(c *Client) {
	pr, ok := s.lobby.FindMatch(c.Identity)
	if !ok {
		c.Send(protocol.MsgWaiting, nil)
		return
	}

	hub, err := s.hubFor(pr)
	if err != nil {
		s.log.WithError(err).WithField("match_id", pr.ID).Error("create match failed")
		c.SendError(err.Error())
		return
	}

	s.mu.Lock()
	var attach []*Client
	for _, p := range pr.Players {
		if cl, ok := s.clients[p.ID]; ok {
			attach = append(attach, cl)
		}
	}
	s.mu.Unlock()
	for _, cl := range attach {
		s.attach(hub, cl)
	}
}

// hubFor returns the running hub of a pairing, starting it on first use.
func (s *Server) hubFor(pr *lobby.Pairing) (*Hub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.hubs[pr.ID]; ok {
		return h, nil
	}
	m, err := engine.NewMatch(pr.ID, pr.Players[0], pr.Players[1], s.opts.Rules)
	if err != nil {
		return nil, err
	}
	h := NewHub(m, s.board, s.retire, s.log.WithField("component", "hub"))
	s.hubs[pr.ID] = h
	go h.Run()
	s.log.WithFields(logrus.Fields{
		"match_id": pr.ID,
		"player1":  pr.Players[0].ID,
		"player2":  pr.Players[1].ID,
	}).Info("match created")
	return h, nil
}

// retire keeps the final state of a match viewable and frees its players.
// It runs on the hub goroutine before the final state goes out.
func (s *Server) retire(final *engine.Match) {
	s.finished.Add(final.ID, final)
	s.mu.Lock()
	delete(s.hubs, final.ID)
	s.mu.Unlock()
	s.lobby.Release(final.ID)
	s.log.WithFields(logrus.Fields{"match_id": final.ID, "active": s.lobby.Active()}).Info("match retired")
}

func (s *Server) hub(matchID string) *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hubs[matchID]
}

// spectatorView returns the public view of a running or finished match.
func (s *Server) spectatorView(matchID string) (engine.MatchView, bool) {
	if h := s.hub(matchID); h != nil {
		return h.View(""), true
	}
	if m, ok := s.finished.Get(matchID); ok {
		return m.ViewFor(""), true
	}
	return engine.MatchView{}, false
}

func (s *Server) sendLeaderboard(c *Client, env protocol.Envelope) {
	var req protocol.LeaderboardRequest
	if len(env.Payload) > 0 {
		if err := env.Decode(&req); err != nil {
			c.SendError(err.Error())
			return
		}
	}
	entries, err := s.board.Top(context.Background(), req.Limit)
	if err != nil {
		c.SendError("leaderboard unavailable")
		return
	}
	c.Send(protocol.MsgLeaderboardData, entries)
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("http request")
	}
}
