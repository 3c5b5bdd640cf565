package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	qr "muuzah/internal/qrcode"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades a player connection. The player query parameter is
// required; name is optional.
func (s *Server) HandleWS(c *gin.Context) {
	id, err := identityFromQuery(c.Query("player"), c.Query("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade error")
		return
	}

	client := NewClient(s, conn, id)
	s.connect(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandlePlayerID returns a new player ID.
func (s *Server) HandlePlayerID(c *gin.Context) {
	c.String(http.StatusOK, GeneratePlayerID())
}

// HandleLeaderboard returns the ranked players, optionally ?limit=N.
func (s *Server) HandleLeaderboard(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.board.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleMatch returns the spectator view of a match, running or finished.
func (s *Server) HandleMatch(c *gin.Context) {
	view, ok := s.spectatorView(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleQR generates a QR code PNG linking to a match's spectator view.
func (s *Server) HandleQR(c *gin.Context) {
	matchID := c.Query("match")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing match parameter"})
		return
	}
	if _, ok := s.spectatorView(matchID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	png, err := qr.Generate(qr.MatchURL(c.Request.Host, matchID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
