package leaderboard

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"muuzah/internal/engine"
	"muuzah/internal/protocol"
)

const maxLimit = 100

// Service records finished matches and serves rankings. Concurrent reads for
// the same limit share one query.
type Service struct {
	store        Store
	defaultLimit int
	log          *logrus.Entry
	group        singleflight.Group
}

func NewService(store Store, defaultLimit int, log *logrus.Entry) *Service {
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = 10
	}
	return &Service{store: store, defaultLimit: defaultLimit, log: log}
}

// Top returns up to limit ranked entries. Non-positive or oversized limits
// fall back to the configured default.
func (s *Service) Top(ctx context.Context, limit int) ([]protocol.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLimit {
		limit = s.defaultLimit
	}
	v, err, shared := s.group.Do(strconv.Itoa(limit), func() (interface{}, error) {
		return s.store.Top(ctx, limit)
	})
	if err != nil {
		s.log.WithError(err).WithField("limit", limit).Error("leaderboard query failed")
		return nil, err
	}
	entries := v.([]protocol.LeaderboardEntry)
	if shared {
		// Callers may not share the backing array.
		entries = append([]protocol.LeaderboardEntry(nil), entries...)
	}
	return entries, nil
}

// RecordMatch stores the outcome of a finished match. Matches that are not
// over are ignored.
func (s *Service) RecordMatch(ctx context.Context, m *engine.Match) error {
	results := ResultsFromMatch(m)
	if len(results) == 0 {
		return nil
	}
	if err := s.store.RecordResults(ctx, results); err != nil {
		s.log.WithError(err).WithField("match_id", m.ID).Error("recording match result failed")
		return err
	}
	s.log.WithFields(logrus.Fields{
		"match_id": m.ID,
		"winner":   m.Winner,
		"reason":   m.WinReason,
	}).Info("match result recorded")
	return nil
}

// ResultsFromMatch converts a finished match into per-player results.
func ResultsFromMatch(m *engine.Match) []Result {
	if !m.IsOver() {
		return nil
	}
	out := make([]Result, 0, len(m.Players))
	for _, p := range m.Players {
		out = append(out, Result{
			PlayerID: p.ID,
			Username: p.Name,
			Score:    p.Score,
			Won:      p.ID == m.Winner,
		})
	}
	return out
}
