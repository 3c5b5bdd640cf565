package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"muuzah/internal/protocol"
)

// Profile is the persisted running total of one player.
type Profile struct {
	PlayerID    string `gorm:"primaryKey"`
	Username    string
	Score       int `gorm:"not null;default:0"`
	Wins        int `gorm:"not null;default:0;index"`
	GamesPlayed int `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Result is one player's outcome of a finished match.
type Result struct {
	PlayerID string
	Username string
	Score    int
	Won      bool
}

// Store persists match results and answers ranking queries.
type Store interface {
	RecordResults(ctx context.Context, results []Result) error
	Top(ctx context.Context, limit int) ([]protocol.LeaderboardEntry, error)
	Get(ctx context.Context, playerID string) (*Profile, error)
}

// ErrNotFound is returned by Get for players without a finished match.
var ErrNotFound = errors.New("player not found")

// Open opens the sqlite database at dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return nil, fmt.Errorf("migrate leaderboard db: %w", err)
	}
	return db, nil
}

type sqliteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(db *gorm.DB) Store {
	return &sqliteStore{db: db}
}

// RecordResults adds every result in one transaction. Each player gets one
// more game, the winner one more win, and the match score is accumulated.
func (s *sqliteStore) RecordResults(ctx context.Context, results []Result) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range results {
			var p Profile
			err := tx.Where("player_id = ?", r.PlayerID).First(&p).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				p = Profile{PlayerID: r.PlayerID}
			} else if err != nil {
				return err
			}
			if r.Username != "" {
				p.Username = r.Username
			}
			p.GamesPlayed++
			p.Score += r.Score
			if r.Won {
				p.Wins++
			}
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Top returns the best players by wins, then score, then fewest games.
func (s *sqliteStore) Top(ctx context.Context, limit int) ([]protocol.LeaderboardEntry, error) {
	var profiles []Profile
	if err := s.db.WithContext(ctx).Model(&Profile{}).
		Order("wins DESC").
		Order("score DESC").
		Order("games_played ASC").
		Order("player_id ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	out := make([]protocol.LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		out[i] = protocol.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    p.PlayerID,
			Username:    p.Username,
			Score:       p.Score,
			Wins:        p.Wins,
			GamesPlayed: p.GamesPlayed,
		}
	}
	return out, nil
}

func (s *sqliteStore) Get(ctx context.Context, playerID string) (*Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
