package engine

import "fmt"

// MatchConfig holds the rules a match is created with.
type MatchConfig struct {
	GridSize       int `json:"grid_size"`       // side length of each grid (default 8)
	RequiredTokens int `json:"required_tokens"` // tokens each player must place (default 8)
	RequiredBombs  int `json:"required_bombs"`  // bombs each player must place (default 3)
	StartingLives  int `json:"starting_lives"`  // lives each player starts with (default 3)
}

func DefaultConfig() MatchConfig {
	return MatchConfig{
		GridSize:       8,
		RequiredTokens: 8,
		RequiredBombs:  3,
		StartingLives:  3,
	}
}

// Validate rejects rules no grid could satisfy.
func (c MatchConfig) Validate() error {
	if c.GridSize <= 0 {
		return fmt.Errorf("grid size %d: %w", c.GridSize, ErrInvalidGridSize)
	}
	if c.RequiredTokens < 0 || c.RequiredBombs < 0 {
		return fmt.Errorf("negative token or bomb count: %w", ErrInvalidConfig)
	}
	if c.RequiredTokens+c.RequiredBombs > c.GridSize*c.GridSize {
		return fmt.Errorf("%d tokens and %d bombs do not fit on a %dx%d grid: %w",
			c.RequiredTokens, c.RequiredBombs, c.GridSize, c.GridSize, ErrInvalidConfig)
	}
	if c.StartingLives <= 0 {
		return fmt.Errorf("starting lives %d: %w", c.StartingLives, ErrInvalidConfig)
	}
	return nil
}
