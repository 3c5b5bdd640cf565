package engine

import (
	"encoding/json"
	"fmt"
)

// MarshalMatch encodes the full match, hidden cells included. It is meant for
// the authoritative host only; clients get ViewFor.
func MarshalMatch(m *Match) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalMatch decodes a snapshot produced by MarshalMatch and checks it
// before handing it back.
func UnmarshalMatch(data []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode match: %w: %v", ErrCorruptSnapshot, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every invariant a match must hold between transitions.
func (m *Match) Validate() error {
	if err := m.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := m.ShapeValues.Validate(); err != nil {
		return err
	}
	if err := m.ColorMultipliers.Validate(); err != nil {
		return err
	}
	for i, p := range m.Players {
		if p == nil {
			return fmt.Errorf("player %d missing: %w", i+1, ErrCorruptSnapshot)
		}
		if err := p.Grid.Validate(); err != nil {
			return fmt.Errorf("player %d grid: %w", i+1, err)
		}
		if p.Grid.Size != m.Config.GridSize {
			return fmt.Errorf("player %d grid size %d, config says %d: %w",
				i+1, p.Grid.Size, m.Config.GridSize, ErrCorruptSnapshot)
		}
		if p.Lives < 0 || p.Lives > m.Config.StartingLives || p.Score < 0 {
			return fmt.Errorf("player %d lives %d score %d: %w", i+1, p.Lives, p.Score, ErrCorruptSnapshot)
		}
	}
	if m.Players[0].ID == m.Players[1].ID {
		return ErrDuplicatePlayer
	}

	return m.validatePhase()
}

// validatePhase checks that lives, reveals and setup flags agree with the
// phase and the recorded winner.
func (m *Match) validatePhase() error {
	p1, p2 := m.Players[0], m.Players[1]
	switch m.Phase {
	case PhaseSetupPlayer1, PhaseSetupPlayer2:
		if m.Turn != "" || m.Winner != "" {
			return fmt.Errorf("turn or winner set during setup: %w", ErrCorruptSnapshot)
		}
		if p1.Grid.revealedCount() > 0 || p2.Grid.revealedCount() > 0 {
			return fmt.Errorf("revealed cells during setup: %w", ErrCorruptSnapshot)
		}
		if p1.SetupComplete != (m.Phase == PhaseSetupPlayer2) || p2.SetupComplete {
			return fmt.Errorf("setup flags %t/%t in %s: %w", p1.SetupComplete, p2.SetupComplete, m.Phase, ErrCorruptSnapshot)
		}
	case PhaseBattle:
		if m.GetPlayer(m.Turn) == nil || m.Winner != "" {
			return fmt.Errorf("battle turn %q winner %q: %w", m.Turn, m.Winner, ErrCorruptSnapshot)
		}
		if err := m.validateSeated(); err != nil {
			return err
		}
		if p1.Lives == 0 || p2.Lives == 0 {
			return fmt.Errorf("battle with a player out of lives: %w", ErrCorruptSnapshot)
		}
	case PhaseGameOver:
		if m.GetPlayer(m.Winner) == nil || m.Turn != "" {
			return fmt.Errorf("game over winner %q turn %q: %w", m.Winner, m.Turn, ErrCorruptSnapshot)
		}
		if err := m.validateSeated(); err != nil {
			return err
		}
		winner, loser := m.GetPlayer(m.Winner), m.Opponent(m.Winner)
		switch m.WinReason {
		case WinSuddenDeath:
			if loser.Lives != 0 || winner.Lives == 0 {
				return fmt.Errorf("sudden death with lives %d/%d: %w", winner.Lives, loser.Lives, ErrCorruptSnapshot)
			}
		case WinScore:
			if p1.Lives == 0 || p2.Lives == 0 {
				return fmt.Errorf("score win with a player out of lives: %w", ErrCorruptSnapshot)
			}
			if !p1.Grid.AllTokensRevealed() && !p2.Grid.AllTokensRevealed() {
				return fmt.Errorf("score win with tokens left on both grids: %w", ErrCorruptSnapshot)
			}
			if winner.Score < loser.Score || (winner.Score == loser.Score && winner != p1) {
				return fmt.Errorf("score win for %q with %d to %d: %w", m.Winner, winner.Score, loser.Score, ErrCorruptSnapshot)
			}
		default:
			return fmt.Errorf("win reason %q: %w", m.WinReason, ErrCorruptSnapshot)
		}
	default:
		return fmt.Errorf("phase %d: %w", int(m.Phase), ErrCorruptSnapshot)
	}
	return nil
}

// validateSeated requires both grids to have been confirmed.
func (m *Match) validateSeated() error {
	if !m.Players[0].SetupComplete || !m.Players[1].SetupComplete {
		return fmt.Errorf("%s with setup unconfirmed: %w", m.Phase, ErrCorruptSnapshot)
	}
	return nil
}
