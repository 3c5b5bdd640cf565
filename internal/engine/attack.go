package engine

import "fmt"

// Attack resolution: one reveal, one outcome, then the terminal checks.

// Outcome classifies what an attack revealed.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
	OutcomeBomb Outcome = "bomb"
)

// AttackResult is everything the caller needs to report an attack without
// re-deriving match state.
type AttackResult struct {
	Attacker string  `json:"attacker"`
	Defender string  `json:"defender"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Outcome  Outcome `json:"result"`
	Token    *Token  `json:"token,omitempty"`  // hit only
	Points   int     `json:"points,omitempty"` // hit only

	// Attacker totals after the attack.
	Lives int `json:"lives"`
	Score int `json:"score"`

	Phase     Phase     `json:"phase"`
	Turn      string    `json:"turn,omitempty"`
	GameOver  bool      `json:"game_over"`
	Winner    string    `json:"winner,omitempty"`
	WinReason WinReason `json:"win_reason,omitempty"`
}

// Attack reveals (x, y) on the opponent's grid for the player whose turn it is.
// Rejected attacks return an error and leave the match untouched; that
// includes a repeat of an already revealed cell.
func (m *Match) Attack(playerID string, x, y int) (*AttackResult, error) {
	if m.Phase == PhaseGameOver {
		return nil, ErrMatchOver
	}
	if m.Phase != PhaseBattle {
		return nil, ErrWrongPhase
	}
	attacker := m.GetPlayer(playerID)
	if attacker == nil {
		return nil, ErrPlayerNotFound
	}
	if m.Turn != playerID {
		return nil, ErrNotYourTurn
	}
	defender := m.Opponent(playerID)
	cell, err := defender.Grid.Cell(x, y)
	if err != nil {
		return nil, err
	}
	if cell.Revealed {
		return nil, fmt.Errorf("cell (%d,%d): %w", x, y, ErrCellRevealed)
	}

	res := &AttackResult{
		Attacker: attacker.ID,
		Defender: defender.ID,
		X:        x,
		Y:        y,
	}

	defender.Grid = defender.Grid.reveal(x, y)

	switch {
	case cell.Bomb:
		attacker.Lives--
		res.Outcome = OutcomeBomb
	case cell.Token != nil:
		t := *cell.Token
		res.Points = CalculateTokenScore(t, m.ShapeValues, m.ColorMultipliers)
		res.Token = &t
		attacker.Score += res.Points
		res.Outcome = OutcomeHit
	default:
		res.Outcome = OutcomeMiss
	}

	// Sudden death is checked first: losing the last life ends the match even
	// when the same reveal exhausted the opponent's tokens.
	switch {
	case attacker.Lives <= 0:
		m.finish(defender.ID, WinSuddenDeath)
	case defender.Grid.AllTokensRevealed():
		m.finish(m.scoreLeader(), WinScore)
	default:
		m.Turn = defender.ID
	}
	m.UpdatedAt = now()

	res.Lives = attacker.Lives
	res.Score = attacker.Score
	res.Phase = m.Phase
	res.Turn = m.Turn
	res.GameOver = m.Phase == PhaseGameOver
	res.Winner = m.Winner
	res.WinReason = m.WinReason
	return res, nil
}

// scoreLeader returns the player with the strictly higher score. Player 1 wins ties.
func (m *Match) scoreLeader() string {
	if m.Players[1].Score > m.Players[0].Score {
		return m.Players[1].ID
	}
	return m.Players[0].ID
}

func (m *Match) finish(winner string, reason WinReason) {
	m.Phase = PhaseGameOver
	m.Winner = winner
	m.WinReason = reason
	m.Turn = ""
}

func (r *AttackResult) events() []Event {
	events := []Event{{Type: EventAttack, Player: r.Attacker, Data: r}}
	if r.GameOver {
		events = append(events,
			Event{Type: EventGameOver, Data: map[string]interface{}{
				"winner": r.Winner, "reason": string(r.WinReason),
			}},
			Event{Type: EventPhaseChange, Data: map[string]interface{}{
				"phase": PhaseGameOver.String(),
			}},
		)
		return events
	}
	return append(events, Event{Type: EventTurnPassed, Player: r.Turn})
}
