package engine

import "fmt"

// Phase represents the current phase of the match state machine.
type Phase int

const (
	PhaseSetupPlayer1 Phase = iota // player 1 arranging their grid
	PhaseSetupPlayer2              // player 2 arranging their grid
	PhaseBattle                    // alternating attacks
	PhaseGameOver                  // winner decided, terminal
)

var phaseNames = map[Phase]string{
	PhaseSetupPlayer1: "setup-player1",
	PhaseSetupPlayer2: "setup-player2",
	PhaseBattle:       "battle",
	PhaseGameOver:     "game-over",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	s, ok := phaseNames[p]
	if !ok {
		return nil, fmt.Errorf("marshal phase %d: %w", int(p), ErrCorruptSnapshot)
	}
	return []byte(s), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for k, s := range phaseNames {
		if s == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("phase %q: %w", b, ErrCorruptSnapshot)
}

// WinReason explains how a match ended.
type WinReason string

const (
	WinNone        WinReason = ""
	WinSuddenDeath WinReason = "sudden-death" // attacker ran out of lives
	WinScore       WinReason = "score"        // every token of a grid was revealed
)
