package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidAction   = errors.New("invalid action")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrWrongPhase      = errors.New("wrong phase for this action")
	ErrMatchOver       = errors.New("match is over")
	ErrOutOfBounds     = errors.New("coordinates out of bounds")
	ErrCellRevealed    = errors.New("cell already revealed")
	ErrSetupIncomplete = errors.New("setup incomplete")
	ErrDuplicatePlayer = errors.New("both seats have the same player")

	// Invariant violations: the input was built outside the engine's rules.
	ErrInvalidGridSize    = errors.New("invalid grid size")
	ErrInvalidConfig      = errors.New("invalid match config")
	ErrConflictingContent = errors.New("cell holds both a token and a bomb")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownShape       = errors.New("unknown shape")
	ErrUnknownColor       = errors.New("unknown color")
	ErrInvalidTable       = errors.New("invalid value table")
	ErrCorruptSnapshot    = errors.New("corrupt match snapshot")
)

// now is the match clock.
var now = func() time.Time { return time.Now().UTC().Round(0) }

// Identity names a player as the host knows them.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Match holds the entire state of one game between two players.
// Players[0] is player 1 and Players[1] is player 2.
type Match struct {
	ID      string      `json:"id"`
	Players [2]*Player  `json:"players"`
	Config  MatchConfig `json:"config"`

	ShapeValues      ShapeValues      `json:"shape_values"`
	ColorMultipliers ColorMultipliers `json:"color_multipliers"`

	Phase     Phase     `json:"phase"`
	Turn      string    `json:"turn,omitempty"` // attacker's player ID during battle
	Winner    string    `json:"winner,omitempty"`
	WinReason WinReason `json:"win_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMatch creates a match in setup-player1 with freshly shuffled tables.
func NewMatch(id string, p1, p2 Identity, cfg MatchConfig) (*Match, error) {
	return NewMatchWithTables(id, p1, p2, cfg, GenerateShapeValues(), GenerateColorMultipliers())
}

// NewMatchWithTables creates a match with the given tables. The tables are
// copied and validated; a table missing a shape or color is rejected.
func NewMatchWithTables(id string, p1, p2 Identity, cfg MatchConfig, values ShapeValues, multipliers ColorMultipliers) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p1.ID == p2.ID {
		return nil, fmt.Errorf("player %q: %w", p1.ID, ErrDuplicatePlayer)
	}
	if err := values.Validate(); err != nil {
		return nil, err
	}
	if err := multipliers.Validate(); err != nil {
		return nil, err
	}

	m := &Match{
		ID:               id,
		Config:           cfg,
		ShapeValues:      values.clone(),
		ColorMultipliers: multipliers.clone(),
		Phase:            PhaseSetupPlayer1,
	}
	for i, ident := range []Identity{p1, p2} {
		p, err := NewPlayer(ident.ID, ident.Name, cfg)
		if err != nil {
			return nil, err
		}
		m.Players[i] = p
	}
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	return m, nil
}

// Apply is the single entry point for player actions.
func (m *Match) Apply(playerID string, action Action) ([]Event, error) {
	switch action.Type {
	case ActionPlace:
		return m.applyPlace(playerID, action)
	case ActionResetGrid:
		return m.applyResetGrid(playerID)
	case ActionConfirmSetup:
		return m.ConfirmSetup(playerID)
	case ActionSubmitSetup:
		if action.Grid == nil {
			return nil, fmt.Errorf("submit_setup without grid: %w", ErrInvalidAction)
		}
		return m.SubmitSetup(playerID, *action.Grid)
	case ActionAttack:
		res, err := m.Attack(playerID, action.X, action.Y)
		if err != nil {
			return nil, err
		}
		return res.events(), nil
	default:
		return nil, ErrInvalidAction
	}
}

func (m *Match) applyPlace(playerID string, action Action) ([]Event, error) {
	if err := m.Place(playerID, action.X, action.Y, action.Token, action.Bomb); err != nil {
		return nil, err
	}
	return []Event{
		{Type: EventCellPlaced, Player: playerID, Data: map[string]interface{}{
			"x": action.X, "y": action.Y,
		}},
	}, nil
}

func (m *Match) applyResetGrid(playerID string) ([]Event, error) {
	if err := m.ResetGrid(playerID); err != nil {
		return nil, err
	}
	return []Event{{Type: EventGridReset, Player: playerID}}, nil
}

// setupPlayer returns the player allowed to edit during the current phase.
func (m *Match) setupPlayer(playerID string) (*Player, error) {
	if m.Phase == PhaseGameOver {
		return nil, ErrMatchOver
	}
	if m.Phase != PhaseSetupPlayer1 && m.Phase != PhaseSetupPlayer2 {
		return nil, ErrWrongPhase
	}
	p := m.GetPlayer(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	owner := m.Players[0]
	if m.Phase == PhaseSetupPlayer2 {
		owner = m.Players[1]
	}
	if p != owner {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// Place sets or clears one cell of the player's own grid during their setup.
// Ordering is unrestricted; only leaving setup is validated.
func (m *Match) Place(playerID string, x, y int, token *Token, bomb bool) error {
	p, err := m.setupPlayer(playerID)
	if err != nil {
		return err
	}
	grid, err := p.Grid.Place(x, y, token, bomb)
	if err != nil {
		return err
	}
	p.Grid = grid
	m.UpdatedAt = now()
	return nil
}

// ResetGrid clears the player's own grid during their setup.
func (m *Match) ResetGrid(playerID string) error {
	p, err := m.setupPlayer(playerID)
	if err != nil {
		return err
	}
	grid, err := NewGrid(m.Config.GridSize)
	if err != nil {
		return err
	}
	p.Grid = grid
	m.UpdatedAt = now()
	return nil
}

// ConfirmSetup ends the player's setup if their grid holds exactly the
// required tokens and bombs.
func (m *Match) ConfirmSetup(playerID string) ([]Event, error) {
	p, err := m.setupPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if !IsSetupComplete(p.Grid, m.Config.RequiredTokens, m.Config.RequiredBombs) {
		return nil, fmt.Errorf("%d/%d tokens, %d/%d bombs: %w",
			p.Grid.CountTokens(), m.Config.RequiredTokens,
			p.Grid.CountBombs(), m.Config.RequiredBombs, ErrSetupIncomplete)
	}

	p.SetupComplete = true
	events := []Event{{Type: EventSetupConfirmed, Player: playerID}}

	if m.Phase == PhaseSetupPlayer1 {
		m.Phase = PhaseSetupPlayer2
	} else {
		m.Phase = PhaseBattle
		m.Turn = m.Players[0].ID
	}
	m.UpdatedAt = now()

	events = append(events, Event{
		Type: EventPhaseChange,
		Data: map[string]interface{}{"phase": m.Phase.String(), "turn": m.Turn},
	})
	return events, nil
}

// SubmitSetup replaces the player's grid and confirms it in one step.
// On any error the match is left unchanged.
func (m *Match) SubmitSetup(playerID string, grid Grid) ([]Event, error) {
	p, err := m.setupPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if grid.Size != m.Config.GridSize {
		return nil, fmt.Errorf("submitted %dx%d grid, want %dx%d: %w",
			grid.Size, grid.Size, m.Config.GridSize, m.Config.GridSize, ErrInvalidGridSize)
	}
	if !IsSetupComplete(grid, m.Config.RequiredTokens, m.Config.RequiredBombs) {
		return nil, fmt.Errorf("%d/%d tokens, %d/%d bombs: %w",
			grid.CountTokens(), m.Config.RequiredTokens,
			grid.CountBombs(), m.Config.RequiredBombs, ErrSetupIncomplete)
	}

	// Nothing is revealed before battle, whatever the client sent.
	clean := grid.Clone()
	for i := range clean.Cells {
		clean.Cells[i].Revealed = false
	}
	prev := p.Grid
	p.Grid = clean
	events, err := m.ConfirmSetup(playerID)
	if err != nil {
		p.Grid = prev
		return nil, err
	}
	return events, nil
}

// GetPlayer finds a player by ID.
func (m *Match) GetPlayer(id string) *Player {
	for _, p := range m.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the other player of id, or nil if id is not seated.
func (m *Match) Opponent(id string) *Player {
	switch {
	case m.Players[0] != nil && m.Players[0].ID == id:
		return m.Players[1]
	case m.Players[1] != nil && m.Players[1].ID == id:
		return m.Players[0]
	}
	return nil
}

// Slot returns 1 or 2 for a seated player and 0 otherwise.
func (m *Match) Slot(id string) int {
	for i, p := range m.Players {
		if p != nil && p.ID == id {
			return i + 1
		}
	}
	return 0
}

// IsOver reports whether the match reached game-over.
func (m *Match) IsOver() bool {
	return m.Phase == PhaseGameOver
}

// Clone returns a deep copy of m.
func (m *Match) Clone() *Match {
	c := *m
	for i, p := range m.Players {
		if p != nil {
			c.Players[i] = p.clone()
		}
	}
	c.ShapeValues = m.ShapeValues.clone()
	c.ColorMultipliers = m.ColorMultipliers.clone()
	return &c
}
