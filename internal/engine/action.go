package engine

// ActionType identifies player actions sent to Match.Apply.
type ActionType string

const (
	ActionPlace        ActionType = "place"         // set or clear one cell of the own grid
	ActionResetGrid    ActionType = "reset_grid"    // clear the own grid
	ActionConfirmSetup ActionType = "confirm_setup" // leave setup with the current grid
	ActionSubmitSetup  ActionType = "submit_setup"  // replace the grid and confirm in one step
	ActionAttack       ActionType = "attack"
)

// Action is a player's action input.
type Action struct {
	Type ActionType `json:"type"`
	// Params depend on Type:
	// place: X, Y, Token or Bomb (neither clears the cell)
	// submit_setup: Grid
	// attack: X, Y
	X     int    `json:"x,omitempty"`
	Y     int    `json:"y,omitempty"`
	Token *Token `json:"token,omitempty"`
	Bomb  bool   `json:"bomb,omitempty"`
	Grid  *Grid  `json:"grid,omitempty"`
}

// EventType identifies events emitted by the engine.
type EventType string

const (
	EventCellPlaced     EventType = "cell_placed"
	EventGridReset      EventType = "grid_reset"
	EventSetupConfirmed EventType = "setup_confirmed"
	EventPhaseChange    EventType = "phase_change"
	EventAttack         EventType = "attack"
	EventTurnPassed     EventType = "turn_passed"
	EventGameOver       EventType = "game_over"
)

// Event is emitted by the engine after state changes.
type Event struct {
	Type   EventType   `json:"type"`
	Player string      `json:"player,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}
