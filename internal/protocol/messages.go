package protocol

import "muuzah/internal/engine"

// Message types: Client → Server
const (
	MsgInit           = "INIT"
	MsgFindMatch      = "FIND_MATCH"
	MsgSubmitSetup    = "SUBMIT_SETUP"
	MsgAttack         = "ATTACK"
	MsgGetLeaderboard = "GET_LEADERBOARD"
	// Cell-by-cell editing, for clients that keep the setup grid on the server.
	MsgPlace        = "PLACE"
	MsgResetGrid    = "RESET_GRID"
	MsgConfirmSetup = "CONFIRM_SETUP"
)

// Message types: Server → Client
const (
	MsgMatchFound      = "MATCH_FOUND"
	MsgGameStateUpdate = "GAME_STATE_UPDATE"
	MsgAttackResult    = "ATTACK_RESULT"
	MsgLeaderboardData = "LEADERBOARD_DATA"
	MsgWaiting         = "WAITING_FOR_OPPONENT"
	MsgError           = "ERROR"
)

// SubmitSetupMsg carries a player's finished grid.
type SubmitSetupMsg struct {
	Grid engine.Grid `json:"grid"`
}

// AttackMsg targets one cell of the opponent's grid.
type AttackMsg struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PlaceMsg sets one cell of the sender's grid. No token and no bomb clears it.
type PlaceMsg struct {
	X     int           `json:"x"`
	Y     int           `json:"y"`
	Token *engine.Token `json:"token,omitempty"`
	Bomb  bool          `json:"bomb,omitempty"`
}

// LeaderboardRequest optionally limits the number of entries.
type LeaderboardRequest struct {
	Limit int `json:"limit,omitempty"`
}

// MatchFound is sent to both players once they are paired.
type MatchFound struct {
	GameID           string                  `json:"game_id"`
	Opponent         engine.Identity         `json:"opponent"`
	YouArePlayer     int                     `json:"you_are_player"`
	ShapeValues      engine.ShapeValues      `json:"shape_values,omitempty"`
	ColorMultipliers engine.ColorMultipliers `json:"color_multipliers,omitempty"`
}

// GameStateUpdate carries the recipient's view of the match, if any.
type GameStateUpdate struct {
	CurrentUser engine.Identity   `json:"current_user"`
	GameState   *engine.MatchView `json:"game_state"`
}

// AttackResult reports one resolved attack together with the recipient's
// updated view.
type AttackResult struct {
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Attacker  string           `json:"attacker"`
	Result    engine.Outcome   `json:"result"`
	Token     *engine.Token    `json:"token,omitempty"`
	Points    int              `json:"points,omitempty"`
	GameState engine.MatchView `json:"game_state"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	Wins        int    `json:"wins"`
	GamesPlayed int    `json:"games_played"`
}

// ErrorMsg is sent to a client on error.
type ErrorMsg struct {
	Message string `json:"message"`
}
