package engine

import "time"

// PlayerViewData is one seat as seen by a particular viewer.
type PlayerViewData struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slot          int    `json:"slot"`
	Lives         int    `json:"lives"`
	Score         int    `json:"score"`
	SetupComplete bool   `json:"setup_complete"`
	TokensFound   int    `json:"tokens_found"`
	Grid          Grid   `json:"grid"`
}

// MatchView is the match state a client may see. Unrevealed cells of any grid
// the viewer does not own are blanked.
type MatchView struct {
	ID               string           `json:"id"`
	Phase            Phase            `json:"phase"`
	Config           MatchConfig      `json:"config"`
	ShapeValues      ShapeValues      `json:"shape_values"`
	ColorMultipliers ColorMultipliers `json:"color_multipliers"`
	Players          []PlayerViewData `json:"players"`
	Turn             string           `json:"turn,omitempty"`
	Winner           string           `json:"winner,omitempty"`
	WinReason        WinReason        `json:"win_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	You      int  `json:"you"` // viewer's slot, 0 for spectators
	IsMyTurn bool `json:"is_my_turn"`
	CanSetup bool `json:"can_setup"`
}

// ViewFor returns the match as visible to playerID. An unknown or empty ID
// yields the spectator view with both grids redacted.
func (m *Match) ViewFor(playerID string) MatchView {
	v := MatchView{
		ID:               m.ID,
		Phase:            m.Phase,
		Config:           m.Config,
		ShapeValues:      m.ShapeValues.clone(),
		ColorMultipliers: m.ColorMultipliers.clone(),
		Turn:             m.Turn,
		Winner:           m.Winner,
		WinReason:        m.WinReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		You:              m.Slot(playerID),
	}

	for i, p := range m.Players {
		pv := PlayerViewData{
			ID:            p.ID,
			Name:          p.Name,
			Slot:          i + 1,
			Lives:         p.Lives,
			Score:         p.Score,
			SetupComplete: p.SetupComplete,
		}
		for _, c := range p.Grid.Cells {
			if c.Token != nil && c.Revealed {
				pv.TokensFound++
			}
		}
		if playerID != "" && p.ID == playerID {
			pv.Grid = p.Grid.Clone()
		} else {
			pv.Grid = p.Grid.redacted()
		}
		v.Players = append(v.Players, pv)
	}

	if v.You != 0 {
		v.IsMyTurn = m.Phase == PhaseBattle && m.Turn == playerID
		_, err := m.setupPlayer(playerID)
		v.CanSetup = err == nil
	}
	return v
}
