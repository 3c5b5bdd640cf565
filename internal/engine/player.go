package engine

// Player holds one player's state within a match.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Grid          Grid   `json:"grid"`
	Lives         int    `json:"lives"`          // only decreases
	Score         int    `json:"score"`          // only increases
	SetupComplete bool   `json:"setup_complete"` // confirmed a valid grid
}

func NewPlayer(id, name string, cfg MatchConfig) (*Player, error) {
	grid, err := NewGrid(cfg.GridSize)
	if err != nil {
		return nil, err
	}
	return &Player{
		ID:    id,
		Name:  name,
		Grid:  grid,
		Lives: cfg.StartingLives,
	}, nil
}

func (p *Player) clone() *Player {
	c := *p
	c.Grid = p.Grid.Clone()
	return &c
}
