package engine

import "fmt"

// Cell is one grid position. It holds at most one of a token or a bomb.
type Cell struct {
	Token    *Token `json:"token,omitempty"`
	Bomb     bool   `json:"bomb,omitempty"`
	Revealed bool   `json:"revealed,omitempty"`
}

// Empty reports whether the cell holds neither a token nor a bomb.
func (c Cell) Empty() bool {
	return c.Token == nil && !c.Bomb
}

// Grid is a square board of cells stored row-major: (x, y) lives at y*Size+x.
// Grid methods never mutate the receiver; edits return a new Grid.
type Grid struct {
	Size  int    `json:"size"`
	Cells []Cell `json:"cells"`
}

// NewGrid creates a size×size grid with every cell cleared.
func NewGrid(size int) (Grid, error) {
	if size <= 0 {
		return Grid{}, fmt.Errorf("grid size %d: %w", size, ErrInvalidGridSize)
	}
	return Grid{Size: size, Cells: make([]Cell, size*size)}, nil
}

// InBounds reports whether (x, y) addresses a cell of g.
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Size && y < g.Size
}

// Cell returns the cell at (x, y).
func (g Grid) Cell(x, y int) (Cell, error) {
	if !g.InBounds(x, y) {
		return Cell{}, fmt.Errorf("cell (%d,%d) on %dx%d grid: %w", x, y, g.Size, g.Size, ErrOutOfBounds)
	}
	return g.Cells[y*g.Size+x], nil
}

// Clone returns a deep copy of g. Tokens are values, so copying the pointers'
// targets keeps the copy independent of g.
func (g Grid) Clone() Grid {
	out := Grid{Size: g.Size, Cells: make([]Cell, len(g.Cells))}
	for i, c := range g.Cells {
		if c.Token != nil {
			t := *c.Token
			c.Token = &t
		}
		out.Cells[i] = c
	}
	return out
}

// Place returns a copy of g with the content of (x, y) replaced. A token clears
// any bomb and a bomb clears any token; passing nil and false clears the cell.
// Asking for both is rejected.
func (g Grid) Place(x, y int, token *Token, bomb bool) (Grid, error) {
	if !g.InBounds(x, y) {
		return g, fmt.Errorf("place at (%d,%d) on %dx%d grid: %w", x, y, g.Size, g.Size, ErrOutOfBounds)
	}
	if token != nil && bomb {
		return g, fmt.Errorf("place at (%d,%d): %w", x, y, ErrConflictingContent)
	}
	if token != nil && !token.Valid() {
		return g, fmt.Errorf("place at (%d,%d): %w", x, y, ErrInvalidToken)
	}

	out := g.Clone()
	c := &out.Cells[y*g.Size+x]
	c.Token = nil
	c.Bomb = bomb
	if token != nil {
		t := *token
		c.Token = &t
	}
	return out, nil
}

// reveal returns a copy of g with (x, y) revealed. Callers check bounds.
func (g Grid) reveal(x, y int) Grid {
	out := g.Clone()
	out.Cells[y*g.Size+x].Revealed = true
	return out
}

// CountTokens returns the number of cells holding a token.
func (g Grid) CountTokens() int {
	n := 0
	for _, c := range g.Cells {
		if c.Token != nil {
			n++
		}
	}
	return n
}

// CountBombs returns the number of cells holding a bomb.
func (g Grid) CountBombs() int {
	n := 0
	for _, c := range g.Cells {
		if c.Bomb {
			n++
		}
	}
	return n
}

func (g Grid) revealedCount() int {
	n := 0
	for _, c := range g.Cells {
		if c.Revealed {
			n++
		}
	}
	return n
}

// AllTokensRevealed reports whether every token cell has been revealed.
// Cells without a token never block it.
func (g Grid) AllTokensRevealed() bool {
	for _, c := range g.Cells {
		if c.Token != nil && !c.Revealed {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of a grid received from outside
// the engine.
func (g Grid) Validate() error {
	if g.Size <= 0 {
		return fmt.Errorf("grid size %d: %w", g.Size, ErrInvalidGridSize)
	}
	if len(g.Cells) != g.Size*g.Size {
		return fmt.Errorf("grid has %d cells, want %d: %w", len(g.Cells), g.Size*g.Size, ErrInvalidGridSize)
	}
	for i, c := range g.Cells {
		if c.Token != nil && c.Bomb {
			return fmt.Errorf("cell (%d,%d): %w", i%g.Size, i/g.Size, ErrConflictingContent)
		}
		if c.Token != nil && !c.Token.Valid() {
			return fmt.Errorf("cell (%d,%d): %w", i%g.Size, i/g.Size, ErrInvalidToken)
		}
	}
	return nil
}

// redacted returns a copy of g where unrevealed cells carry no content.
func (g Grid) redacted() Grid {
	out := g.Clone()
	for i := range out.Cells {
		if !out.Cells[i].Revealed {
			out.Cells[i] = Cell{}
		}
	}
	return out
}
