package engine

import "math"

// CalculateTokenScore returns the points for revealing token:
// shape value × color multiplier, rounded half up (62.5 scores 63).
// All point awards go through this function.
func CalculateTokenScore(token Token, values ShapeValues, multipliers ColorMultipliers) int {
	return int(math.Floor(float64(values[token.Shape])*multipliers[token.Color] + 0.5))
}

// IsSetupComplete reports whether grid holds exactly the required number of
// tokens and bombs. Under- and over-placement both fail.
func IsSetupComplete(grid Grid, requiredTokens, requiredBombs int) bool {
	return grid.CountTokens() == requiredTokens && grid.CountBombs() == requiredBombs
}
