package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// BaseValues is the fixed set of shape point values shuffled for every match.
var BaseValues = []int{10, 25, 50, 100}

// Multipliers is the fixed set of color multipliers shuffled for every match.
var Multipliers = []float64{1, 1.5, 2, 2.5}

// ShapeValues maps each shape to its base point value for one match.
type ShapeValues map[Shape]int

// ColorMultipliers maps each color to its point multiplier for one match.
type ColorMultipliers map[Color]float64

// GenerateShapeValues assigns a uniform random permutation of BaseValues to the shapes.
func GenerateShapeValues() ShapeValues {
	values := slices.Clone(BaseValues)
	rand.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	sv := make(ShapeValues, len(values))
	for i, s := range AllShapes() {
		sv[s] = values[i]
	}
	return sv
}

// GenerateColorMultipliers assigns a uniform random permutation of Multipliers to the colors.
func GenerateColorMultipliers() ColorMultipliers {
	mults := slices.Clone(Multipliers)
	rand.Shuffle(len(mults), func(i, j int) {
		mults[i], mults[j] = mults[j], mults[i]
	})
	cm := make(ColorMultipliers, len(mults))
	for i, c := range AllColors() {
		cm[c] = mults[i]
	}
	return cm
}

// Validate checks that sv assigns every value of BaseValues to exactly one shape.
func (sv ShapeValues) Validate() error {
	if len(sv) != len(AllShapes()) {
		return fmt.Errorf("shape values has %d entries: %w", len(sv), ErrInvalidTable)
	}
	got := make([]int, 0, len(sv))
	for _, s := range AllShapes() {
		v, ok := sv[s]
		if !ok {
			return fmt.Errorf("shape values missing %s: %w", s, ErrInvalidTable)
		}
		got = append(got, v)
	}
	slices.Sort(got)
	if !slices.Equal(got, BaseValues) {
		return fmt.Errorf("shape values %v are not a permutation of %v: %w", got, BaseValues, ErrInvalidTable)
	}
	return nil
}

// Validate checks that cm assigns every value of Multipliers to exactly one color.
func (cm ColorMultipliers) Validate() error {
	if len(cm) != len(AllColors()) {
		return fmt.Errorf("color multipliers has %d entries: %w", len(cm), ErrInvalidTable)
	}
	got := make([]float64, 0, len(cm))
	for _, c := range AllColors() {
		m, ok := cm[c]
		if !ok {
			return fmt.Errorf("color multipliers missing %s: %w", c, ErrInvalidTable)
		}
		got = append(got, m)
	}
	slices.Sort(got)
	if !slices.Equal(got, Multipliers) {
		return fmt.Errorf("color multipliers %v are not a permutation of %v: %w", got, Multipliers, ErrInvalidTable)
	}
	return nil
}

func (sv ShapeValues) clone() ShapeValues {
	out := make(ShapeValues, len(sv))
	for k, v := range sv {
		out[k] = v
	}
	return out
}

func (cm ColorMultipliers) clone() ColorMultipliers {
	out := make(ColorMultipliers, len(cm))
	for k, v := range cm {
		out[k] = v
	}
	return out
}
