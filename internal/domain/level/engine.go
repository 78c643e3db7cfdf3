// Package level implements the leveling engine: the pure mapping from
// cumulative points to a level number and back to level thresholds.
// No I/O and no hidden state: everything is derived from the configured
// formula and its two parameters.
package level

import (
	"math"
	"strings"
)

// Formula selects the growth curve of level thresholds.
type Formula string

const (
	// FormulaTriangular grows thresholds as base·n·(n+1)/2.
	FormulaTriangular Formula = "TRIANGULAR"

	// FormulaQuadratic grows thresholds as base·n².
	FormulaQuadratic Formula = "QUADRATIC"

	// FormulaLinear grows each step by base + increment·(level-1).
	FormulaLinear Formula = "LINEAR"
)

// fallbackStep is the flat per-level cost used when the configured formula
// name is not recognized.
const fallbackStep = 1000

// Engine computes levels and level thresholds under one formula.
// An Engine is immutable and safe for concurrent use.
type Engine struct {
	formula   Formula
	base      int
	increment int
}

// NewEngine creates an engine for the given formula and parameters.
// The formula name is matched case-insensitively; unrecognized names select
// the flat fallback of one level per 1000 points.
func NewEngine(formula string, base, increment int) *Engine {
	return &Engine{
		formula:   Formula(strings.ToUpper(strings.TrimSpace(formula))),
		base:      base,
		increment: increment,
	}
}

// Formula returns the configured formula.
func (e *Engine) Formula() Formula {
	return e.formula
}

// Level returns the level for the given cumulative points. Always ≥ 1;
// any totalPoints ≤ 0 maps to level 1 under every formula.
func (e *Engine) Level(totalPoints int) int {
	if totalPoints <= 0 {
		return 1
	}

	switch e.formula {
	case FormulaTriangular:
		return e.triangularLevel(totalPoints)
	case FormulaQuadratic:
		return e.quadraticLevel(totalPoints)
	case FormulaLinear:
		return e.linearLevel(totalPoints)
	default:
		return 1 + totalPoints/fallbackStep
	}
}

// triangularLevel finds the smallest n with base·n·(n+1)/2 > total by solving
// the quadratic: n = (-1 + √(1 + 8·total/base)) / 2, then +1.
func (e *Engine) triangularLevel(total int) int {
	n := (-1 + math.Sqrt(1+8*float64(total)/float64(e.base))) / 2
	if lvl := int(math.Floor(n)) + 1; lvl > 1 {
		return lvl
	}
	return 1
}

// quadraticLevel inverts base·n² ≈ total.
func (e *Engine) quadraticLevel(total int) int {
	n := math.Sqrt(float64(total) / float64(e.base))
	if lvl := int(math.Floor(n)) + 1; lvl > 1 {
		return lvl
	}
	return 1
}

// linearLevel walks the cumulative thresholds base + increment·(level-1)
// until the running sum exceeds the total.
func (e *Engine) linearLevel(total int) int {
	lvl := 1
	sum := 0
	for sum <= total {
		step := e.base + e.increment*(lvl-1)
		if step <= 0 {
			return lvl
		}
		sum += step
		lvl++
	}
	return lvl - 1
}

// PointsToNextLevel returns how many points separate the cumulative threshold
// of currentLevel from that of currentLevel+1 under the configured formula.
func (e *Engine) PointsToNextLevel(currentLevel int) int {
	switch e.formula {
	case FormulaTriangular:
		// base·(L+1)(L+2)/2 − base·L(L+1)/2
		current := e.base * currentLevel * (currentLevel + 1) / 2
		next := e.base * (currentLevel + 1) * (currentLevel + 2) / 2
		return next - current
	case FormulaQuadratic:
		// base·(L+1)² − base·L²
		current := e.base * currentLevel * currentLevel
		next := e.base * (currentLevel + 1) * (currentLevel + 1)
		return next - current
	case FormulaLinear:
		return e.base + e.increment*currentLevel
	default:
		return fallbackStep
	}
}

// ProgressPercent returns how far (0–100) the user has progressed through the
// current level bucket. Defined as 100 when the bucket size is zero.
func (e *Engine) ProgressPercent(totalPoints, currentLevel int) float64 {
	step := e.PointsToNextLevel(currentLevel)
	if step <= 0 {
		return 100
	}
	return math.Min(float64(totalPoints)/float64(step)*100, 100)
}
