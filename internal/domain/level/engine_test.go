package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngine_Level_Triangular(t *testing.T) {
	e := NewEngine("TRIANGULAR", 500, 200)

	tests := []struct {
		name   string
		points int
		want   int
	}{
		{"zero points", 0, 1},
		{"negative points", -100, 1},
		{"just under first threshold", 499, 1},
		{"first threshold", 500, 2},
		{"just under second threshold", 1499, 2},
		{"second threshold", 1500, 3},
		{"third threshold", 3000, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Level(tt.points))
		})
	}
}

func TestEngine_Level_Quadratic(t *testing.T) {
	e := NewEngine("QUADRATIC", 500, 200)

	tests := []struct {
		name   string
		points int
		want   int
	}{
		{"zero points", 0, 1},
		{"just under first threshold", 499, 1},
		{"first threshold", 500, 2},
		{"mid curve", 2000, 3},
		{"just under fourth", 4499, 3},
		{"fourth threshold", 4500, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Level(tt.points))
		})
	}
}

func TestEngine_Level_Linear(t *testing.T) {
	e := NewEngine("LINEAR", 500, 200)

	// Cumulative thresholds: 500, 1200, 2100, 3200, ...
	tests := []struct {
		name   string
		points int
		want   int
	}{
		{"zero points", 0, 1},
		{"just under first step", 499, 1},
		{"first step", 500, 2},
		{"just under second step", 1199, 2},
		{"second step", 1200, 3},
		{"third step", 2100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Level(tt.points))
		})
	}
}

func TestEngine_Level_UnknownFormulaFallsBack(t *testing.T) {
	e := NewEngine("FIBONACCI", 500, 200)

	assert.Equal(t, 1, e.Level(0))
	assert.Equal(t, 1, e.Level(999))
	assert.Equal(t, 2, e.Level(1000))
	assert.Equal(t, 6, e.Level(5000))
}

func TestEngine_Level_FormulaNameIsCaseInsensitive(t *testing.T) {
	upper := NewEngine("TRIANGULAR", 500, 200)
	lower := NewEngine("triangular", 500, 200)

	for _, points := range []int{0, 499, 500, 1499, 1500, 9999} {
		assert.Equal(t, upper.Level(points), lower.Level(points))
	}
}

func TestEngine_Level_IsMonotonic(t *testing.T) {
	engines := map[string]*Engine{
		"triangular": NewEngine("TRIANGULAR", 500, 200),
		"quadratic":  NewEngine("QUADRATIC", 500, 200),
		"linear":     NewEngine("LINEAR", 500, 200),
		"fallback":   NewEngine("UNKNOWN", 500, 200),
	}

	for name, e := range engines {
		t.Run(name, func(t *testing.T) {
			prev := e.Level(0)
			for points := 1; points <= 20000; points += 7 {
				lvl := e.Level(points)
				assert.GreaterOrEqual(t, lvl, prev, "level dropped at %d points", points)
				prev = lvl
			}
		})
	}
}

func TestEngine_PointsToNextLevel(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		level   int
		want    int
	}{
		{"triangular level 1", "TRIANGULAR", 1, 1000},
		{"triangular level 2", "TRIANGULAR", 2, 1500},
		{"triangular level 5", "TRIANGULAR", 5, 3000},
		{"quadratic level 1", "QUADRATIC", 1, 1500},
		{"quadratic level 3", "QUADRATIC", 3, 3500},
		{"linear level 1", "LINEAR", 1, 700},
		{"linear level 4", "LINEAR", 4, 1300},
		{"fallback is flat", "UNKNOWN", 7, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.formula, 500, 200)
			assert.Equal(t, tt.want, e.PointsToNextLevel(tt.level))
		})
	}
}

func TestEngine_ProgressPercent(t *testing.T) {
	e := NewEngine("TRIANGULAR", 500, 200)

	// Level 1 bucket is 1000 points wide.
	assert.InDelta(t, 0, e.ProgressPercent(0, 1), 0.001)
	assert.InDelta(t, 50, e.ProgressPercent(500, 1), 0.001)
	assert.InDelta(t, 100, e.ProgressPercent(1000, 1), 0.001)

	// Never exceeds 100 even when points overshoot the bucket.
	assert.InDelta(t, 100, e.ProgressPercent(25000, 1), 0.001)
}

func TestEngine_ProgressPercent_ZeroBucket(t *testing.T) {
	e := NewEngine("LINEAR", 0, 0)

	assert.InDelta(t, 100, e.ProgressPercent(123, 1), 0.001)
}
