// internal/geometry/pattern_test.go
package geometry

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/canvasagent/internal/types"
)

const epsilon = 1e-9

func ptr(v float64) *float64 { return &v }

func TestGridDimensions(t *testing.T) {
	tests := []struct {
		name               string
		count, rows, cols  int
		wantRows, wantCols int
	}{
		{"unset 500", 500, 0, 0, 23, 22},
		{"unset perfect square", 100, 0, 0, 10, 10},
		{"unset single", 1, 0, 0, 1, 1},
		{"unset 2", 2, 0, 0, 2, 1},
		{"rows only", 10, 2, 0, 2, 5},
		{"cols only", 10, 0, 3, 4, 3},
		{"explicit fits", 6, 2, 3, 2, 3},
		{"explicit too small grows rows", 10, 2, 3, 4, 3},
		{"zero count", 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, cols := GridDimensions(tt.count, tt.rows, tt.cols)
			if rows != tt.wantRows || cols != tt.wantCols {
				t.Errorf("GridDimensions(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.count, tt.rows, tt.cols, rows, cols, tt.wantRows, tt.wantCols)
			}
		})
	}
}

func TestCompilePattern_Grid500(t *testing.T) {
	shapes := CompilePattern(PatternSpec{
		Pattern:   PatternGrid,
		ShapeType: types.ShapeRectangle,
		Count:     500,
	})

	if len(shapes) != 500 {
		t.Fatalf("len(shapes) = %d, want 500", len(shapes))
	}

	seen := make(map[[2]float64]bool, len(shapes))
	maxCol := 0
	for i, s := range shapes {
		key := [2]float64{s.X, s.Y}
		if seen[key] {
			t.Fatalf("duplicate coordinate %v at index %d", key, i)
		}
		seen[key] = true

		col := int(math.Round((s.X - DefaultLinearOrigin.X) / (DefaultShapeSize + DefaultSpacing)))
		if col > maxCol {
			maxCol = col
		}
	}
	if maxCol != 21 {
		t.Errorf("max column index = %d, want 21 (22 columns)", maxCol)
	}

	last := shapes[len(shapes)-1]
	wantRow := float64(499 / 22)
	if got := (last.Y - DefaultLinearOrigin.Y) / (DefaultShapeSize + DefaultSpacing); math.Abs(got-wantRow) > epsilon {
		t.Errorf("last shape row = %v, want %v", got, wantRow)
	}
}

func TestCompilePattern_GridRowMajor(t *testing.T) {
	shapes := CompilePattern(PatternSpec{
		Pattern: PatternGrid,
		Count:   5,
		Layout:  PatternLayout{Cols: 2, Spacing: ptr(0), Origin: &Point{X: 0, Y: 0}},
	})

	want := []Point{{0, 0}, {50, 0}, {0, 50}, {50, 50}, {0, 100}}
	if len(shapes) != len(want) {
		t.Fatalf("len(shapes) = %d, want %d", len(shapes), len(want))
	}
	for i, w := range want {
		if shapes[i].X != w.X || shapes[i].Y != w.Y {
			t.Errorf("shape %d at (%v, %v), want (%v, %v)", i, shapes[i].X, shapes[i].Y, w.X, w.Y)
		}
	}
}

func TestCompilePattern_RowAndColumn(t *testing.T) {
	row := CompilePattern(PatternSpec{Pattern: PatternRow, Count: 4, Layout: PatternLayout{Spacing: ptr(20)}})
	for i, s := range row {
		wantX := DefaultLinearOrigin.X + float64(i)*70
		if s.X != wantX || s.Y != DefaultLinearOrigin.Y {
			t.Errorf("row shape %d at (%v, %v), want (%v, %v)", i, s.X, s.Y, wantX, DefaultLinearOrigin.Y)
		}
	}

	col := CompilePattern(PatternSpec{
		Pattern: PatternColumn,
		Count:   3,
		Style:   Style{Height: 30},
		Layout:  PatternLayout{Origin: &Point{X: 5, Y: 5}},
	})
	for i, s := range col {
		wantY := 5 + float64(i)*40
		if s.X != 5 || s.Y != wantY {
			t.Errorf("column shape %d at (%v, %v), want (5, %v)", i, s.X, s.Y, wantY)
		}
	}
}

func TestCompilePattern_Circle(t *testing.T) {
	shapes := CompilePattern(PatternSpec{
		Pattern: PatternCircle,
		Count:   8,
		Layout:  PatternLayout{Radius: 200, Origin: &Point{X: 0, Y: 0}},
	})
	if len(shapes) != 8 {
		t.Fatalf("len(shapes) = %d, want 8", len(shapes))
	}

	step := 2 * math.Pi / 8
	for i, s := range shapes {
		cx, cy := s.Center()
		if d := math.Hypot(cx, cy); math.Abs(d-200) > 1e-6 {
			t.Errorf("shape %d distance = %v, want 200", i, d)
		}
		if i == 0 {
			continue
		}
		px, py := shapes[i-1].Center()
		delta := math.Atan2(cy, cx) - math.Atan2(py, px)
		if delta < 0 {
			delta += 2 * math.Pi
		}
		if math.Abs(delta-step) > 1e-6 {
			t.Errorf("angle between shape %d and %d = %v, want %v", i-1, i, delta, step)
		}
	}
}

func TestCompilePattern_Spiral(t *testing.T) {
	const count = 20
	shapes := CompilePattern(PatternSpec{
		Pattern: PatternSpiral,
		Count:   count,
		Layout:  PatternLayout{Radius: 100, Origin: &Point{}},
	})
	if len(shapes) != count {
		t.Fatalf("len(shapes) = %d, want %d", len(shapes), count)
	}

	for i, s := range shapes {
		cx, cy := s.Center()
		want := 100 * float64(i) / count
		if d := math.Hypot(cx, cy); math.Abs(d-want) > 1e-6 {
			t.Errorf("shape %d radius = %v, want %v", i, d, want)
		}
	}

	// Shape 10 completes one full turn: back on the positive x axis.
	cx, cy := shapes[10].Center()
	if math.Abs(cy) > 1e-6 || cx <= 0 {
		t.Errorf("shape 10 center = (%v, %v), want on positive x axis", cx, cy)
	}
}

func TestCompilePattern_StyleAndPalette(t *testing.T) {
	shapes := CompilePattern(PatternSpec{
		Pattern:   PatternRow,
		ShapeType: types.ShapeCircle,
		Count:     5,
		Style: Style{
			Palette:     []string{"#f00", "#0f0"},
			Opacity:     ptr(0.5),
			StrokeWidth: ptr(0),
			BlendMode:   "multiply",
		},
	})

	wantFill := []string{"#f00", "#0f0", "#f00", "#0f0", "#f00"}
	for i, s := range shapes {
		if s.Type != types.ShapeCircle {
			t.Errorf("shape %d type = %v, want circle", i, s.Type)
		}
		if s.Fill != wantFill[i] {
			t.Errorf("shape %d fill = %v, want %v", i, s.Fill, wantFill[i])
		}
		if s.Opacity != 0.5 || s.StrokeWidth != 0 || s.BlendMode != "multiply" {
			t.Errorf("shape %d style = %+v, want overrides applied", i, s)
		}
	}
}

func TestCompilePattern_TextShapes(t *testing.T) {
	shapes := CompilePattern(PatternSpec{Pattern: PatternColumn, ShapeType: types.ShapeText, Count: 2})
	if shapes[0].Text != "Item 1" || shapes[1].Text != "Item 2" {
		t.Errorf("text = %q, %q, want Item 1, Item 2", shapes[0].Text, shapes[1].Text)
	}
	if shapes[0].FontSize != DefaultFontSize {
		t.Errorf("FontSize = %v, want %v", shapes[0].FontSize, DefaultFontSize)
	}
}

func TestCompilePattern_NonPositiveCount(t *testing.T) {
	if shapes := CompilePattern(PatternSpec{Pattern: PatternGrid, Count: 0}); len(shapes) != 0 {
		t.Errorf("len(shapes) = %d, want 0", len(shapes))
	}
}

// Property-based test: every pattern emits exactly count descriptors
func TestCompilePattern_PropertyExactCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("len(CompilePattern) == count for every pattern", prop.ForAll(
		func(count, rows, cols, kindIdx int) bool {
			spec := PatternSpec{
				Pattern: PatternKinds[kindIdx],
				Count:   count,
				Layout:  PatternLayout{Rows: rows, Cols: cols},
			}
			return len(CompilePattern(spec)) == count
		},
		gen.IntRange(1, types.MaxPatternCount),
		gen.IntRange(0, 40),
		gen.IntRange(0, 40),
		gen.IntRange(0, len(PatternKinds)-1),
	))

	properties.TestingRun(t)
}

// Property-based test: grids never repeat a coordinate
func TestCompilePattern_PropertyGridUnique(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("grid coordinates are unique", prop.ForAll(
		func(count int, spacing float64) bool {
			shapes := CompilePattern(PatternSpec{
				Pattern: PatternGrid,
				Count:   count,
				Layout:  PatternLayout{Spacing: &spacing},
			})
			seen := make(map[[2]float64]bool, len(shapes))
			for _, s := range shapes {
				key := [2]float64{s.X, s.Y}
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			return true
		},
		gen.IntRange(1, types.MaxPatternCount),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

// Property-based test: circle centers sit on the configured radius
func TestCompilePattern_PropertyCircleRadius(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("circle centers are radius away from origin", prop.ForAll(
		func(count int, radius, ox, oy float64) bool {
			shapes := CompilePattern(PatternSpec{
				Pattern: PatternCircle,
				Count:   count,
				Layout:  PatternLayout{Radius: radius, Origin: &Point{X: ox, Y: oy}},
			})
			for _, s := range shapes {
				cx, cy := s.Center()
				if math.Abs(math.Hypot(cx-ox, cy-oy)-radius) > 1e-6 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 360),
		gen.Float64Range(1, 1000),
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
	))

	properties.TestingRun(t)
}
