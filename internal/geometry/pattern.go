// internal/geometry/pattern.go
package geometry

import (
	"fmt"
	"math"

	"github.com/solatis/canvasagent/internal/types"
)

/*
 * Bulk pattern compilation.
 *
 * Maps a PatternSpec to exactly Count shape descriptors:
 *   - grid:   row-major over rows x cols cells, stops at Count
 *   - row:    left to right along x
 *   - column: top to bottom along y
 *   - circle: evenly spaced on a circle, angle step 2*pi/Count
 *   - spiral: angle step 2*pi/10, radius grows linearly radius*i/Count
 *
 * Pitch between neighbouring cells is shape size + spacing, so any spacing >= 0
 * yields distinct coordinates. Radial patterns position shape centers; descriptors
 * store the top-left corner.
 */

// CompilePattern expands a bulk pattern into ordered shape descriptors.
// Returns exactly spec.Count descriptors (none for Count <= 0).
func CompilePattern(spec PatternSpec) []types.ShapeDescriptor {
	count := spec.Count
	if count <= 0 {
		return nil
	}
	if count > types.MaxPatternCount {
		count = types.MaxPatternCount
	}

	style := resolveStyle(spec.ShapeType, spec.Style)
	points := placePattern(spec.Pattern, count, style, spec.Layout)

	shapes := make([]types.ShapeDescriptor, 0, count)
	for i, p := range points {
		shapes = append(shapes, style.shapeAt(i, p.X, p.Y))
	}
	return shapes
}

// GridDimensions resolves the rows and columns of a grid holding count shapes.
// Unset rows come from ceil(sqrt(count)); unset columns from ceil(count/rows).
// Explicit dimensions too small for count grow the row count so every shape fits.
func GridDimensions(count, rows, cols int) (int, int) {
	if count <= 0 {
		return 0, 0
	}
	switch {
	case rows > 0 && cols > 0:
		if rows*cols < count {
			rows = ceilDiv(count, cols)
		}
	case rows > 0:
		cols = ceilDiv(count, rows)
	case cols > 0:
		rows = ceilDiv(count, cols)
	default:
		rows = int(math.Ceil(math.Sqrt(float64(count))))
		cols = ceilDiv(count, rows)
	}
	return rows, cols
}

// placePattern returns top-left positions for count shapes.
func placePattern(kind PatternKind, count int, style resolvedStyle, layout PatternLayout) []Point {
	spacing := DefaultSpacing
	if layout.Spacing != nil && *layout.Spacing >= 0 {
		spacing = *layout.Spacing
	}
	pitchX := style.width + spacing
	pitchY := style.height + spacing

	switch kind {
	case PatternRow:
		origin := originOr(layout.Origin, DefaultLinearOrigin)
		return linear(count, origin, pitchX, 0)
	case PatternColumn:
		origin := originOr(layout.Origin, DefaultLinearOrigin)
		return linear(count, origin, 0, pitchY)
	case PatternCircle:
		center := originOr(layout.Origin, DefaultRadialCenter)
		return circle(count, center, radiusOr(layout.Radius), style)
	case PatternSpiral:
		center := originOr(layout.Origin, DefaultRadialCenter)
		return spiral(count, center, radiusOr(layout.Radius), style)
	default:
		origin := originOr(layout.Origin, DefaultLinearOrigin)
		rows, cols := GridDimensions(count, layout.Rows, layout.Cols)
		return grid(count, rows, cols, origin, pitchX, pitchY)
	}
}

func grid(count, rows, cols int, origin Point, pitchX, pitchY float64) []Point {
	points := make([]Point, 0, count)
	for r := 0; r < rows && len(points) < count; r++ {
		for c := 0; c < cols && len(points) < count; c++ {
			points = append(points, Point{
				X: origin.X + float64(c)*pitchX,
				Y: origin.Y + float64(r)*pitchY,
			})
		}
	}
	return points
}

func linear(count int, origin Point, stepX, stepY float64) []Point {
	points := make([]Point, count)
	for i := range points {
		points[i] = Point{
			X: origin.X + float64(i)*stepX,
			Y: origin.Y + float64(i)*stepY,
		}
	}
	return points
}

func circle(count int, center Point, radius float64, style resolvedStyle) []Point {
	step := 2 * math.Pi / float64(count)
	points := make([]Point, count)
	for i := range points {
		theta := float64(i) * step
		points[i] = centered(center, radius, theta, style)
	}
	return points
}

func spiral(count int, center Point, radius float64, style resolvedStyle) []Point {
	step := 2 * math.Pi / SpiralStepsPerTurn
	points := make([]Point, count)
	for i := range points {
		r := radius * float64(i) / float64(count)
		points[i] = centered(center, r, float64(i)*step, style)
	}
	return points
}

// centered converts a polar center position to the descriptor's top-left corner.
func centered(center Point, r, theta float64, style resolvedStyle) Point {
	return Point{
		X: center.X + r*math.Cos(theta) - style.width/2,
		Y: center.Y + r*math.Sin(theta) - style.height/2,
	}
}

func originOr(p *Point, fallback Point) Point {
	if p == nil {
		return fallback
	}
	return *p
}

func radiusOr(r float64) float64 {
	if r <= 0 {
		return DefaultRadius
	}
	return r
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// resolvedStyle is a Style with every default applied.
type resolvedStyle struct {
	kind         types.ShapeKind
	width        float64
	height       float64
	fill         string
	stroke       string
	strokeWidth  float64
	opacity      float64
	blendMode    string
	cornerRadius float64
	palette      []string
}

func resolveStyle(kind types.ShapeKind, s Style) resolvedStyle {
	if kind == "" {
		kind = types.ShapeRectangle
	}
	rs := resolvedStyle{
		kind:         kind,
		width:        DefaultShapeSize,
		height:       DefaultShapeSize,
		fill:         DefaultFill,
		stroke:       DefaultStroke,
		strokeWidth:  DefaultStrokeWidth,
		opacity:      DefaultOpacity,
		blendMode:    DefaultBlendMode,
		cornerRadius: s.CornerRadius,
		palette:      s.Palette,
	}
	if kind == types.ShapeText {
		rs.fill = DefaultTextColor
		rs.stroke = ""
		rs.strokeWidth = 0
		rs.width = 80
		rs.height = DefaultFontSize * 1.5
	}
	if s.Width > 0 {
		rs.width = s.Width
	}
	if s.Height > 0 {
		rs.height = s.Height
	}
	if s.Fill != "" {
		rs.fill = s.Fill
	}
	if s.Stroke != "" {
		rs.stroke = s.Stroke
	}
	if s.StrokeWidth != nil && *s.StrokeWidth >= 0 {
		rs.strokeWidth = *s.StrokeWidth
	}
	if s.Opacity != nil {
		rs.opacity = clamp(*s.Opacity, 0, 1)
	}
	if s.BlendMode != "" {
		rs.blendMode = s.BlendMode
	}
	return rs
}

// shapeAt builds the i-th descriptor at top-left (x, y).
// Palette colors cycle by index and override the single fill.
func (rs resolvedStyle) shapeAt(i int, x, y float64) types.ShapeDescriptor {
	fill := rs.fill
	if len(rs.palette) > 0 {
		fill = rs.palette[i%len(rs.palette)]
	}
	d := types.ShapeDescriptor{
		Type:         rs.kind,
		X:            x,
		Y:            y,
		Width:        rs.width,
		Height:       rs.height,
		Fill:         fill,
		Stroke:       rs.stroke,
		StrokeWidth:  rs.strokeWidth,
		Opacity:      rs.opacity,
		BlendMode:    rs.blendMode,
		CornerRadius: rs.cornerRadius,
	}
	if rs.kind == types.ShapeText {
		d.Text = fmt.Sprintf("Item %d", i+1)
		d.FontSize = DefaultFontSize
		d.FontFamily = DefaultFontFamily
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
