// Package geometry compiles pattern and layout specifications into ordered
// shape descriptors.
//
// Everything here is a pure function of its input: no clocks, no randomness and no
// shared state, so callers may compile concurrently without synchronization.
// Input is assumed to have passed tool-level validation; out-of-range values that
// slip through are clamped rather than rejected.
package geometry

import "github.com/solatis/canvasagent/internal/types"

// PatternKind selects the placement rule of a bulk pattern.
type PatternKind string

const (
	PatternGrid   PatternKind = "grid"
	PatternRow    PatternKind = "row"
	PatternColumn PatternKind = "column"
	PatternCircle PatternKind = "circle"
	PatternSpiral PatternKind = "spiral"
)

// PatternKinds lists the supported bulk patterns.
var PatternKinds = []PatternKind{PatternGrid, PatternRow, PatternColumn, PatternCircle, PatternSpiral}

// LayoutKind names a composite layout archetype.
type LayoutKind string

const (
	LayoutLoginForm   LayoutKind = "login_form"
	LayoutNavbar      LayoutKind = "navbar"
	LayoutCard        LayoutKind = "card"
	LayoutButtonGroup LayoutKind = "button_group"
	LayoutForm        LayoutKind = "form"
	LayoutDashboard   LayoutKind = "dashboard"
)

// LayoutKinds lists the supported composite archetypes.
var LayoutKinds = []LayoutKind{LayoutLoginForm, LayoutNavbar, LayoutCard, LayoutButtonGroup, LayoutForm, LayoutDashboard}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style overrides the default appearance of generated shapes.
// Zero values mean "use the default"; pointer fields distinguish an explicit zero.
type Style struct {
	Fill         string   `json:"fill,omitempty"`
	Stroke       string   `json:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	BlendMode    string   `json:"blendMode,omitempty"`
	Width        float64  `json:"width,omitempty"`
	Height       float64  `json:"height,omitempty"`
	CornerRadius float64  `json:"cornerRadius,omitempty"`
	Palette      []string `json:"palette,omitempty"`
}

// PatternLayout overrides placement parameters of a bulk pattern.
type PatternLayout struct {
	Spacing *float64 `json:"spacing,omitempty"`
	Rows    int      `json:"rows,omitempty"`
	Cols    int      `json:"cols,omitempty"`
	Origin  *Point   `json:"origin,omitempty"`
	Radius  float64  `json:"radius,omitempty"`
}

// PatternSpec is the input of CompilePattern.
type PatternSpec struct {
	Pattern   PatternKind     `json:"pattern"`
	ShapeType types.ShapeKind `json:"shapeType"`
	Count     int             `json:"count"`
	Style     Style           `json:"style"`
	Layout    PatternLayout   `json:"layout"`
}

// Colors is the primary/secondary/background triple of a composite layout.
type Colors struct {
	Primary    string `json:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty"`
	Background string `json:"background,omitempty"`
}

// LayoutConfig is the free-form per-archetype configuration.
// Archetypes ignore fields they do not use.
type LayoutConfig struct {
	Title      string   `json:"title,omitempty"`
	Body       string   `json:"body,omitempty"`
	ButtonText string   `json:"buttonText,omitempty"`
	Items      []string `json:"items,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	Colors     Colors   `json:"colors"`
	Width      float64  `json:"width,omitempty"`
}

// LayoutSpec is the input of CompileLayout.
type LayoutSpec struct {
	Layout   LayoutKind   `json:"layoutType"`
	Config   LayoutConfig `json:"config"`
	Position *Point       `json:"position,omitempty"`
}

// Defaults applied when a specification leaves a value unset.
const (
	DefaultShapeSize   = 50.0
	DefaultSpacing     = 10.0
	DefaultRadius      = 200.0
	DefaultFill        = "#4A90E2"
	DefaultStroke      = "#2C3E50"
	DefaultStrokeWidth = 1.0
	DefaultOpacity     = 1.0
	DefaultBlendMode   = "normal"
	DefaultTextColor   = "#1F2937"
	DefaultFontSize    = 16.0
	DefaultFontFamily  = "Inter"

	// SpiralStepsPerTurn fixes the spiral's angular step at one rotation per 10 shapes.
	SpiralStepsPerTurn = 10
)

// Default anchors: linear patterns start at the top-left, radial ones are centered.
var (
	DefaultLinearOrigin = Point{X: 100, Y: 100}
	DefaultRadialCenter = Point{X: 400, Y: 400}
	DefaultLayoutAnchor = Point{X: 100, Y: 100}
)
