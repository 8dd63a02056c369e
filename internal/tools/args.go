package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/solatis/canvasagent/internal/geometry"
	"github.com/solatis/canvasagent/internal/types"
)

// Argument types decoded from tool invocations. Each validate method is pure and
// reports the first offending field as a *types.ValidationError.

type createShapeArgs struct {
	Type         types.ShapeKind `json:"type"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Width        float64         `json:"width"`
	Height       float64         `json:"height"`
	Fill         string          `json:"fill"`
	Stroke       string          `json:"stroke"`
	StrokeWidth  *float64        `json:"strokeWidth"`
	Opacity      *float64        `json:"opacity"`
	BlendMode    string          `json:"blendMode"`
	Rotation     float64         `json:"rotation"`
	CornerRadius float64         `json:"cornerRadius"`
}

func (a createShapeArgs) validate() error {
	if a.Type == "" {
		return invalid(types.OpCreateShape, "type", "is required")
	}
	if !validShapeKind(a.Type) || a.Type == types.ShapeText {
		return invalid(types.OpCreateShape, "type", fmt.Sprintf("must be one of %s", strings.Join(nonTextKinds(), ", ")))
	}
	if a.Width < 0 || a.Height < 0 {
		return invalid(types.OpCreateShape, "width/height", "must not be negative")
	}
	if a.Opacity != nil && (*a.Opacity < 0 || *a.Opacity > 1) {
		return invalid(types.OpCreateShape, "opacity", "must be between 0 and 1")
	}
	return nil
}

func (a createShapeArgs) descriptor() types.ShapeDescriptor {
	d := types.ShapeDescriptor{
		Type:         a.Type,
		X:            a.X,
		Y:            a.Y,
		Width:        orDefault(a.Width, 100),
		Height:       orDefault(a.Height, 100),
		Fill:         orColor(a.Fill, geometry.DefaultFill),
		Stroke:       orColor(a.Stroke, geometry.DefaultStroke),
		StrokeWidth:  geometry.DefaultStrokeWidth,
		Opacity:      geometry.DefaultOpacity,
		BlendMode:    orColor(a.BlendMode, geometry.DefaultBlendMode),
		Rotation:     normalizeDegrees(a.Rotation),
		CornerRadius: a.CornerRadius,
	}
	if a.StrokeWidth != nil && *a.StrokeWidth >= 0 {
		d.StrokeWidth = *a.StrokeWidth
	}
	if a.Opacity != nil {
		d.Opacity = *a.Opacity
	}
	return d
}

type createTextArgs struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FontWeight string  `json:"fontWeight"`
	Fill       string  `json:"fill"`
	Width      float64 `json:"width"`
}

func (a createTextArgs) validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return invalid(types.OpCreateText, "text", "is required")
	}
	if a.FontSize < 0 || a.FontSize > 500 {
		return invalid(types.OpCreateText, "fontSize", "must be between 0 and 500")
	}
	return nil
}

func (a createTextArgs) descriptor() types.ShapeDescriptor {
	size := orDefault(a.FontSize, geometry.DefaultFontSize)
	// Approximate advance width; the renderer re-measures.
	width := orDefault(a.Width, math.Ceil(float64(len([]rune(a.Text)))*size*0.6))
	return types.ShapeDescriptor{
		Type:       types.ShapeText,
		X:          a.X,
		Y:          a.Y,
		Width:      width,
		Height:     size * 1.5,
		Fill:       orColor(a.Fill, geometry.DefaultTextColor),
		Opacity:    geometry.DefaultOpacity,
		BlendMode:  geometry.DefaultBlendMode,
		Text:       a.Text,
		FontSize:   size,
		FontFamily: orColor(a.FontFamily, geometry.DefaultFontFamily),
		FontWeight: a.FontWeight,
	}
}

type moveShapeArgs struct {
	ShapeID string  `json:"shapeId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (a moveShapeArgs) validate() error {
	return requireShapeID(types.OpMoveShape, a.ShapeID)
}

type resizeShapeArgs struct {
	ShapeID string  `json:"shapeId"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

func (a resizeShapeArgs) validate() error {
	if err := requireShapeID(types.OpResizeShape, a.ShapeID); err != nil {
		return err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return invalid(types.OpResizeShape, "width/height", "must be positive")
	}
	return nil
}

type rotateShapeArgs struct {
	ShapeID  string  `json:"shapeId"`
	Rotation float64 `json:"rotation"`
}

func (a rotateShapeArgs) validate() error {
	if err := requireShapeID(types.OpRotateShape, a.ShapeID); err != nil {
		return err
	}
	if math.IsNaN(a.Rotation) || math.IsInf(a.Rotation, 0) {
		return invalid(types.OpRotateShape, "rotation", "must be finite")
	}
	return nil
}

type updateShapeArgs struct {
	ShapeID     string   `json:"shapeId"`
	Fill        string   `json:"fill,omitempty"`
	Stroke      string   `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
	BlendMode   string   `json:"blendMode,omitempty"`
	Text        string   `json:"text,omitempty"`
	FontSize    float64  `json:"fontSize,omitempty"`
}

func (a updateShapeArgs) validate() error {
	if err := requireShapeID(types.OpUpdateShape, a.ShapeID); err != nil {
		return err
	}
	if a.Fill == "" && a.Stroke == "" && a.StrokeWidth == nil && a.Opacity == nil &&
		a.BlendMode == "" && a.Text == "" && a.FontSize == 0 {
		return invalid(types.OpUpdateShape, "", "at least one property must change")
	}
	if a.Opacity != nil && (*a.Opacity < 0 || *a.Opacity > 1) {
		return invalid(types.OpUpdateShape, "opacity", "must be between 0 and 1")
	}
	if a.StrokeWidth != nil && *a.StrokeWidth < 0 {
		return invalid(types.OpUpdateShape, "strokeWidth", "must not be negative")
	}
	if a.FontSize < 0 {
		return invalid(types.OpUpdateShape, "fontSize", "must not be negative")
	}
	return nil
}

// Alignment and distribution directions.
var (
	alignments = []string{"left", "center", "right", "top", "middle", "bottom"}
	directions = []string{"horizontal", "vertical"}
)

type alignArgs struct {
	ShapeIDs  []string `json:"shapeIds"`
	Alignment string   `json:"alignment"`
}

func (a alignArgs) validate() error {
	if err := requireShapeIDs(types.OpAlign, a.ShapeIDs, 2); err != nil {
		return err
	}
	if !contains(alignments, a.Alignment) {
		return invalid(types.OpAlign, "alignment", "must be one of "+strings.Join(alignments, ", "))
	}
	return nil
}

type distributeArgs struct {
	ShapeIDs  []string `json:"shapeIds"`
	Direction string   `json:"direction"`
	Spacing   *float64 `json:"spacing,omitempty"`
}

func (a distributeArgs) validate() error {
	if err := requireShapeIDs(types.OpDistribute, a.ShapeIDs, 3); err != nil {
		return err
	}
	if !contains(directions, a.Direction) {
		return invalid(types.OpDistribute, "direction", "must be one of "+strings.Join(directions, ", "))
	}
	if a.Spacing != nil && *a.Spacing < 0 {
		return invalid(types.OpDistribute, "spacing", "must not be negative")
	}
	return nil
}

type queryShapesArgs struct {
	Type         types.ShapeKind `json:"type,omitempty"`
	SelectedOnly bool            `json:"selectedOnly,omitempty"`
}

func (a queryShapesArgs) validate() error {
	if a.Type != "" && !validShapeKind(a.Type) {
		return invalid(types.OpQueryShapes, "type", "is not a known shape type")
	}
	return nil
}

func validatePattern(spec geometry.PatternSpec) error {
	const op = types.OpBulkCreatePattern
	if !containsKind(geometry.PatternKinds, spec.Pattern) {
		return invalid(op, "pattern", "must be one of "+strings.Join(patternNames(), ", "))
	}
	if !validShapeKind(spec.ShapeType) {
		return invalid(op, "shapeType", "must be one of "+strings.Join(shapeKindNames(), ", "))
	}
	if spec.Count < 1 || spec.Count > types.MaxPatternCount {
		return invalid(op, "count", fmt.Sprintf("must be between 1 and %d", types.MaxPatternCount))
	}
	if err := validateStyle(op, spec.Style); err != nil {
		return err
	}
	l := spec.Layout
	if l.Rows < 0 || l.Cols < 0 {
		return invalid(op, "layout.rows/cols", "must not be negative")
	}
	if l.Spacing != nil && *l.Spacing < 0 {
		return invalid(op, "layout.spacing", "must not be negative")
	}
	if l.Radius < 0 {
		return invalid(op, "layout.radius", "must not be negative")
	}
	return nil
}

func validateStyle(op types.OperationName, s geometry.Style) error {
	if s.Width < 0 || s.Height < 0 {
		return invalid(op, "style.width/height", "must not be negative")
	}
	if s.Opacity != nil && (*s.Opacity < 0 || *s.Opacity > 1) {
		return invalid(op, "style.opacity", "must be between 0 and 1")
	}
	if s.StrokeWidth != nil && *s.StrokeWidth < 0 {
		return invalid(op, "style.strokeWidth", "must not be negative")
	}
	return nil
}

func validateLayout(spec geometry.LayoutSpec) error {
	const op = types.OpCreateCompositeLayout
	if !containsKind(geometry.LayoutKinds, spec.Layout) {
		return invalid(op, "layoutType", "must be one of "+strings.Join(layoutNames(), ", "))
	}
	if len(spec.Config.Items) > types.MaxLayoutItems {
		return invalid(op, "config.items", fmt.Sprintf("must have at most %d entries", types.MaxLayoutItems))
	}
	if len(spec.Config.Fields) > types.MaxLayoutItems {
		return invalid(op, "config.fields", fmt.Sprintf("must have at most %d entries", types.MaxLayoutItems))
	}
	if spec.Config.Width < 0 {
		return invalid(op, "config.width", "must not be negative")
	}
	return nil
}

// decode unmarshals raw tool arguments into dst, mapping JSON type errors to
// validation errors that name the offending field.
func decode(op types.OperationName, raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return invalid(op, typeErr.Field, "has the wrong type")
		}
		return invalid(op, "", "arguments are not a JSON object")
	}
	return nil
}

func invalid(op types.OperationName, field, reason string) error {
	return &types.ValidationError{Tool: op, Field: field, Reason: reason}
}

func requireShapeID(op types.OperationName, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(op, "shapeId", "is required")
	}
	return nil
}

func requireShapeIDs(op types.OperationName, ids []string, min int) error {
	if len(ids) < min {
		return invalid(op, "shapeIds", fmt.Sprintf("must list at least %d shapes", min))
	}
	if len(ids) > types.MaxShapeRefs {
		return invalid(op, "shapeIds", fmt.Sprintf("must list at most %d shapes", types.MaxShapeRefs))
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return invalid(op, "shapeIds", "must not contain empty ids")
		}
	}
	return nil
}

func validShapeKind(k types.ShapeKind) bool {
	for _, known := range types.ShapeKinds {
		if k == known {
			return true
		}
	}
	return false
}

func nonTextKinds() []string {
	var names []string
	for _, k := range types.ShapeKinds {
		if k != types.ShapeText {
			names = append(names, string(k))
		}
	}
	return names
}

func containsKind[K ~string](set []K, k K) bool {
	for _, v := range set {
		if v == k {
			return true
		}
	}
	return false
}

func contains(set []string, s string) bool {
	return containsKind(set, s)
}

func orDefault(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

func orColor(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// normalizeDegrees maps any finite angle into [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
