// Package tools is the static tool registry exposed to the reasoning engine and
// the per-request call collector that turns tool invocations into operations.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/canvasagent/internal/geometry"
	"github.com/solatis/canvasagent/internal/types"
)

// Tool describes one invocable operation kind.
type Tool struct {
	Name        types.OperationName
	Description string
	Parameters  *Schema

	// Bulk tools embed compiled shape descriptors in their operation.
	Bulk bool

	prepare prepareFunc
}

// prepared is the resolved, not yet appended, result of an invocation.
type prepared struct {
	payload any
	ack     string
}

// env carries the per-invocation context a prepare step may read.
type env struct {
	canvas types.CanvasSummary
	seq    int // 1-based position the operation will take in the log
}

type prepareFunc func(raw json.RawMessage, e env) (prepared, error)

// Registry is the fixed set of tools. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	tools map[types.OperationName]*Tool
	order []*Tool
}

// NewRegistry returns the registry of every supported operation kind.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[types.OperationName]*Tool)}
	for _, t := range builtinTools() {
		t := t
		r.tools[t.Name] = &t
		r.order = append(r.order, &t)
	}
	return r
}

// Tools returns the tool descriptors in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, *t)
	}
	return out
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name types.OperationName) (*Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownTool, name)
	}
	return t, nil
}

// ShapeRef is the per-request reference assigned to a shape created by the
// operation at position seq.
func ShapeRef(seq int) string {
	return fmt.Sprintf("shape-%d", seq)
}

type createdShape struct {
	Ref   string                `json:"ref"`
	Shape types.ShapeDescriptor `json:"shape"`
}

type bulkPattern struct {
	Pattern   geometry.PatternKind    `json:"pattern"`
	ShapeType types.ShapeKind         `json:"shapeType"`
	Count     int                     `json:"count"`
	Shapes    []types.ShapeDescriptor `json:"shapes"`
}

type compositeLayout struct {
	LayoutType geometry.LayoutKind     `json:"layoutType"`
	Position   geometry.Point          `json:"position"`
	Shapes     []types.ShapeDescriptor `json:"shapes"`
}

type rotation struct {
	ShapeID  string  `json:"shapeId"`
	Rotation float64 `json:"rotation"`
}

type canvasQuery struct {
	Type         types.ShapeKind `json:"type,omitempty"`
	SelectedOnly bool            `json:"selectedOnly,omitempty"`
	ShapeCount   int             `json:"shapeCount"`
	Selection    int             `json:"selectionCount"`
}

func builtinTools() []Tool {
	shapeID := str("Shape reference returned by a create tool, or an id from the canvas")
	shapeIDs := array("Shape references", str("Shape reference"))

	return []Tool{
		{
			Name:        types.OpCreateShape,
			Description: "Create a single shape on the canvas.",
			Parameters: object(map[string]*Schema{
				"type":         enum("Shape type", nonTextKinds()...),
				"x":            num("Left edge"),
				"y":            num("Top edge"),
				"width":        numRange("Width, default 100", 0, 5000),
				"height":       numRange("Height, default 100", 0, 5000),
				"fill":         str("Fill color"),
				"stroke":       str("Stroke color"),
				"strokeWidth":  numRange("Stroke width", 0, 100),
				"opacity":      numRange("Opacity between 0 and 1", 0, 1),
				"blendMode":    str("Blend mode"),
				"rotation":     num("Rotation in degrees"),
				"cornerRadius": numRange("Corner radius", 0, 500),
			}, "type", "x", "y"),
			prepare: func(raw json.RawMessage, e env) (prepared, error) {
				var a createShapeArgs
				if err := decodeValid(types.OpCreateShape, raw, &a); err != nil {
					return prepared{}, err
				}
				ref := ShapeRef(e.seq)
				d := a.descriptor()
				return prepared{
					payload: createdShape{Ref: ref, Shape: d},
					ack:     fmt.Sprintf("Created %s %s at (%g, %g)", d.Type, ref, d.X, d.Y),
				}, nil
			},
		},
		{
			Name:        types.OpCreateText,
			Description: "Create a text element.",
			Parameters: object(map[string]*Schema{
				"text":       str("Text content"),
				"x":          num("Left edge"),
				"y":          num("Top edge"),
				"fontSize":   numRange("Font size, default 16", 0, 500),
				"fontFamily": str("Font family"),
				"fontWeight": str("Font weight, e.g. bold"),
				"fill":       str("Text color"),
				"width":      numRange("Box width", 0, 5000),
			}, "text", "x", "y"),
			prepare: func(raw json.RawMessage, e env) (prepared, error) {
				var a createTextArgs
				if err := decodeValid(types.OpCreateText, raw, &a); err != nil {
					return prepared{}, err
				}
				ref := ShapeRef(e.seq)
				return prepared{
					payload: createdShape{Ref: ref, Shape: a.descriptor()},
					ack:     fmt.Sprintf("Created text %s %q", ref, a.Text),
				}, nil
			},
		},
		{
			Name:        types.OpMoveShape,
			Description: "Move a shape so its top-left corner is at (x, y).",
			Parameters: object(map[string]*Schema{
				"shapeId": shapeID,
				"x":       num("New left edge"),
				"y":       num("New top edge"),
			}, "shapeId", "x", "y"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a moveShapeArgs
				if err := decodeValid(types.OpMoveShape, raw, &a); err != nil {
					return prepared{}, err
				}
				return prepared{payload: a, ack: fmt.Sprintf("Moved %s to (%g, %g)", a.ShapeID, a.X, a.Y)}, nil
			},
		},
		{
			Name:        types.OpResizeShape,
			Description: "Resize a shape.",
			Parameters: object(map[string]*Schema{
				"shapeId": shapeID,
				"width":   numRange("New width", 0, 5000),
				"height":  numRange("New height", 0, 5000),
			}, "shapeId", "width", "height"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a resizeShapeArgs
				if err := decodeValid(types.OpResizeShape, raw, &a); err != nil {
					return prepared{}, err
				}
				return prepared{payload: a, ack: fmt.Sprintf("Resized %s to %gx%g", a.ShapeID, a.Width, a.Height)}, nil
			},
		},
		{
			Name:        types.OpRotateShape,
			Description: "Rotate a shape to an absolute angle in degrees.",
			Parameters: object(map[string]*Schema{
				"shapeId":  shapeID,
				"rotation": num("Angle in degrees"),
			}, "shapeId", "rotation"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a rotateShapeArgs
				if err := decodeValid(types.OpRotateShape, raw, &a); err != nil {
					return prepared{}, err
				}
				r := rotation{ShapeID: a.ShapeID, Rotation: normalizeDegrees(a.Rotation)}
				return prepared{payload: r, ack: fmt.Sprintf("Rotated %s to %g degrees", r.ShapeID, r.Rotation)}, nil
			},
		},
		{
			Name:        types.OpUpdateShape,
			Description: "Change style properties or text of an existing shape.",
			Parameters: object(map[string]*Schema{
				"shapeId":     shapeID,
				"fill":        str("Fill color"),
				"stroke":      str("Stroke color"),
				"strokeWidth": numRange("Stroke width", 0, 100),
				"opacity":     numRange("Opacity between 0 and 1", 0, 1),
				"blendMode":   str("Blend mode"),
				"text":        str("New text for text shapes"),
				"fontSize":    numRange("Font size", 0, 500),
			}, "shapeId"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a updateShapeArgs
				if err := decodeValid(types.OpUpdateShape, raw, &a); err != nil {
					return prepared{}, err
				}
				return prepared{payload: a, ack: "Updated " + a.ShapeID}, nil
			},
		},
		{
			Name:        types.OpAlign,
			Description: "Align two or more shapes along an edge or center line.",
			Parameters: object(map[string]*Schema{
				"shapeIds":  shapeIDs,
				"alignment": enum("Alignment", alignments...),
			}, "shapeIds", "alignment"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a alignArgs
				if err := decodeValid(types.OpAlign, raw, &a); err != nil {
					return prepared{}, err
				}
				return prepared{payload: a, ack: fmt.Sprintf("Aligned %d shapes %s", len(a.ShapeIDs), a.Alignment)}, nil
			},
		},
		{
			Name:        types.OpDistribute,
			Description: "Distribute three or more shapes evenly.",
			Parameters: object(map[string]*Schema{
				"shapeIds":  shapeIDs,
				"direction": enum("Direction", directions...),
				"spacing":   numRange("Fixed gap between shapes; omit for even spread", 0, 5000),
			}, "shapeIds", "direction"),
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var a distributeArgs
				if err := decodeValid(types.OpDistribute, raw, &a); err != nil {
					return prepared{}, err
				}
				return prepared{payload: a, ack: fmt.Sprintf("Distributed %d shapes %s", len(a.ShapeIDs), a.Direction)}, nil
			},
		},
		{
			Name:        types.OpQueryShapes,
			Description: "Ask the canvas for shapes, optionally filtered by type or selection.",
			Parameters: object(map[string]*Schema{
				"type":         enum("Only shapes of this type", shapeKindNames()...),
				"selectedOnly": boolean("Only selected shapes"),
			}),
			prepare: func(raw json.RawMessage, e env) (prepared, error) {
				var a queryShapesArgs
				if err := decodeValid(types.OpQueryShapes, raw, &a); err != nil {
					return prepared{}, err
				}
				q := canvasQuery{
					Type:         a.Type,
					SelectedOnly: a.SelectedOnly,
					ShapeCount:   e.canvas.ShapeCount,
					Selection:    e.canvas.SelectionCount,
				}
				return prepared{
					payload: q,
					ack: fmt.Sprintf("Canvas has %d shapes, %d selected; the renderer resolves the query",
						e.canvas.ShapeCount, e.canvas.SelectionCount),
				}, nil
			},
		},
		{
			Name: types.OpBulkCreatePattern,
			Description: "Create many shapes at once in a grid, row, column, circle or spiral. " +
				"Use this instead of repeated createShape calls for more than about 10 shapes.",
			Parameters: object(map[string]*Schema{
				"pattern":   enum("Arrangement", patternNames()...),
				"shapeType": enum("Shape type", shapeKindNames()...),
				"count":     integer("Number of shapes", 1, types.MaxPatternCount),
				"style":     styleSchema(),
				"layout": object(map[string]*Schema{
					"spacing": numRange("Gap between shapes", 0, 1000),
					"rows":    integer("Grid rows", 0, types.MaxPatternCount),
					"cols":    integer("Grid columns", 0, types.MaxPatternCount),
					"origin":  pointSchema("Top-left for linear patterns, center for radial ones"),
					"radius":  numRange("Radius for circle and spiral", 0, 5000),
				}),
			}, "pattern", "shapeType", "count"),
			Bulk: true,
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var spec geometry.PatternSpec
				if err := decode(types.OpBulkCreatePattern, raw, &spec); err != nil {
					return prepared{}, err
				}
				if err := validatePattern(spec); err != nil {
					return prepared{}, err
				}
				shapes := geometry.CompilePattern(spec)
				return prepared{
					payload: bulkPattern{Pattern: spec.Pattern, ShapeType: spec.ShapeType, Count: len(shapes), Shapes: shapes},
					ack:     fmt.Sprintf("Created %d %s shapes in a %s pattern", len(shapes), spec.ShapeType, spec.Pattern),
				}, nil
			},
		},
		{
			Name: types.OpCreateCompositeLayout,
			Description: "Create a complete UI component such as a login form, navbar, card, " +
				"button group, form or dashboard in one call.",
			Parameters: object(map[string]*Schema{
				"layoutType": enum("Component archetype", layoutNames()...),
				"config": object(map[string]*Schema{
					"title":      str("Title text"),
					"body":       str("Body text"),
					"buttonText": str("Primary button label"),
					"items":      array("Navigation, button or stat labels", str("Label")),
					"fields":     array("Form field labels", str("Label")),
					"width":      numRange("Overall width", 0, 5000),
					"colors": object(map[string]*Schema{
						"primary":    str("Accent color"),
						"secondary":  str("Secondary color"),
						"background": str("Background color"),
					}),
				}),
				"position": pointSchema("Top-left corner"),
			}, "layoutType"),
			Bulk: true,
			prepare: func(raw json.RawMessage, _ env) (prepared, error) {
				var spec geometry.LayoutSpec
				if err := decode(types.OpCreateCompositeLayout, raw, &spec); err != nil {
					return prepared{}, err
				}
				if err := validateLayout(spec); err != nil {
					return prepared{}, err
				}
				at := geometry.DefaultLayoutAnchor
				if spec.Position != nil {
					at = *spec.Position
				}
				shapes := geometry.CompileLayout(spec)
				return prepared{
					payload: compositeLayout{LayoutType: spec.Layout, Position: at, Shapes: shapes},
					ack:     fmt.Sprintf("Created %s layout with %d elements", spec.Layout, len(shapes)),
				}, nil
			},
		},
	}
}

type validator interface {
	validate() error
}

func decodeValid(op types.OperationName, raw json.RawMessage, dst validator) error {
	if err := decode(op, raw, dst); err != nil {
		return err
	}
	return dst.validate()
}
