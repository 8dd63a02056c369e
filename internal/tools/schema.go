package tools

import (
	"github.com/solatis/canvasagent/internal/geometry"
	"github.com/solatis/canvasagent/internal/types"
)

// Schema is the JSON-schema subset used to describe tool parameters to a
// reasoning engine. Engine adapters translate it to their own declaration format.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// Schema type names.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

func object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

func str(desc string) *Schema {
	return &Schema{Type: TypeString, Description: desc}
}

func num(desc string) *Schema {
	return &Schema{Type: TypeNumber, Description: desc}
}

func numRange(desc string, lo, hi float64) *Schema {
	return &Schema{Type: TypeNumber, Description: desc, Minimum: &lo, Maximum: &hi}
}

func integer(desc string, lo, hi float64) *Schema {
	return &Schema{Type: TypeInteger, Description: desc, Minimum: &lo, Maximum: &hi}
}

func boolean(desc string) *Schema {
	return &Schema{Type: TypeBoolean, Description: desc}
}

func enum(desc string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: desc, Enum: values}
}

func array(desc string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: desc, Items: items}
}

func shapeKindNames() []string {
	names := make([]string, 0, len(types.ShapeKinds))
	for _, k := range types.ShapeKinds {
		names = append(names, string(k))
	}
	return names
}

func patternNames() []string {
	names := make([]string, 0, len(geometry.PatternKinds))
	for _, k := range geometry.PatternKinds {
		names = append(names, string(k))
	}
	return names
}

func layoutNames() []string {
	names := make([]string, 0, len(geometry.LayoutKinds))
	for _, k := range geometry.LayoutKinds {
		names = append(names, string(k))
	}
	return names
}

func styleSchema() *Schema {
	return object(map[string]*Schema{
		"fill":         str("Fill color, e.g. #FF0000"),
		"stroke":       str("Stroke color"),
		"strokeWidth":  numRange("Stroke width in pixels", 0, 100),
		"opacity":      numRange("Opacity between 0 and 1", 0, 1),
		"blendMode":    str("Blend mode, e.g. normal or multiply"),
		"width":        numRange("Width of each shape", 0, 5000),
		"height":       numRange("Height of each shape", 0, 5000),
		"cornerRadius": numRange("Corner radius for rectangles", 0, 500),
		"palette":      array("Fill colors cycled across shapes", str("Color")),
	})
}

func pointSchema(desc string) *Schema {
	s := object(map[string]*Schema{"x": num("X coordinate"), "y": num("Y coordinate")}, "x", "y")
	s.Description = desc
	return s
}
