// Package types provides domain models shared across canvasagent components.
//
// Operation and ShapeDescriptor are the wire-level vocabulary between the tool
// layer and the renderer. They are plain values with JSON tags; conversion to and
// from gRPC structs happens at the API boundary.
package types

import (
	"encoding/json"
	"time"
)

// OperationName identifies one renderer-bound operation kind.
// The set is closed: the reasoning engine can only invoke names listed here.
type OperationName string

const (
	OpCreateShape           OperationName = "createShape"
	OpCreateText            OperationName = "createText"
	OpMoveShape             OperationName = "moveShape"
	OpResizeShape           OperationName = "resizeShape"
	OpRotateShape           OperationName = "rotateShape"
	OpUpdateShape           OperationName = "updateShape"
	OpAlign                 OperationName = "align"
	OpDistribute            OperationName = "distribute"
	OpQueryShapes           OperationName = "queryShapes"
	OpBulkCreatePattern     OperationName = "bulkCreatePattern"
	OpCreateCompositeLayout OperationName = "createCompositeLayout"
)

// OperationNames lists every operation kind in registry order.
var OperationNames = []OperationName{
	OpCreateShape,
	OpCreateText,
	OpMoveShape,
	OpResizeShape,
	OpRotateShape,
	OpUpdateShape,
	OpAlign,
	OpDistribute,
	OpQueryShapes,
	OpBulkCreatePattern,
	OpCreateCompositeLayout,
}

// Valid reports whether n is one of the enumerated operation kinds.
func (n OperationName) Valid() bool {
	for _, known := range OperationNames {
		if n == known {
			return true
		}
	}
	return false
}

// Operation is one instruction in the emitted batch.
// Arguments hold the already-encoded payload so a stored batch replays byte for byte.
type Operation struct {
	Name      OperationName   `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ShapeKind is the primitive type of a shape descriptor.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeTriangle  ShapeKind = "triangle"
	ShapeLine      ShapeKind = "line"
	ShapeStar      ShapeKind = "star"
	ShapeText      ShapeKind = "text"
)

// ShapeKinds lists shape kinds accepted by createShape and bulkCreatePattern.
var ShapeKinds = []ShapeKind{
	ShapeRectangle,
	ShapeCircle,
	ShapeEllipse,
	ShapeTriangle,
	ShapeLine,
	ShapeStar,
	ShapeText,
}

// ShapeDescriptor is a fully resolved, renderer-ready visual element.
// X and Y are the top-left corner of the bounding box.
type ShapeDescriptor struct {
	Type         ShapeKind `json:"type"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Fill         string    `json:"fill"`
	Stroke       string    `json:"stroke"`
	StrokeWidth  float64   `json:"strokeWidth"`
	Opacity      float64   `json:"opacity"`
	BlendMode    string    `json:"blendMode"`
	Text         string    `json:"text,omitempty"`
	FontSize     float64   `json:"fontSize,omitempty"`
	FontFamily   string    `json:"fontFamily,omitempty"`
	FontWeight   string    `json:"fontWeight,omitempty"`
	Rotation     float64   `json:"rotation,omitempty"`
	CornerRadius float64   `json:"cornerRadius,omitempty"`
}

// Center returns the center point of the descriptor's bounding box.
func (d ShapeDescriptor) Center() (float64, float64) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// CanvasSummary is the renderer's view of the current document, sent with each command.
type CanvasSummary struct {
	ShapeCount     int `json:"shapeCount"`
	SelectionCount int `json:"selectionCount"`
}

// CommandRequest is the inbound request shape.
// MaxIterations is optional; zero selects the configured default.
type CommandRequest struct {
	Command       string        `json:"command"`
	CanvasSummary CanvasSummary `json:"canvasSummary"`
	RequestID     string        `json:"requestId"`
	MaxIterations int           `json:"maxIterations,omitempty"`
}

// StopReason records why the reasoning loop stopped.
type StopReason string

const (
	StopCompleted     StopReason = "completed"
	StopIterationCap  StopReason = "iteration_cap"
	StopCancelled     StopReason = "cancelled"
	StopEngineFailure StopReason = "engine_failure"
)

// CommandResult is the outbound batch returned to the caller and stored for replay.
type CommandResult struct {
	Operations      []Operation `json:"operations"`
	TotalOperations int         `json:"totalOperations"`
	BatchNumber     int         `json:"batchNumber"`
	HasMore         bool        `json:"hasMore"`
	Message         string      `json:"message"`
	Cached          bool        `json:"cached"`
	ElapsedMs       int64       `json:"elapsedMs"`
	Iterations      int         `json:"iterations"`
	StopReason      StopReason  `json:"stopReason"`
}

// Clone returns a shallow copy with its own operation slice.
// Operation arguments are immutable bytes and are shared.
func (r *CommandResult) Clone() *CommandResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Operations = append([]Operation(nil), r.Operations...)
	return &c
}

// JournalEntry is the audit row recorded for each executed command.
type JournalEntry struct {
	JournalID      JournalID  `db:"journal_id"`
	RequestID      string     `db:"request_id"`
	Identity       string     `db:"identity"`
	Command        string     `db:"command"`
	Status         string     `db:"status"`
	StopReason     StopReason `db:"stop_reason"`
	OperationCount int        `db:"operation_count"`
	Iterations     int        `db:"iterations"`
	HasMore        bool       `db:"has_more"`
	ElapsedMs      int64      `db:"elapsed_ms"`
	CreatedAt      time.Time  `db:"created_at"`
}

// Resource limits enforced at the request and tool boundaries.
const (
	// MaxPatternCount bounds a single bulkCreatePattern call.
	MaxPatternCount = 1000

	// MaxCommandLength bounds the natural-language command in bytes.
	MaxCommandLength = 4000

	// MaxRequestIDLength bounds client-supplied request identifiers.
	MaxRequestIDLength = 128

	// MaxShapeRefs bounds the shape id list of align and distribute.
	MaxShapeRefs = 500

	// MaxLayoutItems bounds item and field lists of composite layouts.
	MaxLayoutItems = 20
)
