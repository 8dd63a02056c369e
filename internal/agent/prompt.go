package agent

import (
	"fmt"
	"strings"

	"github.com/solatis/canvasagent/internal/types"
)

// BulkThreshold is the element count above which the engine is told to use
// bulk or composite tools instead of repeated single-shape calls.
const BulkThreshold = 10

// SystemInstruction renders the operating instructions for one request.
func SystemInstruction(canvas types.CanvasSummary) string {
	var b strings.Builder
	b.WriteString("You are a design assistant that edits a 2D vector canvas by calling tools.\n")
	b.WriteString("Translate the user's command into tool calls. Coordinates are pixels with the origin at the top-left; ")
	b.WriteString("x and y position the top-left corner of a shape.\n\n")

	fmt.Fprintf(&b, "The canvas currently has %d shapes, %d of them selected.\n\n",
		canvas.ShapeCount, canvas.SelectionCount)

	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- When a command needs more than about %d elements, use %s for repeated shapes "+
		"or %s for UI components instead of calling %s repeatedly.\n",
		BulkThreshold, types.OpBulkCreatePattern, types.OpCreateCompositeLayout, types.OpCreateShape)
	fmt.Fprintf(&b, "- %s accepts at most %d shapes per call.\n", types.OpBulkCreatePattern, types.MaxPatternCount)
	b.WriteString("- Create tools return a reference such as shape-3; use it to move, resize, rotate or update that shape later.\n")
	b.WriteString("- If a tool returns an error, correct the arguments rather than repeating the same call.\n")
	b.WriteString("- When the command is fully handled, reply with a one-sentence summary and no tool calls.\n")
	return b.String()
}
