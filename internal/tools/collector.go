package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/solatis/canvasagent/internal/types"
)

// Invocation is one tool call proposed by the reasoning engine.
type Invocation struct {
	ID        string
	Name      types.OperationName
	Arguments json.RawMessage
}

// Collector executes invocations for a single request and owns its call log.
// Operations are only ever appended; a failed invocation leaves the log unchanged.
type Collector struct {
	registry *Registry
	canvas   types.CanvasSummary

	mu  sync.Mutex
	log []types.Operation
}

// NewCollector returns an empty collector bound to the canvas summary of one request.
func (r *Registry) NewCollector(canvas types.CanvasSummary) *Collector {
	return &Collector{registry: r, canvas: canvas}
}

// Invoke validates and resolves inv, appends its operation and returns the
// acknowledgement for the engine. On error nothing is appended.
func (c *Collector) Invoke(inv Invocation) (string, error) {
	tool, err := c.registry.Lookup(inv.Name)
	if err != nil {
		return "", err
	}

	p, err := tool.prepare(inv.Arguments, env{canvas: c.canvas, seq: c.Len() + 1})
	if err != nil {
		return "", err
	}

	args, err := json.Marshal(p.payload)
	if err != nil {
		return "", fmt.Errorf("encode %s arguments: %w", inv.Name, err)
	}
	c.append(types.Operation{Name: inv.Name, Arguments: args})
	return p.ack, nil
}

// append is the only mutation of the call log.
func (c *Collector) append(op types.Operation) {
	c.mu.Lock()
	c.log = append(c.log, op)
	c.mu.Unlock()
}

// Len returns the number of collected operations.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.log)
}

// Operations returns a snapshot of the call log in append order.
func (c *Collector) Operations() []types.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Operation(nil), c.log...)
}
