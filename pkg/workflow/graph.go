package workflow

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine to
// construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
type Graph[S any] struct {
	mu             sync.RWMutex
	nodes          map[string]NodeFunc[S]
	edges          map[string]string
	entryPoint     string
	interruptNodes map[string]bool
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:          make(map[string]NodeFunc[S]),
		edges:          make(map[string]string),
		interruptNodes: make(map[string]bool),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("workflow: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("workflow: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("workflow: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("workflow: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("workflow: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an edge from one node to another.
// The target can be a node ID or workflow.END.
// Returns the graph for method chaining.
//
// Each node has at most one outgoing edge; the engine executes a strictly
// linear sequence. Adding a second edge from the same node panics.
//
// Edge target validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[from]; exists {
		panic(fmt.Sprintf("workflow: node %s already has an outgoing edge", from))
	}

	g.edges[from] = to
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}

// SetInterruptBefore marks a node as an interrupt point. A run halts,
// without error, when the node becomes the next node to execute; the final
// checkpoint of the halted run names it as pending. Resume continues from
// the interrupt node itself.
//
// The interrupt applies to transitions into the node. If the entry point is
// itself an interrupt node, the first invocation executes it normally.
//
// Node existence is validated at Compile() time.
func (g *Graph[S]) SetInterruptBefore(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.interruptNodes[id] = true
	return g
}
