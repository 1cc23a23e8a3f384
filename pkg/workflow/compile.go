package workflow

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge sources and targets must reference existing nodes (or END)
//  4. All interrupt points must reference existing nodes
//  5. A path from the entry point to END must exist
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, to := range g.edges {
		if from != END {
			if _, exists := g.nodes[from]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
			}
		}
		if to != END {
			if _, exists := g.nodes[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for id := range g.interruptNodes {
		if _, exists := g.nodes[id]; !exists {
			errs = append(errs, fmt.Errorf("%w: interrupt node '%s' does not exist", ErrNodeNotFound, id))
		}
	}

	if g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists {
			if !g.hasPathToEnd() {
				errs = append(errs, ErrNoPathToEnd)
			}
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// hasPathToEnd checks if there's a path from entry to END.
// With single outgoing edges this is a straight walk; the visited set
// guards against accidental cycles in a misconfigured graph.
func (g *Graph[S]) hasPathToEnd() bool {
	visited := make(map[string]bool)
	current := g.entryPoint

	for current != END {
		if visited[current] {
			return false
		}
		visited[current] = true

		next, ok := g.edges[current]
		if !ok {
			return false
		}
		current = next
	}

	return true
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := make(map[string]bool)
	current := g.entryPoint
	for current != END && !reachable[current] {
		reachable[current] = true
		next, ok := g.edges[current]
		if !ok {
			break
		}
		current = next
	}

	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	interruptNodes := make(map[string]bool, len(g.interruptNodes))
	for id := range g.interruptNodes {
		interruptNodes[id] = true
	}

	return &CompiledGraph[S]{
		nodes:          nodes,
		edges:          edges,
		entryPoint:     g.entryPoint,
		interruptNodes: interruptNodes,
	}
}
