package workflow

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
type CompiledGraph[S any] struct {
	nodes          map[string]NodeFunc[S]
	edges          map[string]string
	entryPoint     string
	interruptNodes map[string]bool
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successor returns the node ID reached from the given node, or empty
// string for END and unknown nodes.
func (cg *CompiledGraph[S]) Successor(id string) string {
	if id == END {
		return ""
	}
	return cg.edges[id]
}

// IsInterrupt returns true if the node is a declared interrupt point.
func (cg *CompiledGraph[S]) IsInterrupt(id string) bool {
	return cg.interruptNodes[id]
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}
