// Package workflow provides a small graph-based pipeline engine with
// durable checkpointing and pause/resume support.
//
// A workflow is built as a linear sequence of named nodes:
//
//	graph := workflow.NewGraph[MyState]().
//	    AddNode("analyze", analyzeNode).
//	    AddNode("schedule", scheduleNode).
//	    AddEdge("analyze", "schedule").
//	    AddEdge("schedule", workflow.END).
//	    SetEntry("analyze")
//
//	compiled, err := graph.Compile()
//
// Compiled graphs are immutable and safe for concurrent use. When run with
// a checkpoint store, the engine persists a checkpoint after every node, so
// a run can be resumed from its last completed node by a different process.
//
// A graph may declare an interrupt point with SetInterruptBefore. Execution
// halts, without error, the moment the interrupt node becomes the next node
// to run; the checkpoint names it as pending. A later Resume call picks the
// run back up from that point, typically after UpdateState has injected an
// external decision into the persisted state.
package workflow
