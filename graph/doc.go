// Package graph builds and schedules the per-object dependency graph of a
// package.
//
// Every export gets two nodes, one per load phase: construct (allocate and
// link) and populate (fill with serialized data). Edges record load-order
// constraints between nodes of the same package; dependencies on other
// packages' exports are kept as external arc candidates instead of edges.
//
// Cycles are first-class, not exceptional: legitimate asset graphs contain
// them, so the builder records every edge and the scheduler breaks stalls
// with a documented deterministic rule rather than rejecting the graph.
//
// The same visitation-mark ordering runs twice: once per package over export
// nodes, and once globally over packages to fix the container load order.
package graph
