// # Description
//
// Package cfg provides the block-level Control Flow Graph (CFG) of a procedure body.
//
// ## Control Flow Graph (CFG)
//
// In this graph:
//
//   - Each node is a labeled basic block of the procedure.
//   - The directed edges are the goto targets of the block; returning blocks flow into EXIT.
//
// Tracelets are expected to be acyclic, so TopoOrder doubles as the acyclicity check
// used by the symbolic executor.
//
// ## Package Functionality
//
//  1. CFG Construction: `FromProcedure` builds the graph from a parsed procedure.
//  2. Traversal: `Reachable` and `TopoOrder`.
//  3. Output: `PrintDot` writes GraphViz source, `RenderToGraphVizFile` renders it with `dot`.
package cfg
