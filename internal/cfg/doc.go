// Package cfg exports per-function control-flow graphs from SSA form.
//
// For every function with a body the exporter performs a visited-set-guarded
// walk from the entry block and records reachable blocks, successor edges,
// statically resolved calls, unresolved indirect calls, and function exits.
// The resulting ModuleGraph serializes to one JSON document per package for
// offline structural analysis.
package cfg
