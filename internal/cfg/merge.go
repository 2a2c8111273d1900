package cfg

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadModuleGraph reads a module graph previously written by the export
// command back from disk.
func LoadModuleGraph(path string) (*ModuleGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var mg ModuleGraph
	if err := json.Unmarshal(data, &mg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &mg, nil
}

// Merge combines several module graphs into one document. Graphs that share
// a module identifier are concatenated; input order is preserved so merged
// output stays reproducible.
func Merge(mods []*ModuleGraph) []*ModuleGraph {
	byModule := make(map[string]*ModuleGraph)
	var order []string

	for _, mg := range mods {
		merged, ok := byModule[mg.Module]
		if !ok {
			merged = &ModuleGraph{Module: mg.Module}
			byModule[mg.Module] = merged
			order = append(order, mg.Module)
		}
		merged.Functions = append(merged.Functions, mg.Functions...)
	}

	out := make([]*ModuleGraph, 0, len(order))
	for _, name := range order {
		out = append(out, byModule[name])
	}
	return out
}
