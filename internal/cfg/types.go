package cfg

// Block describes one reachable basic block of a function.
type Block struct {
	StartLine *int `json:"start_line"` // 第一条带源位置的指令所在行
	EndLine   *int `json:"end_line"`   // 终结指令所在行
	Size      int  `json:"size"`       // 指令数量（不含调试伪指令）
}

// Edge is a single intra-procedural control-flow successor relationship.
// Repeated (src, dst) pairs are kept as-is; only block visits are deduplicated.
type Edge struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Type string `json:"type"` // terminator opcode that produced the edge
}

// Call records a call site whose target resolved to a concrete function.
type Call struct {
	Src  string `json:"src"`  // block label of the call site
	Dst  string `json:"dst"`  // fully qualified callee name
	Type string `json:"type"` // call opcode (call/go/defer)
}

// Return records a block terminated by a function-exit instruction.
type Return struct {
	Block string `json:"block"`
	Type  string `json:"type"` // exit opcode (return/panic)
}

// FunctionGraph is the exported control-flow graph of one function body.
type FunctionGraph struct {
	Name            string            `json:"name"`
	Entry           string            `json:"entry"`
	Blocks          map[string]*Block `json:"blocks"`
	Edges           []Edge            `json:"edges"`
	Calls           []Call            `json:"calls"`
	UnresolvedCalls []string          `json:"unresolved_calls"`
	Returns         []Return          `json:"returns"`
}

// ModuleGraph aggregates the function graphs of one compilation unit.
type ModuleGraph struct {
	Module    string           `json:"module"`
	Functions []*FunctionGraph `json:"functions"`
}
