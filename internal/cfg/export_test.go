package cfg

import (
	"encoding/json"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// buildPackage compiles a single import-free source file to SSA.
func buildPackage(t *testing.T, src string) (*ssa.Program, *ssa.Package) {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "input.go", src, 0)
	require.NoError(t, err)

	pkg, _, err := ssautil.BuildPackage(
		&types.Config{}, fset, types.NewPackage("p", ""), []*ast.File{f},
		ssa.SanityCheckFunctions,
	)
	require.NoError(t, err)

	return pkg.Prog, pkg
}

func exportFunc(t *testing.T, src, name string) *FunctionGraph {
	t.Helper()

	prog, pkg := buildPackage(t, src)
	fn := pkg.Func(name)
	require.NotNil(t, fn, "function %s not found", name)

	fg, err := NewExporter(prog, Options{}).ExportFunction(fn)
	require.NoError(t, err)
	require.NotNil(t, fg)
	return fg
}

// checkConsistency verifies the structural invariants every exported graph
// must satisfy: the entry is recorded, every edge endpoint is a recorded
// block, and every recorded block is reachable from the entry via recorded
// edges.
func checkConsistency(t *testing.T, fg *FunctionGraph) {
	t.Helper()

	require.Contains(t, fg.Blocks, fg.Entry)

	succs := make(map[string][]string)
	for _, e := range fg.Edges {
		assert.Contains(t, fg.Blocks, e.Src, "edge source not recorded")
		assert.Contains(t, fg.Blocks, e.Dst, "edge target not recorded")
		succs[e.Src] = append(succs[e.Src], e.Dst)
	}

	reached := map[string]bool{fg.Entry: true}
	queue := []string{fg.Entry}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dst := range succs[n] {
			if !reached[dst] {
				reached[dst] = true
				queue = append(queue, dst)
			}
		}
	}
	assert.Len(t, reached, len(fg.Blocks), "recorded blocks must equal blocks reachable from entry")

	for _, c := range fg.Calls {
		assert.Contains(t, fg.Blocks, c.Src)
	}
	for _, label := range fg.UnresolvedCalls {
		assert.Contains(t, fg.Blocks, label)
	}
	for _, r := range fg.Returns {
		assert.Contains(t, fg.Blocks, r.Block)
	}
}

func TestExportBranch(t *testing.T) {
	src := `package p

func f(x int) int {
	if x > 0 {
		return 1
	}
	return 2
}
`
	fg := exportFunc(t, src, "f")
	checkConsistency(t, fg)

	assert.Equal(t, "p.f", fg.Name)
	assert.Len(t, fg.Blocks, 3)
	assert.Len(t, fg.Edges, 2)
	assert.Len(t, fg.Returns, 2)
	assert.Empty(t, fg.Calls)
	assert.Empty(t, fg.UnresolvedCalls)

	// Both edges leave the entry block and were produced by its conditional
	// terminator.
	for _, e := range fg.Edges {
		assert.Equal(t, fg.Entry, e.Src)
		assert.Equal(t, "if", e.Type)
	}
	assert.NotEqual(t, fg.Edges[0].Dst, fg.Edges[1].Dst)

	for _, r := range fg.Returns {
		assert.Equal(t, "return", r.Type)
	}
}

func TestExportDirectCall(t *testing.T) {
	src := `package p

func g() { h() }

func h() {}
`
	fg := exportFunc(t, src, "g")
	checkConsistency(t, fg)

	require.Len(t, fg.Calls, 1)
	assert.Equal(t, Call{Src: fg.Entry, Dst: "p.h", Type: "call"}, fg.Calls[0])
	assert.Empty(t, fg.UnresolvedCalls)

	// Single-block function: the entry is also the returning block.
	require.Len(t, fg.Returns, 1)
	assert.Equal(t, fg.Entry, fg.Returns[0].Block)
}

func TestExportIndirectCall(t *testing.T) {
	src := `package p

func g(f func()) { f() }
`
	fg := exportFunc(t, src, "g")
	checkConsistency(t, fg)

	assert.Empty(t, fg.Calls)
	assert.Equal(t, []string{fg.Entry}, fg.UnresolvedCalls)
}

func TestExportInterfaceCallUnresolved(t *testing.T) {
	src := `package p

type I interface{ M() }

func g(i I) { i.M() }
`
	fg := exportFunc(t, src, "g")
	checkConsistency(t, fg)

	assert.Empty(t, fg.Calls, "interface dispatch must not be speculatively resolved")
	assert.Equal(t, []string{fg.Entry}, fg.UnresolvedCalls)
}

func TestExportClosureCall(t *testing.T) {
	src := `package p

func g() int {
	one := func() int { return 1 }
	return one()
}

func h(x int) int {
	f := func() int { return x }
	return f()
}
`
	// Closure without free variables: plain function value.
	fg := exportFunc(t, src, "g")
	checkConsistency(t, fg)
	require.Len(t, fg.Calls, 1)
	assert.Equal(t, "p.g$1", fg.Calls[0].Dst)
	assert.Empty(t, fg.UnresolvedCalls)

	// Closure with a captured variable: resolved through MakeClosure.
	fg = exportFunc(t, src, "h")
	checkConsistency(t, fg)
	require.Len(t, fg.Calls, 1)
	assert.Equal(t, "p.h$1", fg.Calls[0].Dst)
	assert.Empty(t, fg.UnresolvedCalls)
}

func TestExportGoAndDefer(t *testing.T) {
	src := `package p

func g() {
	defer h()
	go h()
}

func h() {}
`
	fg := exportFunc(t, src, "g")
	checkConsistency(t, fg)

	require.Len(t, fg.Calls, 2)
	opcodes := map[string]bool{}
	for _, c := range fg.Calls {
		assert.Equal(t, "p.h", c.Dst)
		opcodes[c.Type] = true
	}
	assert.True(t, opcodes["defer"])
	assert.True(t, opcodes["go"])
}

func TestExportInfiniteLoop(t *testing.T) {
	src := `package p

func f() {
	for {
	}
}
`
	fg := exportFunc(t, src, "f")
	checkConsistency(t, fg)

	// The loop block is recorded exactly once even though it is its own
	// successor, and its self-loop edge is kept.
	selfLoops := 0
	for _, e := range fg.Edges {
		if e.Src == e.Dst {
			selfLoops++
		}
	}
	assert.Equal(t, 1, selfLoops)
	assert.Empty(t, fg.Returns, "a function that never returns records no exits")
}

func TestExportLoopVisitsBlocksOnce(t *testing.T) {
	src := `package p

func sum(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}
`
	fg := exportFunc(t, src, "sum")
	checkConsistency(t, fg)

	// Cyclic control flow: the back edge re-encounters a visited block but
	// every label appears exactly once in the block map.
	assert.Len(t, fg.Returns, 1)
	assert.NotEmpty(t, fg.Edges)
}

func TestExportBuiltinCall(t *testing.T) {
	src := `package p

func f(s []int) int { return len(s) }
`
	fg := exportFunc(t, src, "f")
	checkConsistency(t, fg)

	require.Len(t, fg.Calls, 1)
	assert.Equal(t, "len", fg.Calls[0].Dst)
	assert.Empty(t, fg.UnresolvedCalls)
}

func TestExportIdempotent(t *testing.T) {
	src := `package p

func f(x int) int {
	switch {
	case x > 10:
		return x * 2
	case x > 0:
		return x
	}
	return 0
}
`
	prog, pkg := buildPackage(t, src)
	exporter := NewExporter(prog, Options{})

	first, err := exporter.ExportFunction(pkg.Func("f"))
	require.NoError(t, err)
	second, err := exporter.ExportFunction(pkg.Func("f"))
	require.NoError(t, err)

	a, err := json.MarshalIndent(first, "", "  ")
	require.NoError(t, err)
	b, err := json.MarshalIndent(second, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestExportLineRanges(t *testing.T) {
	src := `package p

func f(x int) int {
	x++
	return x
}
`
	fg := exportFunc(t, src, "f")

	b := fg.Blocks[fg.Entry]
	require.NotNil(t, b.StartLine)
	require.NotNil(t, b.EndLine)
	assert.LessOrEqual(t, *b.StartLine, *b.EndLine)
	assert.Greater(t, b.Size, 0)
}

func TestBlockNullLines(t *testing.T) {
	// Absent line info must serialize as null, never as zero or a missing key.
	data, err := json.Marshal(&Block{Size: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_line": null, "end_line": null, "size": 3}`, string(data))
}

func TestExportFunctionNoBody(t *testing.T) {
	// Assembly-style declaration: no Go body, so SSA has no blocks for it.
	src := `package p

func external()
`
	prog, pkg := buildPackage(t, src)
	fn := pkg.Func("external")
	require.NotNil(t, fn)

	fg, err := NewExporter(prog, Options{}).ExportFunction(fn)
	require.NoError(t, err)
	assert.Nil(t, fg, "bodyless declarations are skipped without error")
}

func TestExportPackage(t *testing.T) {
	src := `package p

type T struct{ n int }

func (t *T) Incr() { t.n++ }

func b() {}

func a() { b() }
`
	prog, pkg := buildPackage(t, src)
	mg, err := NewExporter(prog, Options{}).ExportPackage(pkg)
	require.NoError(t, err)

	assert.Equal(t, "p", mg.Module)

	var names []string
	for _, fg := range mg.Functions {
		names = append(names, fg.Name)
	}
	assert.Equal(t, []string{"(*p.T).Incr", "p.a", "p.b"}, names)
}

func TestExportPackageIncludesAnonFuncs(t *testing.T) {
	src := `package p

func g() func() int {
	return func() int { return 1 }
}
`
	prog, pkg := buildPackage(t, src)
	mg, err := NewExporter(prog, Options{}).ExportPackage(pkg)
	require.NoError(t, err)

	var names []string
	for _, fg := range mg.Functions {
		names = append(names, fg.Name)
	}
	assert.Contains(t, names, "p.g")
	assert.Contains(t, names, "p.g$1")
}

func TestMerge(t *testing.T) {
	a := &ModuleGraph{Module: "m1", Functions: []*FunctionGraph{{Name: "m1.f"}}}
	b := &ModuleGraph{Module: "m2", Functions: []*FunctionGraph{{Name: "m2.g"}}}
	c := &ModuleGraph{Module: "m1", Functions: []*FunctionGraph{{Name: "m1.h"}}}

	merged := Merge([]*ModuleGraph{a, b, c})
	require.Len(t, merged, 2)
	assert.Equal(t, "m1", merged[0].Module)
	require.Len(t, merged[0].Functions, 2)
	assert.Equal(t, "m1.f", merged[0].Functions[0].Name)
	assert.Equal(t, "m1.h", merged[0].Functions[1].Name)
	assert.Equal(t, "m2", merged[1].Module)
}
