package cfg

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ssa"
)

// Options configures the exporter.
type Options struct {
	// UnwrapDepth bounds the number of indirection layers (closures,
	// conversions) the callee resolver steps through before giving up.
	// Zero means DefaultUnwrapDepth.
	UnwrapDepth int
}

// DefaultUnwrapDepth is the default bound for callee resolution.
const DefaultUnwrapDepth = 8

// Exporter walks SSA function bodies and produces their control-flow graphs.
// It only reads the SSA program; exporting the same function twice yields
// identical output.
type Exporter struct {
	prog *ssa.Program
	opts Options
}

// NewExporter creates an exporter for functions of the given program.
func NewExporter(prog *ssa.Program, opts Options) *Exporter {
	if opts.UnwrapDepth <= 0 {
		opts.UnwrapDepth = DefaultUnwrapDepth
	}
	return &Exporter{prog: prog, opts: opts}
}

// ExportPackage exports one FunctionGraph per source function of the package:
// package-level functions, methods of package-level named types, and their
// anonymous functions. Declarations without a body and synthetic wrappers are
// skipped. Function order is deterministic (sorted by qualified name).
func (e *Exporter) ExportPackage(pkg *ssa.Package) (*ModuleGraph, error) {
	mg := &ModuleGraph{Module: pkg.Pkg.Path()}

	for _, fn := range e.sourceFunctions(pkg) {
		fg, err := e.ExportFunction(fn)
		if err != nil {
			return nil, err
		}
		if fg == nil {
			continue // declaration without a body
		}
		mg.Functions = append(mg.Functions, fg)
	}

	return mg, nil
}

// ExportFunction exports the control-flow graph of a single function.
// It returns (nil, nil) for functions without a body.
//
// The walk uses an explicit stack with a visited set, so arbitrarily deep or
// cyclic graphs terminate without recursion. Exactly the blocks reachable
// from the entry block are recorded, each once; unreachable blocks are
// silently excluded.
func (e *Exporter) ExportFunction(fn *ssa.Function) (*FunctionGraph, error) {
	if len(fn.Blocks) == 0 {
		return nil, nil
	}

	fg := &FunctionGraph{
		Name:   fn.String(),
		Entry:  blockLabel(fn.Blocks[0]),
		Blocks: make(map[string]*Block),
	}

	seen := make(map[*ssa.BasicBlock]bool)
	worklist := []*ssa.BasicBlock{fn.Blocks[0]}

	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if seen[b] {
			continue
		}
		seen[b] = true

		label := blockLabel(b)
		fg.Blocks[label] = e.blockInfo(b)

		if len(b.Instrs) == 0 {
			return nil, fmt.Errorf("%s: block %s has no terminator", fn, label)
		}

		opcode, isExit, err := classifyTerminator(b.Instrs[len(b.Instrs)-1])
		if err != nil {
			return nil, fmt.Errorf("%s: block %s: %w", fn, label, err)
		}

		// One edge per successor, in terminator order. Successors are pushed
		// unconditionally; the visited check above handles re-encounters.
		for _, succ := range b.Succs {
			fg.Edges = append(fg.Edges, Edge{Src: label, Dst: blockLabel(succ), Type: opcode})
			worklist = append(worklist, succ)
		}

		for _, instr := range b.Instrs {
			site, ok := instr.(ssa.CallInstruction)
			if !ok {
				continue
			}
			if callee, resolved := e.resolveCallee(site.Common()); resolved {
				fg.Calls = append(fg.Calls, Call{Src: label, Dst: callee, Type: callOpcode(site)})
			} else {
				fg.UnresolvedCalls = append(fg.UnresolvedCalls, label)
			}
		}

		if isExit {
			fg.Returns = append(fg.Returns, Return{Block: label, Type: opcode})
		}
	}

	return fg, nil
}

// classifyTerminator maps a block terminator to its opcode and whether it
// exits the function. The instruction set is closed; an unhandled terminator
// kind is a coverage bug and must fail rather than be silently mis-recorded.
func classifyTerminator(instr ssa.Instruction) (opcode string, isExit bool, err error) {
	switch instr.(type) {
	case *ssa.Jump:
		return "jump", false, nil
	case *ssa.If:
		return "if", false, nil
	case *ssa.Return:
		return "return", true, nil
	case *ssa.Panic:
		return "panic", true, nil
	default:
		return "", false, fmt.Errorf("unsupported terminator %T", instr)
	}
}

func callOpcode(site ssa.CallInstruction) string {
	switch site.(type) {
	case *ssa.Go:
		return "go"
	case *ssa.Defer:
		return "defer"
	default:
		return "call"
	}
}

// blockLabel returns a label that is stable and unique within the function.
// Named blocks keep their comment, qualified by block index because comments
// repeat (a function easily has two "if.then" blocks); anonymous blocks get
// an operand-style %N label.
func blockLabel(b *ssa.BasicBlock) string {
	if b.Comment == "" {
		return fmt.Sprintf("%%%d", b.Index)
	}
	return fmt.Sprintf("%s.%d", b.Comment, b.Index)
}

// blockInfo computes the source-line range and non-debug instruction count of
// a block. Either end of the range may be absent when the block carries no
// position info; absence is recorded as null, not zero.
func (e *Exporter) blockInfo(b *ssa.BasicBlock) *Block {
	info := &Block{}
	fset := e.prog.Fset

	for _, instr := range b.Instrs {
		if _, ok := instr.(*ssa.DebugRef); ok {
			continue
		}
		info.Size++
		if info.StartLine == nil && instr.Pos().IsValid() {
			line := fset.Position(instr.Pos()).Line
			info.StartLine = &line
		}
	}

	if term := b.Instrs[len(b.Instrs)-1]; term.Pos().IsValid() {
		line := fset.Position(term.Pos()).Line
		info.EndLine = &line
	}

	return info
}

// sourceFunctions collects the functions of a package that came from source:
// package-level functions, declared methods of package-level named types, and
// anonymous functions nested in either. Synthetic functions (wrappers, init)
// are excluded.
func (e *Exporter) sourceFunctions(pkg *ssa.Package) []*ssa.Function {
	seen := make(map[*ssa.Function]bool)
	var fns []*ssa.Function

	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || seen[fn] || fn.Synthetic != "" {
			return
		}
		seen[fn] = true
		fns = append(fns, fn)
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}

	for _, mem := range pkg.Members {
		switch mem := mem.(type) {
		case *ssa.Function:
			add(mem)
		case *ssa.Type:
			named, ok := mem.Type().(*types.Named)
			if !ok || types.IsInterface(named) {
				continue
			}
			for i := 0; i < named.NumMethods(); i++ {
				add(e.prog.FuncValue(named.Method(i)))
			}
		}
	}

	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return fns
}
