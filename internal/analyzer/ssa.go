package analyzer

import (
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildSSA builds the SSA representation for the given packages. GlobalDebug
// keeps debug references and positions so block line ranges survive.
func BuildSSA(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics|ssa.GlobalDebug)

	// Build SSA for all packages
	prog.Build()

	return prog, ssaPkgs
}
