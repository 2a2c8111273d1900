package cfg

import (
	"golang.org/x/tools/go/ssa"
)

// resolveCallee unwraps the callee operand of a call site down to a concrete
// function or builtin and reports whether it succeeded. Interface method
// invocations and calls through runtime values stay unresolved; they are
// never speculatively devirtualized.
//
// The unwrap loop is bounded by Options.UnwrapDepth so a malformed value
// chain cannot spin forever.
func (e *Exporter) resolveCallee(common *ssa.CallCommon) (string, bool) {
	if common.IsInvoke() {
		// Dynamic dispatch through an interface: the method is known but the
		// concrete callee is a runtime property.
		return "", false
	}

	v := common.Value
	for i := 0; i < e.opts.UnwrapDepth; i++ {
		switch val := v.(type) {
		case *ssa.Function:
			return val.String(), true
		case *ssa.Builtin:
			return val.Name(), true
		case *ssa.MakeClosure:
			v = val.Fn
		case *ssa.ChangeType:
			v = val.X
		case *ssa.Convert:
			v = val.X
		case *ssa.ChangeInterface:
			v = val.X
		case *ssa.MakeInterface:
			v = val.X
		default:
			// Parameter, phi, load, ... : a genuinely indirect call.
			return "", false
		}
	}
	return "", false
}
