package hilti

import (
	"fmt"
	"strings"
)

// Constraint is a legality predicate for one instruction argument. It
// receives the argument's declared static type, the operand itself (nil
// when the argument is absent) and the instruction being checked.
type Constraint func(t Type, op Operand, ins *Instruction) (bool, string)

// IsAny accepts any present operand.
func IsAny(t Type, op Operand, ins *Instruction) (bool, string) {
	if op == nil {
		return false, "operand missing"
	}
	return true, ""
}

// IsValue requires a non-void type. Unlike IsAny it works on tuple
// elements known by type only.
func IsValue(t Type, op Operand, ins *Instruction) (bool, string) {
	if IsVoid(t) {
		return false, "must have a value"
	}
	return true, ""
}

// IsNone accepts only an absent operand.
func IsNone(t Type, op Operand, ins *Instruction) (bool, string) {
	if op != nil {
		return false, "superfluous operand"
	}
	return true, ""
}

// IsConstant requires a compile-time constant.
func IsConstant(t Type, op Operand, ins *Instruction) (bool, string) {
	if op == nil || !IsConstantOperand(op) {
		return false, "must be a constant"
	}
	return true, ""
}

// IsFunctionRef requires the name of a function.
func IsFunctionRef(t Type, op Operand, ins *Instruction) (bool, string) {
	if _, ok := t.(*FunctionType); !ok {
		return false, "must be a function name"
	}
	id, ok := op.(*ID)
	if !ok || id.Kind != IDFunction || id.Func == nil {
		return false, "must be a function name"
	}
	return true, ""
}

// IsType requires a value of type want. The check uses the declared type
// only, so it also applies to tuple elements known by type alone.
func IsType(want Type) Constraint {
	return func(t Type, op Operand, ins *Instruction) (bool, string) {
		if t == nil || !SameType(t, want) {
			return false, fmt.Sprintf("must be of type %s", want)
		}
		return true, ""
	}
}

// IsTuple requires a tuple whose elements satisfy elems positionally.
func IsTuple(elems ...Constraint) Constraint {
	return func(t Type, op Operand, ins *Instruction) (bool, string) {
		tt, ok := t.(*TupleType)
		if !ok || len(tt.Elems) != len(elems) {
			return false, fmt.Sprintf("must be a tuple of %d elements", len(elems))
		}
		var ops []Operand
		if lit, isLit := op.(*TupleOp); isLit {
			ops = lit.Elems
		}
		for i, c := range elems {
			var elemOp Operand
			if ops != nil {
				elemOp = ops[i]
			}
			if ok, msg := c(tt.Elems[i], elemOp, ins); !ok {
				return false, fmt.Sprintf("element %d %s", i+1, msg)
			}
		}
		return true, ""
	}
}

// Optional accepts an absent operand and otherwise defers to c.
func Optional(c Constraint) Constraint {
	return func(t Type, op Operand, ins *Instruction) (bool, string) {
		if op == nil {
			return true, ""
		}
		return c(t, op, ins)
	}
}

// All is the conjunction of cs. It reports the first failure.
func All(cs ...Constraint) Constraint {
	return func(t Type, op Operand, ins *Instruction) (bool, string) {
		for _, c := range cs {
			if ok, msg := c(t, op, ins); !ok {
				return false, msg
			}
		}
		return true, ""
	}
}

// AnyOf is the disjunction of cs.
func AnyOf(cs ...Constraint) Constraint {
	return func(t Type, op Operand, ins *Instruction) (bool, string) {
		var msgs []string
		for _, c := range cs {
			ok, msg := c(t, op, ins)
			if ok {
				return true, ""
			}
			msgs = append(msgs, msg)
		}
		return false, strings.Join(msgs, " or ")
	}
}

// Frequently combined predicates.
var (
	cCAddr       = IsType(CAddr)
	cCAddrPair   = IsTuple(cCAddr, cCAddr)
	cConstFunc   = All(IsFunctionRef, IsConstant)
	cConstString = All(IsType(String), IsConstant)
)

// isExportedFunction requires a function that can be addressed from
// outside the module: exported, or linked with a C convention.
func isExportedFunction(t Type, op Operand, ins *Instruction) (bool, string) {
	id := op.(*ID)
	if id.Func.Linkage != LinkageExport && !id.Func.CC.IsExternal() {
		return false, fmt.Sprintf("function %s must be exported", id.Name)
	}
	return true, ""
}
