package hilti

import "fmt"

// DefaultRegistry holds the standard instruction set. It is sealed.
var DefaultRegistry = NewDefaultRegistry()

// NewDefaultRegistry builds and seals a registry with the standard
// instruction set.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerStandard(r)
	r.Seal()
	return r
}

func registerStandard(r *Registry) {
	r.Register(Definition{
		Opcode:   "assign",
		Arity:    1,
		Operands: []Constraint{IsAny},
		Target:   assignTarget,
		Codegen:  appendOnly,
		Doc:      "Assigns op1 to the target.",
	})

	r.Register(Definition{
		Opcode:   "call",
		Arity:    2,
		Operands: []Constraint{cConstFunc, callArgs},
		Target:   callTarget,
		Codegen:  codegenCall,
		Doc:      "Calls function op1 with the arguments in tuple op2.",
	})

	r.Register(Definition{
		Opcode:   "caddr.function",
		Arity:    1,
		Operands: []Constraint{All(cConstFunc, isExportedFunction)},
		Target:   cCAddrPair,
		Codegen:  codegenCAddrFunction,
		Doc: "Returns the physical addresses of function op1, which must be exported " +
			"or C-linked. For HILTI functions the first address is the entry point and " +
			"the second the resume function. For C functions only the first is set.",
	})

	r.Register(Definition{
		Opcode:   "return.void",
		Arity:    0,
		Operands: nil,
		Codegen:  codegenReturnVoid,
		Doc:      "Returns from a function without a result.",
	})

	r.Register(Definition{
		Opcode:   "return.result",
		Arity:    1,
		Operands: []Constraint{IsAny},
		Codegen:  codegenReturnResult,
		Doc:      "Returns op1 from the current function.",
	})

	r.Register(Definition{
		Opcode:   "hook.run",
		Arity:    2,
		Operands: []Constraint{cConstString, AnyOf(IsTuple(), IsTuple(IsValue))},
		Codegen:  codegenHookRun,
		Doc: "Runs all functions of hook group op1 by decreasing priority. Op2 is an empty " +
			"tuple or holds the value passed to each hook.",
	})
}

// ---------------------------------------------------------------------------
// Constraints specific to one instruction
// ---------------------------------------------------------------------------

func assignTarget(t Type, op Operand, ins *Instruction) (bool, string) {
	if op == nil {
		return false, "assignment needs a target"
	}
	if !SameType(t, TypeOfOperand(ins.Operands[0])) {
		return false, fmt.Sprintf("cannot assign %s to %s", TypeOfOperand(ins.Operands[0]), t)
	}
	return true, ""
}

// callArgs runs after op1 passed cConstFunc.
func callArgs(t Type, op Operand, ins *Instruction) (bool, string) {
	ft := ins.Operands[0].(*ID).Func.Type()
	tt, ok := t.(*TupleType)
	if !ok {
		return false, "arguments must be a tuple"
	}
	if len(tt.Elems) != len(ft.Params) {
		return false, fmt.Sprintf("function expects %d arguments, got %d", len(ft.Params), len(tt.Elems))
	}
	for i, p := range ft.Params {
		if !SameType(tt.Elems[i], p) {
			return false, fmt.Sprintf("argument %d must be of type %s", i+1, p)
		}
	}
	return true, ""
}

func callTarget(t Type, op Operand, ins *Instruction) (bool, string) {
	if op == nil {
		return true, ""
	}
	ref, ok := ins.Operands[0].(*ID)
	if !ok || ref.Func == nil {
		return false, "must call a function"
	}
	if IsVoid(ref.Func.Result) {
		return false, fmt.Sprintf("function %s returns no value", ref.Name)
	}
	if !SameType(t, ref.Func.Result) {
		return false, fmt.Sprintf("must be of type %s", ref.Func.Result)
	}
	return true, ""
}

// ---------------------------------------------------------------------------
// Codegen callbacks
// ---------------------------------------------------------------------------

func appendOnly(b *Builder, ins *Instruction) error {
	return nil
}

func codegenHookRun(b *Builder, ins *Instruction) error {
	group := ins.Operands[0].(*Const).Value.(string)
	args := ins.Operands[1].Type().(*TupleType)
	for _, f := range b.Module().Hooks(group) {
		if len(f.Params) != len(args.Elems) {
			return fmt.Errorf("%s: hook %s takes %d arguments, got %d", ins.Opcode, f.Name, len(f.Params), len(args.Elems))
		}
	}
	return nil
}

func codegenCall(b *Builder, ins *Instruction) error {
	ref := ins.Operands[0].(*ID)
	if _, ok := b.Module().LookupFunction(ref.Name); !ok {
		Internalf("call to undeclared function %s", ref.Name)
	}
	return nil
}

func codegenCAddrFunction(b *Builder, ins *Instruction) error {
	f := ins.Operands[0].(*ID).Func

	switch {
	case f.CC == CCHilti:
		entry, resume := f.Stubs()
		ins.Value = &TupleOp{Elems: []Operand{
			b.Bitcast(&Address{Symbol: entry}, CAddr),
			b.Bitcast(&Address{Symbol: resume}, CAddr),
		}}
	case f.CC.IsExternal():
		ins.Value = &TupleOp{Elems: []Operand{
			b.Bitcast(&Address{Symbol: f.Symbol()}, CAddr),
			&Undef{Typ: CAddr},
		}}
	default:
		Internalf("caddr.function not supported for %s functions", f.CC)
	}
	return nil
}

func codegenReturnVoid(b *Builder, ins *Instruction) error {
	if fn := b.Function(); !IsVoid(fn.Result) {
		return fmt.Errorf("%s: function %s must return a %s", ins.Opcode, fn.Name, fn.Result)
	}
	return nil
}

func codegenReturnResult(b *Builder, ins *Instruction) error {
	fn := b.Function()
	if got := TypeOfOperand(ins.Operands[0]); !SameType(got, fn.Result) {
		return &ConstraintError{Opcode: ins.Opcode, Operand: 1, Message: fmt.Sprintf("must be of type %s", fn.Result)}
	}
	return nil
}
