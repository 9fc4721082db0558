package hilti

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Builder: emits instructions into the functions of a module
// ---------------------------------------------------------------------------

// Builder appends checked instructions to the current function of a
// module. Every instruction goes through its definition's constraints
// before its codegen callback runs.
type Builder struct {
	mod   *Module
	reg   *Registry
	fn    *Function
	temps int
}

// NewBuilder creates a builder emitting into mod. A nil registry selects
// DefaultRegistry.
func NewBuilder(mod *Module, reg *Registry) *Builder {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Builder{mod: mod, reg: reg}
}

// Module returns the module being built.
func (b *Builder) Module() *Module {
	return b.mod
}

// Registry returns the instruction registry in use.
func (b *Builder) Registry() *Registry {
	return b.reg
}

// Function returns the function currently receiving instructions.
func (b *Builder) Function() *Function {
	return b.fn
}

// StartFunction adds f to the module and makes it current.
func (b *Builder) StartFunction(f *Function) error {
	if err := b.mod.AddFunction(f); err != nil {
		return err
	}
	b.fn = f
	b.temps = 0
	return nil
}

// EnterFunction makes f, which must already be part of the module,
// current. It is used to fill in functions declared ahead of their bodies.
func (b *Builder) EnterFunction(f *Function) {
	if g, ok := b.mod.byName[f.Name]; !ok || g != f {
		Internalf("function %s is not part of module %s", f.Name, b.mod.Name)
	}
	b.fn = f
	b.temps = 0
}

// EndFunction closes the current function. A void function without a
// trailing return gets one.
func (b *Builder) EndFunction() error {
	fn := b.current("end function")
	defer func() { b.fn = nil }()
	if IsVoid(fn.Result) {
		if n := len(fn.Body); n == 0 || fn.Body[n-1].Opcode != "return.void" {
			return b.Emit("return.void", nil)
		}
	}
	return nil
}

// AddLocal declares a local of the current function.
func (b *Builder) AddLocal(name string, t Type) error {
	return b.current("add local").addLocal(name, t)
}

// AddTemp declares a fresh compiler-generated local and returns it.
func (b *Builder) AddTemp(t Type) Operand {
	fn := b.current("add temp")
	for {
		b.temps++
		name := fmt.Sprintf("__t%d", b.temps)
		if err := fn.addLocal(name, t); err == nil {
			return &ID{Name: name, Kind: IDTemp, Typ: t}
		}
	}
}

// IDOp resolves name against the current function's locals and
// parameters, then the module's globals and functions.
func (b *Builder) IDOp(name string) (Operand, error) {
	if b.fn != nil {
		if v, ok := b.fn.Local(name); ok {
			return &ID{Name: name, Kind: IDLocal, Typ: v.Type}, nil
		}
		if v, ok := b.fn.Param(name); ok {
			return &ID{Name: name, Kind: IDParam, Typ: v.Type}, nil
		}
	}
	if g, ok := b.mod.LookupGlobal(name); ok {
		return &ID{Name: name, Kind: IDGlobal, Typ: g.Type}, nil
	}
	if f, ok := b.mod.LookupFunction(name); ok {
		return &ID{Name: name, Kind: IDFunction, Typ: f.Type(), Func: f}, nil
	}
	return nil, fmt.Errorf("unknown identifier %s", name)
}

// ConstOp wraps a Go literal as a constant operand.
func (b *Builder) ConstOp(v any) Operand {
	switch val := v.(type) {
	case string:
		return &Const{Value: val, Typ: String}
	case bool:
		return &Const{Value: val, Typ: Bool}
	case int:
		return &Const{Value: int64(val), Typ: Int64}
	case int64:
		return &Const{Value: val, Typ: Int64}
	case []byte:
		return &Const{Value: val, Typ: Bytes}
	}
	Internalf("no constant representation for %T", v)
	return nil
}

// TupleOp builds a tuple operand.
func (b *Builder) TupleOp(ops []Operand) Operand {
	return &TupleOp{Elems: append([]Operand(nil), ops...)}
}

// Bitcast reinterprets a pointer-sized operand as type to.
func (b *Builder) Bitcast(op Operand, to Type) Operand {
	if !IsPointerSized(op.Type()) {
		Internalf("bitcast of %s operand", op.Type())
	}
	if !IsPointerSized(to) {
		Internalf("bitcast to %s", to)
	}
	if SameType(op.Type(), to) {
		return op
	}
	return &Cast{Op: op, To: to}
}

// Call emits a call of fn with the argument tuple args. target may be nil
// to discard the result.
func (b *Builder) Call(target Operand, fn Operand, args Operand) error {
	return b.Emit("call", target, fn, args)
}

// Emit checks and appends one instruction. A constraint failure leaves
// the function unchanged and returns a *ConstraintError.
func (b *Builder) Emit(opcode string, target Operand, ops ...Operand) error {
	fn := b.current("emit " + opcode)

	def, err := b.reg.Resolve(opcode)
	if err != nil {
		return err
	}

	ins := &Instruction{Opcode: opcode, Target: target, Operands: ops, Def: def}
	if err := def.Check(ins); err != nil {
		return err
	}
	if err := def.Codegen(b, ins); err != nil {
		return err
	}

	fn.Body = append(fn.Body, ins)
	return nil
}

func (b *Builder) current(what string) *Function {
	if b.fn == nil {
		Internalf("%s outside of a function", what)
	}
	return b.fn
}
