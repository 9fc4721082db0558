package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// Codegen: lower the AST to the intermediate instruction set
// ---------------------------------------------------------------------------

// Generator receives the instructions of the execute pass.
// *hilti.Builder is the production implementation.
type Generator interface {
	AddLocal(name string, t hilti.Type) error
	AddTemp(t hilti.Type) hilti.Operand
	IDOp(name string) (hilti.Operand, error)
	ConstOp(v any) hilti.Operand
	TupleOp(ops []hilti.Operand) hilti.Operand
	Call(target, fn, args hilti.Operand) error
	Emit(opcode string, target hilti.Operand, ops ...hilti.Operand) error
}

var _ Generator = (*hilti.Builder)(nil)

// ErrAborted marks a lowering stopped at the first failing statement.
var ErrAborted = errors.New("lowering aborted")

// CodeGen runs the execute pass of statements against a Generator.
type CodeGen struct {
	env
	gen      Generator
	failFast bool
	diags    []Diagnostic

	// Storage names of the locals of the current function. Locals of
	// different blocks may share a source name; each gets its own slot.
	taken   map[string]bool
	storage map[*Identifier]string
}

// NewCodeGen creates a code generator resolving names in sc.
func NewCodeGen(sc *Scopes, gen Generator) *CodeGen {
	return &CodeGen{env: env{scopes: sc, scope: NoScope}, gen: gen}
}

// SetFailFast makes the first failing statement abort lowering. By default
// failing statements are reported and their siblings still run.
func (cg *CodeGen) SetFailFast(on bool) {
	cg.failFast = on
}

// BeginFunction starts a new function body whose parameters are params.
// Locals are given storage names distinct from the parameters and from
// each other.
func (cg *CodeGen) BeginFunction(params []hilti.Var) {
	cg.taken = make(map[string]bool, len(params))
	cg.storage = make(map[*Identifier]string)
	for _, p := range params {
		cg.taken[p.Name] = true
	}
}

// declareLocal reserves storage for id and returns its storage name: the
// source name, or name.N when that is taken in the function.
func (cg *CodeGen) declareLocal(id *Identifier) string {
	if cg.taken == nil {
		cg.BeginFunction(nil)
	}
	name := id.Name
	for n := 1; cg.taken[name]; n++ {
		name = fmt.Sprintf("%s.%d", id.Name, n)
	}
	cg.taken[name] = true
	cg.storage[id] = name
	return name
}

// storageName returns the name a resolved identifier is stored under.
func (cg *CodeGen) storageName(name string) string {
	if id, ok := cg.lookup(name); ok && id.Kind == IdentLocal {
		if s, ok := cg.storage[id]; ok {
			return s
		}
	}
	return name
}

// Diagnostics returns the statement failures reported so far.
func (cg *CodeGen) Diagnostics() []Diagnostic {
	return cg.diags
}

// Execute lowers s into the generator.
func (cg *CodeGen) Execute(s Stmt) error {
	return executors[s.Kind()](cg, s)
}

// report records err as a diagnostic for n. It returns false if lowering
// must stop.
func (cg *CodeGen) report(n Node, err error) bool {
	if errors.Is(err, ErrAborted) {
		return false
	}
	cg.diags = append(cg.diags, Diagnostic{Span: n.Span(), Severity: SeverityError, Message: err.Error()})
	return !cg.failFast
}

// run executes s and reports a failure. It returns an error only when
// lowering must stop.
func (cg *CodeGen) run(s Stmt) error {
	err := cg.Execute(s)
	if err == nil || cg.report(s, err) {
		return nil
	}
	if errors.Is(err, ErrAborted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAborted, err)
}

// ---------------------------------------------------------------------------
// Program lowering
// ---------------------------------------------------------------------------

type lowerer struct {
	prog *Program
	b    *hilti.Builder
	cg   *CodeGen

	funcs map[*FuncDecl]*hilti.Function
	hooks map[*FieldHook]*hilti.Function
}

// Lower lowers a checked program into a new module. Statement failures are
// returned as diagnostics; the error is non-nil only if lowering stopped.
func Lower(prog *Program, reg *hilti.Registry, failFast bool) (*hilti.Module, []Diagnostic, error) {
	mod := hilti.NewModule(prog.ModuleName())
	l := &lowerer{
		prog:  prog,
		b:     hilti.NewBuilder(mod, reg),
		funcs: make(map[*FuncDecl]*hilti.Function),
		hooks: make(map[*FieldHook]*hilti.Function),
	}
	l.cg = NewCodeGen(prog.Scopes, l.b)
	l.cg.SetFailFast(failFast)

	err := l.lower()
	return mod, l.cg.Diagnostics(), err
}

func (l *lowerer) lower() error {
	for _, d := range l.prog.Decls {
		var err error
		switch d := d.(type) {
		case *GlobalDecl:
			err = l.declareGlobal(d)
		case *FuncDecl:
			err = l.declareFunc(d)
		case *UnitDecl:
			err = l.declareUnit(d)
		}
		if err != nil && !l.cg.report(d, err) {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
	}

	for _, d := range l.prog.Decls {
		switch d := d.(type) {
		case *FuncDecl:
			if fn, ok := l.funcs[d]; ok && d.Body != nil {
				if err := l.body(fn, d.Body); err != nil {
					return err
				}
			}
		case *UnitDecl:
			for _, h := range d.Hooks {
				if fn, ok := l.hooks[h]; ok {
					if err := l.body(fn, h); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (l *lowerer) declareGlobal(d *GlobalDecl) error {
	g := &hilti.Global{Name: d.Name, Type: d.Type}
	if d.Init != nil {
		g.Init = l.constant(d.Init)
	}
	return l.b.Module().AddGlobal(g)
}

// constant lowers a global initializer. The checker only lets literals
// and named constants through.
func (l *lowerer) constant(x Expr) hilti.Operand {
	switch x := x.(type) {
	case *Constant:
		return l.b.ConstOp(x.Value)
	case *Name:
		if id, ok := l.prog.Scopes.Lookup(l.prog.Scope, x.Name); ok && id.Kind == IdentConstant {
			return l.b.ConstOp(id.Value)
		}
	}
	hilti.Internalf("initializer %s is not constant", ExprString(x))
	return nil
}

func (l *lowerer) declareFunc(d *FuncDecl) error {
	params := make([]hilti.Var, len(d.Params))
	for i, p := range d.Params {
		params[i] = hilti.Var{Name: p.Name, Type: p.Type}
	}
	f := hilti.NewFunction(d.Name, params, d.Result, d.CC)
	if d.Export {
		f.Linkage = hilti.LinkageExport
	}
	if err := l.b.Module().AddFunction(f); err != nil {
		return err
	}
	l.funcs[d] = f
	return nil
}

// declareUnit creates one function per hook, grouped per field, and an
// exported runner per hooked field that runs the group.
func (l *lowerer) declareUnit(u *UnitDecl) error {
	for _, f := range u.Fields {
		hooks := u.HooksFor(f)
		if len(hooks) == 0 {
			continue
		}
		group := hookGroup(l.prog.ModuleName(), f)

		var params []hilti.Var
		for _, p := range hooks[0].Params() {
			params = append(params, hilti.Var{Name: p.Name, Type: p.Type})
		}

		for i, h := range hooks {
			fn := hilti.NewFunction(fmt.Sprintf("%s_%d", group, i+1), params, hilti.Void, hilti.CCHilti)
			fn.Hook = group
			fn.Priority = h.Priority
			if err := l.b.Module().AddFunction(fn); err != nil {
				return err
			}
			l.hooks[h] = fn
		}

		if err := l.runner(group, params); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) runner(group string, params []hilti.Var) error {
	fn := hilti.NewFunction(group+"::run", params, hilti.Void, hilti.CCHilti)
	fn.Linkage = hilti.LinkageExport
	if err := l.b.StartFunction(fn); err != nil {
		return err
	}
	args := make([]hilti.Operand, len(params))
	for i, p := range params {
		op, err := l.b.IDOp(p.Name)
		if err != nil {
			return err
		}
		args[i] = op
	}
	if err := l.b.Emit("hook.run", nil, l.b.ConstOp(group), l.b.TupleOp(args)); err != nil {
		return err
	}
	return l.b.EndFunction()
}

func (l *lowerer) body(fn *hilti.Function, s Stmt) error {
	l.b.EnterFunction(fn)
	l.cg.BeginFunction(fn.Params)
	if err := l.cg.run(s); err != nil {
		return err
	}
	if err := l.b.EndFunction(); err != nil && !l.cg.report(s, err) {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}
