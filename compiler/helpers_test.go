package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/binpac/hilti"
)

// recorder is a Generator that records instructions as listing lines.
type recorder struct {
	lines  []string
	temps  int
	funcs  map[string]*hilti.Function
	failIf string // Emit fails for lines containing this text
}

func newRecorder() *recorder {
	r := &recorder{funcs: make(map[string]*hilti.Function)}
	for _, f := range hilti.Builtins() {
		r.funcs[f.Name] = f
	}
	return r
}

func (r *recorder) addFunc(name string, params []hilti.Type, result hilti.Type) {
	vars := make([]hilti.Var, len(params))
	for i, t := range params {
		vars[i] = hilti.Var{Name: fmt.Sprintf("p%d", i+1), Type: t}
	}
	r.funcs[name] = hilti.NewFunction(name, vars, result, hilti.CCHilti)
}

func (r *recorder) AddLocal(name string, t hilti.Type) error {
	r.lines = append(r.lines, "local "+name+": "+t.String())
	return nil
}

func (r *recorder) AddTemp(t hilti.Type) hilti.Operand {
	r.temps++
	return &hilti.ID{Name: fmt.Sprintf("__t%d", r.temps), Kind: hilti.IDTemp, Typ: t}
}

func (r *recorder) IDOp(name string) (hilti.Operand, error) {
	if f, ok := r.funcs[name]; ok {
		return &hilti.ID{Name: name, Kind: hilti.IDFunction, Typ: f.Type(), Func: f}, nil
	}
	return &hilti.ID{Name: name, Kind: hilti.IDLocal, Typ: hilti.Any}, nil
}

func (r *recorder) ConstOp(v any) hilti.Operand {
	return &hilti.Const{Value: v, Typ: constType(v)}
}

func (r *recorder) TupleOp(ops []hilti.Operand) hilti.Operand {
	return &hilti.TupleOp{Elems: ops}
}

func (r *recorder) Call(target, fn, args hilti.Operand) error {
	return r.Emit("call", target, fn, args)
}

func (r *recorder) Emit(opcode string, target hilti.Operand, ops ...hilti.Operand) error {
	parts := []string{opcode}
	for _, op := range ops {
		parts = append(parts, op.String())
	}
	line := strings.Join(parts, " ")
	if target != nil {
		line = target.String() + " = " + line
	}
	if r.failIf != "" && strings.Contains(line, r.failIf) {
		return errors.New("cannot emit " + line)
	}
	r.lines = append(r.lines, line)
	return nil
}

func assertLines(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func str(s string) *Constant { return &Constant{Value: s} }

func ident(s string) *Name { return &Name{Name: s} }

// newTestProgram returns a program holding `module Test;`.
func newTestProgram() *Program {
	p := NewProgram()
	p.Add(&ModuleDecl{Name: "Test"})
	return p
}

// addBodyFunc adds a void HILTI function with an empty body.
func addBodyFunc(p *Program, fname string, params ...Param) *FuncDecl {
	fn := p.NewFunc(fname, params, nil, hilti.CCHilti)
	fn.Body = NewBlock(p.Scopes, fn.Scope)
	p.Add(fn)
	return fn
}

func messages(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Message
	}
	return out
}
