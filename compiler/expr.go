package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Constant is a literal: string, bool, int, int64 or []byte.
type Constant struct {
	SpanVal Span
	Value   any
}

func (n *Constant) Span() Span     { return n.SpanVal }
func (n *Constant) Kind() NodeKind { return KindConstant }
func (n *Constant) expr()          {}

// Name references an identifier.
type Name struct {
	SpanVal Span
	Name    string
}

func (n *Name) Span() Span     { return n.SpanVal }
func (n *Name) Kind() NodeKind { return KindName }
func (n *Name) expr()          {}

// ResultValue is `$$`, the value of the field a hook is attached to.
type ResultValue struct {
	SpanVal Span
}

func (n *ResultValue) Span() Span     { return n.SpanVal }
func (n *ResultValue) Kind() NodeKind { return KindResultValue }
func (n *ResultValue) expr()          {}

// Assign stores Value into the variable Target and yields it.
type Assign struct {
	SpanVal Span
	Target  string
	Value   Expr
}

func (n *Assign) Span() Span     { return n.SpanVal }
func (n *Assign) Kind() NodeKind { return KindAssign }
func (n *Assign) expr()          {}

// Call calls a function. Calls of void functions yield no value.
type Call struct {
	SpanVal Span
	Func    string
	Args    []Expr
}

func (n *Call) Span() Span     { return n.SpanVal }
func (n *Call) Kind() NodeKind { return KindCall }
func (n *Call) expr()          {}

// FuncAddr is `caddr(f)`: the pair of physical addresses of function f.
type FuncAddr struct {
	SpanVal Span
	Func    string
}

func (n *FuncAddr) Span() Span     { return n.SpanVal }
func (n *FuncAddr) Kind() NodeKind { return KindFuncAddr }
func (n *FuncAddr) expr()          {}

// ---------------------------------------------------------------------------
// Static types
// ---------------------------------------------------------------------------

// env resolves names against a position in the scope arena.
type env struct {
	scopes *Scopes
	scope  ScopeID
}

func (e *env) lookup(name string) (*Identifier, bool) {
	if e.scopes == nil || e.scope == NoScope {
		return nil, false
	}
	return e.scopes.Lookup(e.scope, name)
}

// typeOf returns the static type of x. Names that do not resolve type as
// Any so a single mistake is reported once.
func (e *env) typeOf(x Expr) hilti.Type {
	switch x := x.(type) {
	case *Constant:
		if t := constType(x.Value); t != nil {
			return t
		}
	case *Name:
		if id, ok := e.lookup(x.Name); ok {
			return id.Type
		}
	case *ResultValue:
		if id, ok := e.lookup(DollarDollar); ok {
			return id.Type
		}
	case *Assign:
		if id, ok := e.lookup(x.Target); ok {
			return id.Type
		}
	case *Call:
		if id, ok := e.lookup(x.Func); ok {
			if ft, isFunc := id.Type.(*hilti.FunctionType); isFunc {
				return ft.Result
			}
		}
	case *FuncAddr:
		return hilti.Tuple(hilti.CAddr, hilti.CAddr)
	}
	return hilti.Any
}

// constType returns the type of a literal value, or nil if the value has
// no constant representation.
func constType(v any) hilti.Type {
	switch v.(type) {
	case string:
		return hilti.String
	case bool:
		return hilti.Bool
	case int, int64:
		return hilti.Int64
	case []byte:
		return hilti.Bytes
	}
	return nil
}

// ---------------------------------------------------------------------------
// Source form
// ---------------------------------------------------------------------------

// ExprString renders x in source form.
func ExprString(x Expr) string {
	switch x := x.(type) {
	case *Constant:
		switch v := x.Value.(type) {
		case string:
			return strconv.Quote(v)
		case []byte:
			return "b" + strconv.Quote(string(v))
		}
		return fmt.Sprint(x.Value)
	case *Name:
		return x.Name
	case *ResultValue:
		return "$$"
	case *Assign:
		return x.Target + " = " + ExprString(x.Value)
	case *Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = ExprString(a)
		}
		return x.Func + "(" + strings.Join(args, ", ") + ")"
	case *FuncAddr:
		return "caddr(" + x.Func + ")"
	}
	return fmt.Sprintf("<%T>", x)
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

// evaluate emits the code computing x and returns the operand holding its
// value, or nil for expressions without a value.
func (cg *CodeGen) evaluate(x Expr) (hilti.Operand, error) {
	switch x := x.(type) {
	case *Constant:
		return cg.gen.ConstOp(x.Value), nil

	case *Name:
		if id, ok := cg.lookup(x.Name); ok && id.Kind == IdentConstant {
			return cg.gen.ConstOp(id.Value), nil
		}
		return cg.gen.IDOp(cg.storageName(x.Name))

	case *ResultValue:
		return cg.gen.IDOp(DollarDollar)

	case *Assign:
		target, err := cg.gen.IDOp(cg.storageName(x.Target))
		if err != nil {
			return nil, err
		}
		value, err := cg.evaluate(x.Value)
		if err != nil {
			return nil, err
		}
		if err := cg.gen.Emit("assign", target, value); err != nil {
			return nil, err
		}
		return target, nil

	case *Call:
		fn, err := cg.gen.IDOp(x.Func)
		if err != nil {
			return nil, err
		}
		args := make([]hilti.Operand, 0, len(x.Args))
		for _, a := range x.Args {
			op, err := cg.evaluate(a)
			if err != nil {
				return nil, err
			}
			if op == nil {
				hilti.Internalf("void argument in call of %s at %s", x.Func, a.Span())
			}
			args = append(args, op)
		}
		var target hilti.Operand
		if ft, ok := fn.Type().(*hilti.FunctionType); ok && !hilti.IsVoid(ft.Result) {
			target = cg.gen.AddTemp(ft.Result)
		}
		if err := cg.gen.Call(target, fn, cg.gen.TupleOp(args)); err != nil {
			return nil, err
		}
		return target, nil

	case *FuncAddr:
		fn, err := cg.gen.IDOp(x.Func)
		if err != nil {
			return nil, err
		}
		target := cg.gen.AddTemp(hilti.Tuple(hilti.CAddr, hilti.CAddr))
		if err := cg.gen.Emit("caddr.function", target, fn); err != nil {
			return nil, err
		}
		return target, nil
	}

	hilti.Internalf("cannot evaluate %T", x)
	return nil, nil
}
