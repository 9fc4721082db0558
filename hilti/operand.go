package hilti

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// Operand is the runtime representation of an instruction argument.
type Operand interface {
	Type() Type
	String() string
	operand() // marker method
}

// Const is a literal value.
type Const struct {
	Value any // string, int64, bool or []byte
	Typ   Type
}

func (c *Const) Type() Type { return c.Typ }
func (c *Const) operand()   {}

func (c *Const) String() string {
	switch v := c.Value.(type) {
	case string:
		return strconv.Quote(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case []byte:
		return "b" + strconv.Quote(string(v))
	default:
		return fmt.Sprint(v)
	}
}

// IDKind says what an identifier operand refers to.
type IDKind uint8

const (
	IDLocal IDKind = iota
	IDParam
	IDGlobal
	IDFunction
	IDTemp
)

// ID references a named entity of the module or current function.
type ID struct {
	Name string
	Kind IDKind
	Typ  Type
	Func *Function // set when Kind == IDFunction
}

func (id *ID) Type() Type     { return id.Typ }
func (id *ID) String() string { return id.Name }
func (id *ID) operand()       {}

// TupleOp is a tuple built from operands.
type TupleOp struct {
	Elems []Operand
}

func (t *TupleOp) Type() Type {
	elems := make([]Type, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = e.Type()
	}
	return Tuple(elems...)
}

func (t *TupleOp) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *TupleOp) operand() {}

// Address is the physical address of a linked symbol. Codegen callbacks
// produce addresses; they never appear in user-written code.
type Address struct {
	Symbol string
}

func (a *Address) Type() Type     { return CAddr }
func (a *Address) String() string { return "@" + a.Symbol }
func (a *Address) operand()       {}

// Undef is a value of the given type whose content is unspecified.
type Undef struct {
	Typ Type
}

func (u *Undef) Type() Type     { return u.Typ }
func (u *Undef) String() string { return "undef" }
func (u *Undef) operand()       {}

// Cast reinterprets a pointer-sized operand as another type.
type Cast struct {
	Op Operand
	To Type
}

func (c *Cast) Type() Type     { return c.To }
func (c *Cast) String() string { return fmt.Sprintf("bitcast(%s, %s)", c.Op, c.To) }
func (c *Cast) operand()       {}

// IsConstantOperand reports whether op is known at compile time. Function names
// are constants; tuples are constant when all their elements are.
func IsConstantOperand(op Operand) bool {
	switch o := op.(type) {
	case *Const, *Address:
		return true
	case *ID:
		return o.Kind == IDFunction
	case *TupleOp:
		for _, e := range o.Elems {
			if !IsConstantOperand(e) {
				return false
			}
		}
		return true
	case *Cast:
		return IsConstantOperand(o.Op)
	}
	return false
}

// TypeOfOperand returns op's type, or nil for a missing operand.
func TypeOfOperand(op Operand) Type {
	if op == nil {
		return nil
	}
	return op.Type()
}
