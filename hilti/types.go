package hilti

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Type is implemented by every HILTI type. Types are immutable once
// constructed and may be shared freely.
type Type interface {
	Name() string
	String() string
	hiltiType() // marker method
}

// VoidType is the type of expressions that carry no value.
type VoidType struct{}

func (VoidType) Name() string   { return "void" }
func (VoidType) String() string { return "void" }
func (VoidType) hiltiType()     {}

// AnyType matches any value. It is only used in builtin prototypes.
type AnyType struct{}

func (AnyType) Name() string   { return "any" }
func (AnyType) String() string { return "any" }
func (AnyType) hiltiType()     {}

// BoolType is the boolean type.
type BoolType struct{}

func (BoolType) Name() string   { return "bool" }
func (BoolType) String() string { return "bool" }
func (BoolType) hiltiType()     {}

// IntType is a signed integer of a fixed width in bits.
type IntType struct {
	Width int
}

func (IntType) Name() string     { return "int" }
func (t IntType) String() string { return fmt.Sprintf("int<%d>", t.Width) }
func (IntType) hiltiType()       {}

// StringType is the unicode string type.
type StringType struct{}

func (StringType) Name() string   { return "string" }
func (StringType) String() string { return "string" }
func (StringType) hiltiType()     {}

// BytesType is a raw byte sequence, the type of most parsed fields.
type BytesType struct{}

func (BytesType) Name() string   { return "bytes" }
func (BytesType) String() string { return "ref<bytes>" }
func (BytesType) hiltiType()     {}

// CAddrType stores the physical memory address of a HILTI object. There is
// no type information attached to a caddr value.
type CAddrType struct{}

func (CAddrType) Name() string   { return "caddr" }
func (CAddrType) String() string { return "caddr" }
func (CAddrType) hiltiType()     {}

// TupleType is an ordered, fixed-size sequence of typed elements.
type TupleType struct {
	Elems []Type
}

func (*TupleType) Name() string { return "tuple" }
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "tuple<" + strings.Join(parts, ",") + ">"
}
func (*TupleType) hiltiType() {}

// FunctionType is the signature of a function.
type FunctionType struct {
	Params []Type
	Result Type
}

func (*FunctionType) Name() string { return "function" }
func (t *FunctionType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", t.Result, strings.Join(parts, ", "))
}
func (*FunctionType) hiltiType() {}

// Shared instances of the parameterless types.
var (
	Void   Type = VoidType{}
	Any    Type = AnyType{}
	Bool   Type = BoolType{}
	String Type = StringType{}
	Bytes  Type = BytesType{}
	CAddr  Type = CAddrType{}
	Int64  Type = IntType{Width: 64}
)

// Tuple returns a tuple type over elems.
func Tuple(elems ...Type) *TupleType {
	return &TupleType{Elems: elems}
}

// IsVoid reports whether t carries no value. A nil type counts as void.
func IsVoid(t Type) bool {
	if t == nil {
		return true
	}
	_, ok := t.(VoidType)
	return ok
}

// SameType reports whether a and b are structurally identical. Any
// matches everything.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if _, ok := a.(AnyType); ok {
		return true
	}
	if _, ok := b.(AnyType); ok {
		return true
	}
	switch at := a.(type) {
	case *TupleType:
		bt, ok := b.(*TupleType)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return false
		}
		for i := range at.Elems {
			if !SameType(at.Elems[i], bt.Elems[i]) {
				return false
			}
		}
		return true
	case *FunctionType:
		bt, ok := b.(*FunctionType)
		if !ok || len(at.Params) != len(bt.Params) || !SameType(at.Result, bt.Result) {
			return false
		}
		for i := range at.Params {
			if !SameType(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	case IntType:
		bt, ok := b.(IntType)
		return ok && at.Width == bt.Width
	}
	return a.Name() == b.Name()
}

// ---------------------------------------------------------------------------
// Type info
// ---------------------------------------------------------------------------

// TypeInfo is the per-type descriptor consumed by the runtime.
type TypeInfo struct {
	ID         int    // runtime type id
	Name       string // type name as shown to users
	Native     string // native storage representation
	CPrototype string // prototype used when passing values to C
	ToString   string // runtime routine converting a value to a string
}

// typeInfoTable maps type names to their static descriptors. Parameterized
// types adjust the native representation in TypeInfoOf.
var typeInfoTable = map[string]TypeInfo{
	"int":    {1, "int", "int64_t", "int64_t", "hlt::int_to_string"},
	"bool":   {2, "bool", "int8_t", "int8_t", "hlt::bool_to_string"},
	"string": {3, "string", "hlt_string", "hlt_string", "hlt::string_to_string"},
	"bytes":  {4, "bytes", "hlt_bytes *", "hlt_bytes *", "hlt::bytes_to_string"},
	"tuple":  {5, "tuple", "struct", "void *", "hlt::tuple_to_string"},
	"caddr":  {22, "caddr", "void *", "void *", "hlt::caddr_to_string"},
}

// IsPointerSized reports whether values of t are stored as a native
// pointer.
func IsPointerSized(t Type) bool {
	ti, ok := TypeInfoOf(t)
	return ok && strings.HasSuffix(ti.Native, "*")
}

// TypeInfoOf returns the runtime descriptor for t. Types without a runtime
// representation (void, any, function) report false.
func TypeInfoOf(t Type) (TypeInfo, bool) {
	if t == nil {
		return TypeInfo{}, false
	}
	ti, ok := typeInfoTable[t.Name()]
	if !ok {
		return TypeInfo{}, false
	}
	ti.Name = t.String()
	if it, isInt := t.(IntType); isInt {
		ti.Native = fmt.Sprintf("int%d_t", it.Width)
		ti.CPrototype = ti.Native
	}
	return ti, true
}
