package compiler

import (
	"fmt"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// AST: BinPAC declarations, statements and expressions
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}

// NodeKind identifies the concrete type of a node. Statement kinds come
// first so they can index the per-pass statement tables.
type NodeKind uint8

const (
	KindBlock NodeKind = iota
	KindFieldHook
	KindPrint
	KindExprStmt

	KindProgram
	KindModule
	KindType
	KindConst
	KindGlobal
	KindFunc
	KindUnit
	KindField

	KindConstant
	KindName
	KindResultValue
	KindAssign
	KindCall
	KindFuncAddr

	numNodeKinds
)

const numStmtKinds = KindExprStmt + 1

var kindNames = [numNodeKinds]string{
	KindBlock:       "block",
	KindFieldHook:   "field hook",
	KindPrint:       "print",
	KindExprStmt:    "expression statement",
	KindProgram:     "program",
	KindModule:      "module",
	KindType:        "type declaration",
	KindConst:       "constant declaration",
	KindGlobal:      "global declaration",
	KindFunc:        "function",
	KindUnit:        "unit",
	KindField:       "field",
	KindConstant:    "constant",
	KindName:        "name",
	KindResultValue: "$$",
	KindAssign:      "assignment",
	KindCall:        "call",
	KindFuncAddr:    "caddr",
}

func (k NodeKind) String() string {
	if k < numNodeKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	Kind() NodeKind
}

// Decl is a top-level declaration of a Program.
type Decl interface {
	Node
	decl() // marker method
}

// ---------------------------------------------------------------------------
// Program and declarations
// ---------------------------------------------------------------------------

// Program is the root of one translation unit. It owns the scope arena of
// all blocks, functions and units it contains.
type Program struct {
	SpanVal Span
	Scopes  *Scopes
	Scope   ScopeID
	Decls   []Decl

	types map[string]*TypeDecl
}

func (n *Program) Span() Span     { return n.SpanVal }
func (n *Program) Kind() NodeKind { return KindProgram }

// NewProgram creates an empty program whose root scope knows the runtime
// builtins.
func NewProgram() *Program {
	sc := NewScopes()
	p := &Program{Scopes: sc, types: make(map[string]*TypeDecl)}
	p.Scope = sc.New(NoScope)

	for _, f := range hilti.Builtins() {
		sc.Add(p.Scope, &Identifier{Name: f.Name, Kind: IdentFunction, Type: f.Type()})
	}
	return p
}

// Add appends d and declares the names it introduces in the program scope.
func (p *Program) Add(d Decl) {
	p.Decls = append(p.Decls, d)
	switch d := d.(type) {
	case *TypeDecl:
		p.types[d.Name] = d
	case *ConstDecl:
		p.Scopes.Add(p.Scope, &Identifier{Name: d.Name, Kind: IdentConstant, Type: constType(d.Value), Value: d.Value, SpanVal: d.SpanVal})
	case *GlobalDecl:
		p.Scopes.Add(p.Scope, &Identifier{Name: d.Name, Kind: IdentGlobal, Type: d.Type, SpanVal: d.SpanVal})
	case *FuncDecl:
		p.Scopes.Add(p.Scope, &Identifier{Name: d.Name, Kind: IdentFunction, Type: d.Type(), Func: d, SpanVal: d.SpanVal})
	}
}

// ModuleName returns the name of the first module declaration, or "".
func (p *Program) ModuleName() string {
	for _, d := range p.Decls {
		if m, ok := d.(*ModuleDecl); ok {
			return m.Name
		}
	}
	return ""
}

// ModuleDecl is `module Name;`.
type ModuleDecl struct {
	SpanVal Span
	Name    string
}

func (n *ModuleDecl) Span() Span     { return n.SpanVal }
func (n *ModuleDecl) Kind() NodeKind { return KindModule }
func (n *ModuleDecl) decl()          {}

// TypeDecl is `type Name = T;`.
type TypeDecl struct {
	SpanVal Span
	Name    string
	Type    FieldType
}

func (n *TypeDecl) Span() Span     { return n.SpanVal }
func (n *TypeDecl) Kind() NodeKind { return KindType }
func (n *TypeDecl) decl()          {}

// ConstDecl is `const Name = value;`.
type ConstDecl struct {
	SpanVal Span
	Name    string
	Value   any
}

func (n *ConstDecl) Span() Span     { return n.SpanVal }
func (n *ConstDecl) Kind() NodeKind { return KindConst }
func (n *ConstDecl) decl()          {}

// GlobalDecl is `global Name: T [= init];`.
type GlobalDecl struct {
	SpanVal Span
	Name    string
	Type    hilti.Type
	Init    Expr // optional
}

func (n *GlobalDecl) Span() Span     { return n.SpanVal }
func (n *GlobalDecl) Kind() NodeKind { return KindGlobal }
func (n *GlobalDecl) decl()          {}

// Param is a function parameter.
type Param struct {
	Name string
	Type hilti.Type
}

// FuncDecl declares a function. Body is nil for external declarations.
type FuncDecl struct {
	SpanVal Span
	Name    string
	Params  []Param
	Result  hilti.Type
	CC      hilti.CallingConvention
	Export  bool
	Scope   ScopeID // holds the parameters
	Body    *Block
}

func (n *FuncDecl) Span() Span     { return n.SpanVal }
func (n *FuncDecl) Kind() NodeKind { return KindFunc }
func (n *FuncDecl) decl()          {}

// NewFunc creates a function declaration whose parameter scope is a child
// of the program scope. The caller attaches a body built on fn.Scope.
func (p *Program) NewFunc(name string, params []Param, result hilti.Type, cc hilti.CallingConvention) *FuncDecl {
	if result == nil {
		result = hilti.Void
	}
	fn := &FuncDecl{Name: name, Params: params, Result: result, CC: cc}
	fn.Scope = p.Scopes.New(p.Scope)
	for _, prm := range params {
		p.Scopes.Add(fn.Scope, &Identifier{Name: prm.Name, Kind: IdentParameter, Type: prm.Type})
	}
	return fn
}

// Type returns the function's signature.
func (n *FuncDecl) Type() *hilti.FunctionType {
	ft := &hilti.FunctionType{Result: n.Result}
	for _, prm := range n.Params {
		ft.Params = append(ft.Params, prm.Type)
	}
	return ft
}

// ---------------------------------------------------------------------------
// Units and fields
// ---------------------------------------------------------------------------

// UnitDecl is a parsed unit: an ordered list of fields and the hooks
// attached to them.
type UnitDecl struct {
	SpanVal Span
	Name    string
	Scope   ScopeID
	Fields  []*Field
	Hooks   []*FieldHook // registration order
}

func (n *UnitDecl) Span() Span     { return n.SpanVal }
func (n *UnitDecl) Kind() NodeKind { return KindUnit }
func (n *UnitDecl) decl()          {}

// NewUnit creates a unit whose scope is a child of the program scope.
func (p *Program) NewUnit(name string) *UnitDecl {
	return &UnitDecl{Name: name, Scope: p.Scopes.New(p.Scope)}
}

// AddField appends a field of type t.
func (u *UnitDecl) AddField(name string, t FieldType) *Field {
	f := &Field{Name: name, Unit: u, Type: t}
	u.Fields = append(u.Fields, f)
	return f
}

// Field looks up a field by name.
func (u *UnitDecl) Field(name string) (*Field, bool) {
	for _, f := range u.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Field is one field of a unit.
type Field struct {
	SpanVal Span
	Name    string
	Unit    *UnitDecl
	Type    FieldType
}

func (n *Field) Span() Span     { return n.SpanVal }
func (n *Field) Kind() NodeKind { return KindField }

// Resolved reports whether the field's type is known.
func (n *Field) Resolved() bool {
	_, named := n.Type.(*NamedType)
	return n.Type != nil && !named
}

// ResultValueType is the type of $$ in hooks of the field, or nil when the
// field has none or its type is not yet resolved.
func (n *Field) ResultValueType() hilti.Type {
	if !n.Resolved() {
		return nil
	}
	return n.Type.ResultValueType(n)
}

// ---------------------------------------------------------------------------
// Field types
// ---------------------------------------------------------------------------

// FieldType is the parse type of a unit field.
type FieldType interface {
	String() string
	// ResultValueType returns the value a field of this type yields, or
	// nil if parsing it produces no value.
	ResultValueType(f *Field) hilti.Type
}

// BytesField parses Length raw bytes.
type BytesField struct {
	Length int
}

func (t *BytesField) String() string                      { return fmt.Sprintf("bytes &length=%d", t.Length) }
func (t *BytesField) ResultValueType(f *Field) hilti.Type { return hilti.Bytes }

// UIntField parses an unsigned integer of Width bits.
type UIntField struct {
	Width int
}

func (t *UIntField) String() string                      { return fmt.Sprintf("uint%d", t.Width) }
func (t *UIntField) ResultValueType(f *Field) hilti.Type { return hilti.IntType{Width: t.Width} }

// SkipField consumes input without producing a value.
type SkipField struct {
	Length int
}

func (t *SkipField) String() string                      { return fmt.Sprintf("skip &length=%d", t.Length) }
func (t *SkipField) ResultValueType(f *Field) hilti.Type { return nil }

// NamedType refers to a TypeDecl. It is replaced by ResolveTypes.
type NamedType struct {
	Name string
}

func (t *NamedType) String() string                      { return t.Name }
func (t *NamedType) ResultValueType(f *Field) hilti.Type { return nil }
