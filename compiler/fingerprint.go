package compiler

import (
	"crypto/sha256"
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Program fingerprints: a content hash of the checked tree, ignoring
// source positions.
//
// Encoding conventions:
//   - First byte: FingerprintVersion
//   - Integers: big-endian int64
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Types: their listing string
//   - Child nodes: serialized inline, lists prefixed with their length
//
// The tag bytes are frozen. Adding tags is fine; changing existing ones
// invalidates every stored fingerprint.
// ---------------------------------------------------------------------------

// FingerprintVersion prefixes the serialization. Bumping it invalidates
// all stored fingerprints.
const FingerprintVersion byte = 1

const (
	tagProgram  byte = 0x01
	tagModule   byte = 0x02
	tagTypeDecl byte = 0x03
	tagConst    byte = 0x04
	tagGlobal   byte = 0x05
	tagFunc     byte = 0x06
	tagUnit     byte = 0x07
	tagField    byte = 0x08

	tagBlock     byte = 0x10
	tagFieldHook byte = 0x11
	tagPrint     byte = 0x12
	tagExprStmt  byte = 0x13
	tagLocal     byte = 0x14

	tagConstant    byte = 0x20
	tagName        byte = 0x21
	tagResultValue byte = 0x22
	tagAssign      byte = 0x23
	tagCall        byte = 0x24
	tagFuncAddr    byte = 0x25
	tagNone        byte = 0x2F

	// Constant value kinds
	valString byte = 's'
	valBool   byte = 'b'
	valInt    byte = 'i'
	valBytes  byte = 'y'
)

// Fingerprint returns the SHA-256 of p's canonical serialization. Programs
// differing only in source positions have equal fingerprints.
func Fingerprint(p *Program) [32]byte {
	s := &serializer{scopes: p.Scopes, buf: make([]byte, 0, 512)}
	s.writeByte(FingerprintVersion)
	s.program(p)
	return sha256.Sum256(s.buf)
}

type serializer struct {
	scopes *Scopes
	buf    []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt(v int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(int64(v)))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeType(t interface{ String() string }) {
	if t == nil {
		s.writeByte(tagNone)
		return
	}
	s.writeString(t.String())
}

func (s *serializer) program(p *Program) {
	s.writeByte(tagProgram)
	s.writeUint32(uint32(len(p.Decls)))
	for _, d := range p.Decls {
		s.decl(d)
	}
}

func (s *serializer) decl(d Decl) {
	switch d := d.(type) {
	case *ModuleDecl:
		s.writeByte(tagModule)
		s.writeString(d.Name)

	case *TypeDecl:
		s.writeByte(tagTypeDecl)
		s.writeString(d.Name)
		s.writeType(d.Type)

	case *ConstDecl:
		s.writeByte(tagConst)
		s.writeString(d.Name)
		s.value(d.Value)

	case *GlobalDecl:
		s.writeByte(tagGlobal)
		s.writeString(d.Name)
		s.writeType(d.Type)
		s.expr(d.Init)

	case *FuncDecl:
		s.writeByte(tagFunc)
		s.writeString(d.Name)
		s.writeString(d.CC.String())
		s.writeBool(d.Export)
		s.writeType(d.Result)
		s.writeUint32(uint32(len(d.Params)))
		for _, p := range d.Params {
			s.writeString(p.Name)
			s.writeType(p.Type)
		}
		if d.Body == nil {
			s.writeByte(tagNone)
		} else {
			s.stmt(d.Body)
		}

	case *UnitDecl:
		s.writeByte(tagUnit)
		s.writeString(d.Name)
		s.writeUint32(uint32(len(d.Fields)))
		for _, f := range d.Fields {
			s.writeByte(tagField)
			s.writeString(f.Name)
			s.writeType(f.Type)
		}
		s.writeUint32(uint32(len(d.Hooks)))
		for _, h := range d.Hooks {
			s.stmt(h)
		}
	}
}

// locals writes the locals declared directly in a scope, in declaration
// order.
func (s *serializer) locals(scope ScopeID) {
	var n uint32
	for _, id := range s.scopes.IDs(scope) {
		if id.Kind == IdentLocal {
			n++
		}
	}
	s.writeUint32(n)
	for _, id := range s.scopes.IDs(scope) {
		if id.Kind == IdentLocal {
			s.writeByte(tagLocal)
			s.writeString(id.Name)
			s.writeType(id.Type)
		}
	}
}

func (s *serializer) stmts(stmts []Stmt) {
	s.writeUint32(uint32(len(stmts)))
	for _, st := range stmts {
		s.stmt(st)
	}
}

func (s *serializer) stmt(st Stmt) {
	switch n := st.(type) {
	case *Block:
		s.writeByte(tagBlock)
		s.locals(n.Scope())
		s.stmts(n.Stmts)

	case *FieldHook:
		s.writeByte(tagFieldHook)
		s.writeString(n.Field.Name)
		s.writeInt(n.Priority)
		s.locals(n.Scope())
		s.stmts(n.Stmts)

	case *Print:
		s.writeByte(tagPrint)
		s.exprs(n.Args)

	case *ExprStmt:
		s.writeByte(tagExprStmt)
		s.expr(n.Expr)
	}
}

func (s *serializer) exprs(xs []Expr) {
	s.writeUint32(uint32(len(xs)))
	for _, x := range xs {
		s.expr(x)
	}
}

func (s *serializer) expr(x Expr) {
	switch n := x.(type) {
	case nil:
		s.writeByte(tagNone)

	case *Constant:
		s.writeByte(tagConstant)
		s.value(n.Value)

	case *Name:
		s.writeByte(tagName)
		s.writeString(n.Name)

	case *ResultValue:
		s.writeByte(tagResultValue)

	case *Assign:
		s.writeByte(tagAssign)
		s.writeString(n.Target)
		s.expr(n.Value)

	case *Call:
		s.writeByte(tagCall)
		s.writeString(n.Func)
		s.exprs(n.Args)

	case *FuncAddr:
		s.writeByte(tagFuncAddr)
		s.writeString(n.Func)
	}
}

func (s *serializer) value(v any) {
	switch v := v.(type) {
	case string:
		s.writeByte(valString)
		s.writeString(v)
	case bool:
		s.writeByte(valBool)
		s.writeBool(v)
	case int:
		s.writeByte(valInt)
		s.writeInt(v)
	case int64:
		s.writeByte(valInt)
		s.writeInt(int(v))
	case []byte:
		s.writeByte(valBytes)
		s.writeString(string(v))
	default:
		s.writeByte(tagNone)
	}
}
