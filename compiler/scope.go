package compiler

import (
	"fmt"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// Scopes: an arena of identifier tables
// ---------------------------------------------------------------------------

// ScopeID addresses a scope in a Scopes arena.
type ScopeID int

// NoScope is the parent of a root scope.
const NoScope ScopeID = -1

// IdentKind classifies an identifier.
type IdentKind uint8

const (
	IdentLocal IdentKind = iota
	IdentParameter
	IdentGlobal
	IdentFunction
	IdentConstant
)

func (k IdentKind) String() string {
	switch k {
	case IdentLocal:
		return "local"
	case IdentParameter:
		return "parameter"
	case IdentGlobal:
		return "global"
	case IdentFunction:
		return "function"
	case IdentConstant:
		return "constant"
	}
	return fmt.Sprintf("IdentKind(%d)", k)
}

// Identifier is a named entity visible in a scope.
type Identifier struct {
	SpanVal Span
	Name    string
	Kind    IdentKind
	Type    hilti.Type
	Value   any       // IdentConstant only
	Func    *FuncDecl // IdentFunction; nil for runtime builtins
}

type scopeRecord struct {
	parent ScopeID
	ids    []*Identifier
	index  map[string]int
}

// Scopes owns every scope of a program. A scope's parent is fixed when the
// scope is created.
type Scopes struct {
	records []scopeRecord
}

// NewScopes creates an empty arena.
func NewScopes() *Scopes {
	return &Scopes{}
}

// New creates a scope with the given parent, which may be NoScope.
func (s *Scopes) New(parent ScopeID) ScopeID {
	if parent != NoScope {
		s.record(parent)
	}
	s.records = append(s.records, scopeRecord{parent: parent, index: make(map[string]int)})
	return ScopeID(len(s.records) - 1)
}

// Parent returns the enclosing scope of id.
func (s *Scopes) Parent(id ScopeID) (ScopeID, bool) {
	p := s.record(id).parent
	return p, p != NoScope
}

// Add inserts ident into scope id. It reports false and changes nothing
// if the scope already holds an identifier of that name.
func (s *Scopes) Add(id ScopeID, ident *Identifier) bool {
	r := s.record(id)
	if _, exists := r.index[ident.Name]; exists {
		return false
	}
	r.index[ident.Name] = len(r.ids)
	r.ids = append(r.ids, ident)
	return true
}

// LookupLocal finds name in scope id only.
func (s *Scopes) LookupLocal(id ScopeID, name string) (*Identifier, bool) {
	r := s.record(id)
	if i, ok := r.index[name]; ok {
		return r.ids[i], true
	}
	return nil, false
}

// Lookup finds name in scope id or the nearest enclosing scope.
func (s *Scopes) Lookup(id ScopeID, name string) (*Identifier, bool) {
	for id != NoScope {
		if ident, ok := s.LookupLocal(id, name); ok {
			return ident, true
		}
		id = s.records[id].parent
	}
	return nil, false
}

// IDs returns the identifiers of scope id in insertion order.
func (s *Scopes) IDs(id ScopeID) []*Identifier {
	return s.record(id).ids
}

func (s *Scopes) record(id ScopeID) *scopeRecord {
	if id < 0 || int(id) >= len(s.records) {
		hilti.Internalf("scope %d does not exist", id)
	}
	return &s.records[id]
}
