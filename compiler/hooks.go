package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/binpac/hilti"
)

// DollarDollar is the parameter through which a field hook sees the value
// of its field.
const DollarDollar = "__dollardollar"

type hookPhase uint8

const (
	hookPending hookPhase = iota // field type not yet resolved
	hookFinal                    // parameters injected
)

// FieldHook is a block run after its field has been parsed. Hooks of the
// same field run by decreasing Priority.
//
// The $$ parameter depends on the field's type, which may only be known
// after ResolveTypes. The hook therefore stays pending until Scope is
// first called on a resolved field; that call injects the parameters and
// makes the hook final.
type FieldHook struct {
	Block
	Field    *Field
	Priority int

	scopes *Scopes
	phase  hookPhase
	params []*Identifier
}

func (n *FieldHook) Kind() NodeKind { return KindFieldHook }

// NewFieldHook creates a hook on f. Its scope is a child of the unit's.
func NewFieldHook(sc *Scopes, f *Field, priority int, stmts ...Stmt) *FieldHook {
	h := &FieldHook{Field: f, Priority: priority, scopes: sc}
	h.Block = Block{Stmts: stmts, scope: sc.New(f.Unit.Scope)}
	return h
}

// Scope returns the hook's scope, with the hook parameters in it once the
// field type is resolved.
func (n *FieldHook) Scope() ScopeID {
	n.finalize()
	return n.scope
}

// Params returns the hook's parameters: $$ if the field yields a value.
func (n *FieldHook) Params() []*Identifier {
	n.finalize()
	return n.params
}

// Final reports whether the hook's parameters are settled.
func (n *FieldHook) Final() bool {
	return n.phase == hookFinal
}

func (n *FieldHook) finalize() {
	if n.phase == hookFinal || !n.Field.Resolved() {
		return
	}
	if t := n.Field.ResultValueType(); t != nil {
		p := &Identifier{Name: DollarDollar, Kind: IdentParameter, Type: t, SpanVal: n.SpanVal}
		if !n.scopes.Add(n.scope, p) {
			hilti.Internalf("hook on %s already declares %s", n.Field.Name, DollarDollar)
		}
		n.params = append(n.params, p)
	}
	n.phase = hookFinal
}

// AddHook attaches h to the unit. h must be on one of the unit's fields.
func (u *UnitDecl) AddHook(h *FieldHook) {
	u.Hooks = append(u.Hooks, h)
}

// HooksFor returns the hooks of f in execution order: decreasing
// priority, ties in the order the hooks were added.
func (u *UnitDecl) HooksFor(f *Field) []*FieldHook {
	var hooks []*FieldHook
	for _, h := range u.Hooks {
		if h.Field == f {
			hooks = append(hooks, h)
		}
	}
	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority > hooks[j].Priority
	})
	return hooks
}

// hookGroup names the hook group of field f in module mod.
func hookGroup(mod string, f *Field) string {
	return fmt.Sprintf("%s::%s::%s", mod, f.Unit.Name, f.Name)
}

func validateFieldHook(c *Checker, s Stmt) {
	h := s.(*FieldHook)
	if f, ok := h.Field.Unit.Field(h.Field.Name); !ok || f != h.Field {
		c.error(h, fmt.Sprintf("unknown field %s in unit %s", h.Field.Name, h.Field.Unit.Name))
	}
}

func renderFieldHook(r Renderer, s Stmt) {
	h := s.(*FieldHook)
	r.Output(fmt.Sprintf("on %s &priority=%d ", h.Field.Name, h.Priority), false)
	renderBlock(r, &h.Block)
}
