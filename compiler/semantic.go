package compiler

// ---------------------------------------------------------------------------
// Type resolution: replace named field types with their declarations
// ---------------------------------------------------------------------------

// ResolveTypes replaces every NamedType of p's type declarations and unit
// fields with the type it names. Names that do not resolve, directly or
// through a cycle of declarations, are left in place for the checker to
// report. It returns the number of fields still unresolved.
func ResolveTypes(p *Program) int {
	for _, d := range p.Decls {
		if td, ok := d.(*TypeDecl); ok {
			td.Type = p.resolve(td.Type)
		}
	}

	unresolved := 0
	for _, d := range p.Decls {
		u, ok := d.(*UnitDecl)
		if !ok {
			continue
		}
		for _, f := range u.Fields {
			f.Type = p.resolve(f.Type)
			if !f.Resolved() {
				unresolved++
			}
		}
	}
	return unresolved
}

func (p *Program) resolve(t FieldType) FieldType {
	seen := make(map[string]bool)
	for {
		named, ok := t.(*NamedType)
		if !ok || seen[named.Name] {
			return t
		}
		seen[named.Name] = true
		td, ok := p.types[named.Name]
		if !ok {
			return t
		}
		t = td.Type
	}
}
