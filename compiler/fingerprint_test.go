package compiler

import "testing"

func TestFingerprintIgnoresPositions(t *testing.T) {
	a := buildParserProgram()
	b := buildParserProgram()
	b.Decls[1].(*GlobalDecl).SpanVal = Span{Start: Position{Line: 9, Column: 4}}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("programs differing only in positions should have equal fingerprints")
	}
}

func TestFingerprintChanges(t *testing.T) {
	base := Fingerprint(buildParserProgram())

	tests := []struct {
		name   string
		mutate func(p *Program)
	}{
		{"constant value", func(p *Program) {
			p.Decls[1].(*GlobalDecl).Init = &Constant{Value: 1}
		}},
		{"hook priority", func(p *Program) {
			p.Decls[4].(*UnitDecl).Hooks[0].Priority = 6
		}},
		{"extra local", func(p *Program) {
			p.Decls[3].(*FuncDecl).Body.DeclareLocal(p.Scopes, "m", constType(1))
		}},
		{"export flag", func(p *Program) {
			p.Decls[3].(*FuncDecl).Export = false
		}},
		{"print argument", func(p *Program) {
			p.Decls[3].(*FuncDecl).Body.Stmts[0] = &Print{Args: []Expr{str("ho")}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := buildParserProgram()
			tc.mutate(p)
			if Fingerprint(p) == base {
				t.Error("fingerprint did not change")
			}
		})
	}
}
