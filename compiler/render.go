package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Render: write the AST back in source form
// ---------------------------------------------------------------------------

// Renderer receives source text. Push and Pop change the indentation of
// the lines that follow.
type Renderer interface {
	Output(text string, nl bool)
	Push()
	Pop()
}

// Printer is a Renderer that indents with two spaces per level.
type Printer struct {
	buf         strings.Builder
	indent      int
	atLineStart bool
}

// NewPrinter creates an empty printer.
func NewPrinter() *Printer {
	return &Printer{atLineStart: true}
}

// Output appends text, ending the line if nl is set.
func (p *Printer) Output(text string, nl bool) {
	if p.atLineStart && text != "" {
		p.buf.WriteString(strings.Repeat("  ", p.indent))
		p.atLineStart = false
	}
	p.buf.WriteString(text)
	if nl {
		p.buf.WriteByte('\n')
		p.atLineStart = true
	}
}

// Push increases the indentation.
func (p *Printer) Push() {
	p.indent++
}

// Pop decreases the indentation.
func (p *Printer) Pop() {
	if p.indent > 0 {
		p.indent--
	}
}

// String returns everything written so far.
func (p *Printer) String() string {
	return p.buf.String()
}

// Render writes a program in source form.
func Render(r Renderer, prog *Program) {
	for i, d := range prog.Decls {
		if i > 0 {
			if _, isModule := prog.Decls[i-1].(*ModuleDecl); isModule {
				r.Output("", true)
			}
		}
		renderDecl(r, d)
	}
}

func renderDecl(r Renderer, d Decl) {
	switch d := d.(type) {
	case *ModuleDecl:
		r.Output(fmt.Sprintf("module %s;", d.Name), true)
	case *TypeDecl:
		r.Output(fmt.Sprintf("type %s = %s;", d.Name, d.Type), true)
	case *ConstDecl:
		r.Output(fmt.Sprintf("const %s = %s;", d.Name, ExprString(&Constant{Value: d.Value})), true)
	case *GlobalDecl:
		if d.Init != nil {
			r.Output(fmt.Sprintf("global %s: %s = %s;", d.Name, d.Type, ExprString(d.Init)), true)
		} else {
			r.Output(fmt.Sprintf("global %s: %s;", d.Name, d.Type), true)
		}
	case *FuncDecl:
		renderFunc(r, d)
	case *UnitDecl:
		renderUnit(r, d)
	}
}

func renderFunc(r Renderer, fn *FuncDecl) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	head := fmt.Sprintf("%s(%s) -> %s", fn.Name, strings.Join(params, ", "), fn.Result)
	if fn.Export {
		head = "export " + head
	}
	if fn.Body == nil {
		r.Output(fmt.Sprintf("declare %q %s;", fn.CC, head), true)
		return
	}
	r.Output(head+" ", false)
	renderBlock(r, fn.Body)
}

func renderUnit(r Renderer, u *UnitDecl) {
	r.Output(fmt.Sprintf("unit %s {", u.Name), true)
	r.Push()
	for _, f := range u.Fields {
		r.Output(fmt.Sprintf("%s: %s;", f.Name, f.Type), true)
	}
	for _, h := range u.Hooks {
		RenderStmt(r, h)
	}
	r.Pop()
	r.Output("}", true)
}
