package hilti

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the module.
func (m *Module) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === module %s ===\n", m.Name))
	sb.WriteString(fmt.Sprintf("; HILTI image v%d\n", ImageVersion))

	if groups := m.HookGroups(); len(groups) > 0 {
		sb.WriteString("; Hooks:\n")
		for _, g := range groups {
			sb.WriteString(fmt.Sprintf(";   %s:", g))
			for _, f := range m.Hooks(g) {
				sb.WriteString(fmt.Sprintf(" %s(%d)", f.Name, f.Priority))
			}
			sb.WriteString("\n")
		}
	}

	if len(m.Globals) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range m.Globals {
		if g.Init != nil {
			sb.WriteString(fmt.Sprintf("global %s %s = %s\n", g.Type, g.Name, g.Init))
		} else {
			sb.WriteString(fmt.Sprintf("global %s %s\n", g.Type, g.Name))
		}
	}

	for _, f := range m.Functions {
		sb.WriteString("\n")
		f.disassembleInto(&sb)
	}
	return sb.String()
}

// Disassemble returns a human-readable listing of the function.
func (f *Function) Disassemble() string {
	var sb strings.Builder
	f.disassembleInto(&sb)
	return sb.String()
}

func (f *Function) disassembleInto(sb *strings.Builder) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}

	header := fmt.Sprintf("%s %s %s(%s)", f.CC, f.Result, f.Name, strings.Join(params, ", "))
	if f.Linkage == LinkageExport {
		header = "export " + header
	}
	if f.Hook != "" {
		header = fmt.Sprintf("hook %s &priority=%d ; %s", f.Hook, f.Priority, header)
	}
	sb.WriteString(header)
	sb.WriteString(" {\n")

	for _, l := range f.Locals {
		sb.WriteString(fmt.Sprintf("    local %s %s\n", l.Type, l.Name))
	}
	if len(f.Locals) > 0 && len(f.Body) > 0 {
		sb.WriteString("\n")
	}

	for i, ins := range f.Body {
		line := fmt.Sprintf("    %04d  %s", i, ins)
		if ins.Value != nil {
			line = fmt.Sprintf("%-48s ; -> %s", line, ins.Value)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
}
