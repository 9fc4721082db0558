package hilti

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Instruction is one use of an instruction definition inside a function.
type Instruction struct {
	Opcode   string
	Target   Operand   // nil if the instruction has no result
	Operands []Operand // positional, len == definition arity

	// Value is what codegen decided to store into the target, when it
	// computes the value itself rather than leaving it to the backend.
	Value Operand

	Def *Definition
}

// String renders the instruction in the listing syntax.
func (ins *Instruction) String() string {
	var sb strings.Builder
	if ins.Target != nil {
		sb.WriteString(ins.Target.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(ins.Opcode)
	for _, op := range ins.Operands {
		sb.WriteString(" ")
		sb.WriteString(op.String())
	}
	return sb.String()
}

// CodegenFunc lowers a checked instruction. It runs only after every
// constraint of the definition passed, so it may assume well-typed
// operands.
type CodegenFunc func(b *Builder, ins *Instruction) error

// Definition declares an opcode: its operand and target legality
// predicates and its codegen callback.
type Definition struct {
	Opcode   string
	Arity    int
	Operands []Constraint // len == Arity
	Target   Constraint   // nil means the instruction takes no target
	Codegen  CodegenFunc
	Doc      string
}

// Check runs every constraint of d against ins. It never calls codegen.
func (d *Definition) Check(ins *Instruction) error {
	if len(ins.Operands) != d.Arity {
		return &ConstraintError{
			Opcode:  d.Opcode,
			Operand: min(len(ins.Operands), d.Arity) + 1,
			Message: fmt.Sprintf("expects %d operands, got %d", d.Arity, len(ins.Operands)),
		}
	}
	for i, c := range d.Operands {
		op := ins.Operands[i]
		if ok, msg := c(TypeOfOperand(op), op, ins); !ok {
			return &ConstraintError{Opcode: d.Opcode, Operand: i + 1, Message: msg}
		}
	}
	target := d.Target
	if target == nil {
		target = IsNone
	}
	if ok, msg := target(TypeOfOperand(ins.Target), ins.Target, ins); !ok {
		return &ConstraintError{Opcode: d.Opcode, Operand: 0, Message: msg}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry maps opcode names to immutable definitions. It is filled once
// at startup and then sealed; a sealed registry is safe for concurrent
// lookups.
type Registry struct {
	defs   map[string]*Definition
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def. Registering a duplicate or malformed definition, or
// registering after Seal, is a configuration error and panics.
func (r *Registry) Register(def Definition) {
	if r.sealed {
		panic(fmt.Sprintf("hilti: register %s: registry is sealed", def.Opcode))
	}
	if def.Opcode == "" {
		panic("hilti: register: empty opcode")
	}
	if _, exists := r.defs[def.Opcode]; exists {
		panic(fmt.Sprintf("hilti: instruction %s registered twice", def.Opcode))
	}
	if len(def.Operands) != def.Arity {
		panic(fmt.Sprintf("hilti: instruction %s: %d operand constraints for arity %d",
			def.Opcode, len(def.Operands), def.Arity))
	}
	if def.Codegen == nil {
		panic(fmt.Sprintf("hilti: instruction %s has no codegen", def.Opcode))
	}
	d := def
	d.Operands = append([]Constraint(nil), def.Operands...)
	r.defs[def.Opcode] = &d
}

// Seal ends registration.
func (r *Registry) Seal() {
	r.sealed = true
}

// Resolve returns the definition of opcode.
func (r *Registry) Resolve(opcode string) (*Definition, error) {
	d, ok := r.defs[opcode]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownInstruction, opcode)
	}
	return d, nil
}

// Opcodes returns all registered opcodes, sorted.
func (r *Registry) Opcodes() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
