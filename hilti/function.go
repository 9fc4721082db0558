package hilti

import (
	"fmt"
	"sort"
	"strings"
)

// CallingConvention selects how a function is called and linked.
type CallingConvention uint8

const (
	// CCHilti is the managed convention. Functions get a resume stub in
	// addition to their entry point.
	CCHilti CallingConvention = iota
	// CCC is plain C linkage.
	CCC
	// CCCHilti is C linkage with the HILTI runtime arguments appended.
	CCCHilti
	// CCIntrinsic marks functions implemented inline by the backend. They
	// have no address.
	CCIntrinsic
)

// String returns the convention's keyword.
func (cc CallingConvention) String() string {
	switch cc {
	case CCHilti:
		return "HILTI"
	case CCC:
		return "C"
	case CCCHilti:
		return "C_HILTI"
	case CCIntrinsic:
		return "INTRINSIC"
	default:
		return fmt.Sprintf("CallingConvention(%d)", cc)
	}
}

// IsExternal reports whether the convention links as a C symbol.
func (cc CallingConvention) IsExternal() bool {
	return cc == CCC || cc == CCCHilti
}

// Linkage controls a function's visibility outside its module.
type Linkage uint8

const (
	LinkageLocal Linkage = iota
	LinkageExport
)

func (l Linkage) String() string {
	if l == LinkageExport {
		return "export"
	}
	return "local"
}

// Var is a named, typed slot: a parameter or a local.
type Var struct {
	Name string
	Type Type
}

// Function is a HILTI function: signature plus the instruction stream
// emitted into its body.
type Function struct {
	Name    string
	Params  []Var
	Result  Type
	CC      CallingConvention
	Linkage Linkage

	// Hook functions belong to a hook group and run by priority.
	Hook     string
	Priority int

	Locals []Var
	Body   []*Instruction

	localIndex map[string]int
}

// NewFunction creates an empty function.
func NewFunction(name string, params []Var, result Type, cc CallingConvention) *Function {
	if result == nil {
		result = Void
	}
	return &Function{
		Name:       name,
		Params:     params,
		Result:     result,
		CC:         cc,
		localIndex: make(map[string]int),
	}
}

// Type returns the function's signature.
func (f *Function) Type() *FunctionType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return &FunctionType{Params: params, Result: f.Result}
}

// Symbol returns the linker symbol of the function's entry point.
func (f *Function) Symbol() string {
	if f.CC.IsExternal() {
		return f.Name
	}
	return "hlt_" + mangle(f.Name)
}

// Stubs returns the entry and resume symbols of a managed function's C
// stubs.
func (f *Function) Stubs() (entry, resume string) {
	base := f.Symbol()
	return base, base + "_resume"
}

// Param returns the parameter called name.
func (f *Function) Param(name string) (Var, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Var{}, false
}

// Local returns the local called name.
func (f *Function) Local(name string) (Var, bool) {
	idx, ok := f.localIndex[name]
	if !ok {
		return Var{}, false
	}
	return f.Locals[idx], true
}

func (f *Function) addLocal(name string, t Type) error {
	if f.localIndex == nil {
		f.localIndex = make(map[string]int)
	}
	if _, exists := f.localIndex[name]; exists {
		return fmt.Errorf("local %s already declared in %s", name, f.Name)
	}
	if _, exists := f.Param(name); exists {
		return fmt.Errorf("local %s shadows a parameter of %s", name, f.Name)
	}
	f.localIndex[name] = len(f.Locals)
	f.Locals = append(f.Locals, Var{Name: name, Type: t})
	return nil
}

var mangler = strings.NewReplacer("::", "_", ":", "_", ".", "_", "-", "_", "%", "_")

func mangle(name string) string {
	return mangler.Replace(name)
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Global is a module-level variable. Init is a constant or nil.
type Global struct {
	Name string
	Type Type
	Init Operand
}

// Module is a compilation unit of the intermediate set.
type Module struct {
	Name      string
	Globals   []*Global
	Functions []*Function

	byName  map[string]*Function
	globals map[string]*Global
	hooks   map[string][]*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		byName:  make(map[string]*Function),
		globals: make(map[string]*Global),
		hooks:   make(map[string][]*Function),
	}
}

// AddGlobal declares a module-level variable.
func (m *Module) AddGlobal(g *Global) error {
	if _, exists := m.globals[g.Name]; exists {
		return fmt.Errorf("global %s already defined in module %s", g.Name, m.Name)
	}
	if _, exists := m.byName[g.Name]; exists {
		return fmt.Errorf("global %s conflicts with a function in module %s", g.Name, m.Name)
	}
	if g.Init != nil {
		if !IsConstantOperand(g.Init) {
			return fmt.Errorf("global %s: initializer must be a constant", g.Name)
		}
		if !SameType(g.Type, g.Init.Type()) {
			return fmt.Errorf("global %s: cannot initialize %s with %s", g.Name, g.Type, g.Init.Type())
		}
	}
	m.globals[g.Name] = g
	m.Globals = append(m.Globals, g)
	return nil
}

// LookupGlobal finds a module-level variable by name.
func (m *Module) LookupGlobal(name string) (*Global, bool) {
	g, ok := m.globals[name]
	return g, ok
}

// AddFunction adds f to the module. Hook functions are additionally
// entered into their hook group.
func (m *Module) AddFunction(f *Function) error {
	if _, exists := m.byName[f.Name]; exists {
		return fmt.Errorf("function %s already defined in module %s", f.Name, m.Name)
	}
	if _, exists := m.globals[f.Name]; exists {
		return fmt.Errorf("function %s conflicts with a global in module %s", f.Name, m.Name)
	}
	m.byName[f.Name] = f
	m.Functions = append(m.Functions, f)
	if f.Hook != "" {
		m.addHook(f)
	}
	return nil
}

// addHook keeps each group ordered by decreasing priority. Functions of
// equal priority stay in the order they were added.
func (m *Module) addHook(f *Function) {
	group := append(m.hooks[f.Hook], f)
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Priority > group[j].Priority
	})
	m.hooks[f.Hook] = group
}

// Hooks returns the functions of a hook group in execution order.
func (m *Module) Hooks(group string) []*Function {
	return m.hooks[group]
}

// HookGroups returns the names of all hook groups, sorted.
func (m *Module) HookGroups() []string {
	names := make([]string, 0, len(m.hooks))
	for name := range m.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupFunction finds a function by name in the module, then among the
// runtime builtins.
func (m *Module) LookupFunction(name string) (*Function, bool) {
	if f, ok := m.byName[name]; ok {
		return f, true
	}
	f, ok := builtins[name]
	return f, ok
}

// ---------------------------------------------------------------------------
// Runtime builtins
// ---------------------------------------------------------------------------

// PrintFunc is the runtime's print routine. It takes the value and a flag
// requesting a trailing newline.
const PrintFunc = "Hilti::print"

var builtins = map[string]*Function{
	PrintFunc: NewFunction(PrintFunc, []Var{{"obj", Any}, {"newline", Bool}}, Void, CCCHilti),
}

// Builtins returns the runtime builtins, sorted by name.
func Builtins() []*Function {
	fns := make([]*Function, 0, len(builtins))
	for _, f := range builtins {
		fns = append(fns, f)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}
