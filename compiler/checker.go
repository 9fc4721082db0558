package compiler

import (
	"fmt"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// Checker: semantic checks before lowering
// ---------------------------------------------------------------------------

type checkFunc func(c *Checker, n Node)

// visitor holds the checks run when a node of one kind is entered, before
// its children, and an optional check run after them.
type visitor struct {
	checks []checkFunc
	leave  checkFunc
}

var visitors [numNodeKinds]visitor

func init() {
	visitors = [numNodeKinds]visitor{
		KindProgram:   {checks: []checkFunc{enterProgram}, leave: leaveProgram},
		KindModule:    {checks: []checkFunc{checkModule}},
		KindType:      {checks: []checkFunc{topLevel, checkTypeDecl}},
		KindConst:     {checks: []checkFunc{topLevel, checkConstDecl}},
		KindGlobal:    {checks: []checkFunc{topLevel, checkGlobalDecl}},
		KindFunc:      {checks: []checkFunc{topLevel, enterFunc, checkFuncDecl}},
		KindUnit:      {checks: []checkFunc{topLevel, enterUnit, checkUnit}},
		KindField:     {checks: []checkFunc{checkField}},
		KindBlock:     {checks: []checkFunc{enterBlock, validateStmt}},
		KindFieldHook: {checks: []checkFunc{enterFieldHook, validateStmt}},
		KindPrint:     {checks: []checkFunc{validateStmt}},
		KindExprStmt:  {checks: []checkFunc{validateStmt}},

		KindConstant:    {checks: []checkFunc{checkConstant}},
		KindName:        {checks: []checkFunc{checkName}},
		KindResultValue: {checks: []checkFunc{checkResultValue}},
		KindAssign:      {checks: []checkFunc{inFunction, checkAssign}},
		KindCall:        {checks: []checkFunc{inFunction, checkCall}},
		KindFuncAddr:    {checks: []checkFunc{inFunction, checkFuncAddr}},
	}

	for k := NodeKind(0); k < numNodeKinds; k++ {
		if visitors[k].checks == nil {
			panic(fmt.Sprintf("compiler: no checker visitor for %s nodes", k))
		}
	}
}

// frame is the dispatch record of one node.
type frame struct {
	skip bool // an error was reported; do not visit the children
}

// Checker validates an AST before lowering. A Checker may be reused for
// sequential runs; concurrent runs need one Checker each.
type Checker struct {
	env

	insideFunction    bool
	haveModule        bool
	haveOtherTopLevel bool
	errorCount        int

	diags  []Diagnostic
	frames []*frame
}

// NewChecker creates a checker.
func NewChecker() *Checker {
	c := &Checker{}
	c.reset()
	return c
}

func (c *Checker) reset() {
	c.env = env{scope: NoScope}
	c.insideFunction = false
	c.haveModule = false
	c.haveOtherTopLevel = false
	c.errorCount = 0
	c.diags = nil
	c.frames = c.frames[:0]
}

// CheckAST checks the tree rooted at root and returns the number of
// errors. Any nonzero count means the tree must not be lowered.
func (c *Checker) CheckAST(root Node) int {
	c.reset()
	if p, ok := root.(*Program); ok {
		c.scopes = p.Scopes
	}
	c.dispatch(root)
	return c.errorCount
}

// CheckStmt checks a statement tree whose names resolve in sc, with parent
// as the enclosing scope of the root.
func (c *Checker) CheckStmt(sc *Scopes, parent ScopeID, s Stmt) int {
	c.reset()
	c.scopes = sc
	c.scope = parent
	c.insideFunction = true
	c.dispatch(s)
	return c.errorCount
}

// ErrorCount returns the number of errors of the last run.
func (c *Checker) ErrorCount() int {
	return c.errorCount
}

// Diagnostics returns the errors of the last run in the order found.
func (c *Checker) Diagnostics() []Diagnostic {
	return c.diags
}

// error reports msg at n. The children of the node being dispatched are
// not visited afterwards; its siblings are.
func (c *Checker) error(n Node, msg string) {
	c.errorCount++
	c.diags = append(c.diags, Diagnostic{Span: n.Span(), Severity: SeverityError, Message: msg})
	if len(c.frames) > 0 {
		c.frames[len(c.frames)-1].skip = true
	}
}

func (c *Checker) errorf(n Node, format string, args ...interface{}) {
	c.error(n, fmt.Sprintf(format, args...))
}

func (c *Checker) dispatch(n Node) {
	v := visitors[n.Kind()]

	savedScope, savedInside := c.scope, c.insideFunction
	f := &frame{}
	c.frames = append(c.frames, f)

	for _, check := range v.checks {
		check(c, n)
	}
	if !f.skip {
		for _, child := range children(n) {
			c.dispatch(child)
		}
	}
	if v.leave != nil {
		v.leave(c, n)
	}

	c.frames = c.frames[:len(c.frames)-1]
	c.scope, c.insideFunction = savedScope, savedInside
}

// children returns the direct children of n in source order.
func children(n Node) []Node {
	var out []Node
	switch n := n.(type) {
	case *Program:
		for _, d := range n.Decls {
			out = append(out, d)
		}
	case *GlobalDecl:
		if n.Init != nil {
			out = append(out, n.Init)
		}
	case *FuncDecl:
		if n.Body != nil {
			out = append(out, n.Body)
		}
	case *UnitDecl:
		for _, f := range n.Fields {
			out = append(out, f)
		}
		for _, h := range n.Hooks {
			out = append(out, h)
		}
	case *Block:
		out = appendStmts(out, n.Stmts)
	case *FieldHook:
		out = appendStmts(out, n.Stmts)
	case *Print:
		out = appendExprs(out, n.Args)
	case *ExprStmt:
		out = append(out, n.Expr)
	case *Assign:
		out = append(out, n.Value)
	case *Call:
		out = appendExprs(out, n.Args)
	}
	return out
}

func appendStmts(out []Node, stmts []Stmt) []Node {
	for _, s := range stmts {
		out = append(out, s)
	}
	return out
}

func appendExprs(out []Node, exprs []Expr) []Node {
	for _, x := range exprs {
		out = append(out, x)
	}
	return out
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func enterProgram(c *Checker, n Node) {
	p := n.(*Program)
	c.scopes = p.Scopes
	c.scope = p.Scope
}

func leaveProgram(c *Checker, n Node) {
	if !c.haveModule {
		c.error(n, "missing module declaration")
	}
}

func checkModule(c *Checker, n Node) {
	switch {
	case c.haveModule:
		c.error(n, "more than one module declaration")
	case c.haveOtherTopLevel:
		c.error(n, "module declaration must come first")
	}
	c.haveModule = true
}

func topLevel(c *Checker, n Node) {
	c.haveOtherTopLevel = true
}

func checkTypeDecl(c *Checker, n Node) {
	d := n.(*TypeDecl)
	if named, ok := d.Type.(*NamedType); ok {
		c.errorf(n, "unknown type %s", named.Name)
	}
}

func checkConstDecl(c *Checker, n Node) {
	d := n.(*ConstDecl)
	if constType(d.Value) == nil {
		c.errorf(n, "invalid constant %v", d.Value)
	}
}

func checkGlobalDecl(c *Checker, n Node) {
	d := n.(*GlobalDecl)
	if d.Init == nil {
		return
	}
	if t := c.typeOf(d.Init); !hilti.SameType(d.Type, t) {
		c.errorf(n, "cannot initialize %s with %s", d.Type, t)
	}
}

func enterFunc(c *Checker, n Node) {
	fn := n.(*FuncDecl)
	c.scope = fn.Scope
	c.insideFunction = true
}

func checkFuncDecl(c *Checker, n Node) {
	fn := n.(*FuncDecl)
	if fn.Body == nil {
		return
	}
	switch {
	case fn.CC.IsExternal() || fn.CC == hilti.CCIntrinsic:
		c.errorf(n, "%s function %s cannot have a body", fn.CC, fn.Name)
	case !hilti.IsVoid(fn.Result):
		c.errorf(n, "function %s has a body and must not return a value", fn.Name)
	}
}

func enterUnit(c *Checker, n Node) {
	c.scope = n.(*UnitDecl).Scope
}

func checkUnit(c *Checker, n Node) {
	u := n.(*UnitDecl)
	seen := make(map[string]bool)
	for _, f := range u.Fields {
		if seen[f.Name] {
			c.errorf(f, "duplicate field %s in unit %s", f.Name, u.Name)
		}
		seen[f.Name] = true
	}
}

func checkField(c *Checker, n Node) {
	f := n.(*Field)
	switch {
	case f.Type == nil:
		c.errorf(n, "field %s has no type", f.Name)
	case !f.Resolved():
		c.errorf(n, "unknown type %s", f.Type)
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func enterBlock(c *Checker, n Node) {
	c.scope = n.(*Block).Scope()
}

func enterFieldHook(c *Checker, n Node) {
	c.scope = n.(*FieldHook).Scope()
	c.insideFunction = true
}

func validateStmt(c *Checker, n Node) {
	s := n.(Stmt)
	validators[s.Kind()](c, s)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func inFunction(c *Checker, n Node) {
	if !c.insideFunction {
		c.errorf(n, "%s outside of a function", n.Kind())
	}
}

func checkConstant(c *Checker, n Node) {
	x := n.(*Constant)
	if constType(x.Value) == nil {
		c.errorf(n, "invalid constant %v", x.Value)
	}
}

func checkName(c *Checker, n Node) {
	x := n.(*Name)
	id, ok := c.lookup(x.Name)
	switch {
	case !ok:
		c.errorf(n, "unknown identifier %s", x.Name)
	case !c.insideFunction && id.Kind != IdentConstant:
		c.errorf(n, "%s is not a constant", x.Name)
	}
}

func checkResultValue(c *Checker, n Node) {
	if _, ok := c.lookup(DollarDollar); !ok {
		c.error(n, "$$ not available here")
	}
}

func checkAssign(c *Checker, n Node) {
	x := n.(*Assign)
	id, ok := c.lookup(x.Target)
	if !ok {
		c.errorf(n, "unknown identifier %s", x.Target)
		return
	}
	if id.Kind != IdentLocal && id.Kind != IdentGlobal {
		c.errorf(n, "cannot assign to %s", x.Target)
		return
	}
	if t := c.typeOf(x.Value); !hilti.SameType(id.Type, t) {
		c.errorf(n, "cannot assign %s to %s", t, x.Target)
	}
}

func checkCall(c *Checker, n Node) {
	x := n.(*Call)
	id, ok := c.lookup(x.Func)
	if !ok {
		c.errorf(n, "unknown identifier %s", x.Func)
		return
	}
	ft, isFunc := id.Type.(*hilti.FunctionType)
	if id.Kind != IdentFunction || !isFunc {
		c.errorf(n, "%s is not a function", x.Func)
		return
	}
	if len(x.Args) != len(ft.Params) {
		c.errorf(n, "%s expects %d arguments, got %d", x.Func, len(ft.Params), len(x.Args))
		return
	}
	for i, arg := range x.Args {
		t := c.typeOf(arg)
		switch {
		case hilti.IsVoid(t):
			c.errorf(arg, "argument %d of %s has no value", i+1, x.Func)
		case !hilti.SameType(ft.Params[i], t):
			c.errorf(arg, "argument %d of %s must be of type %s", i+1, x.Func, ft.Params[i])
		}
	}
}

func checkFuncAddr(c *Checker, n Node) {
	x := n.(*FuncAddr)
	id, ok := c.lookup(x.Func)
	switch {
	case !ok:
		c.errorf(n, "unknown identifier %s", x.Func)
	case id.Kind != IdentFunction:
		c.error(n, "must be a function name")
	}
}
