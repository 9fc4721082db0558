package compiler

import (
	"fmt"

	"github.com/chazu/binpac/hilti"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Stmt is a statement node. The set of statement kinds is closed; the
// validate, render and execute passes dispatch through per-kind tables.
type Stmt interface {
	Node
	stmt() // marker method
}

// Block is a sequence of statements with its own scope.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
	scope   ScopeID
}

func (n *Block) Span() Span     { return n.SpanVal }
func (n *Block) Kind() NodeKind { return KindBlock }
func (n *Block) stmt()          {}

// NewBlock creates a block whose scope is a child of parent.
func NewBlock(sc *Scopes, parent ScopeID, stmts ...Stmt) *Block {
	return &Block{Stmts: stmts, scope: sc.New(parent)}
}

// Scope returns the block's scope.
func (n *Block) Scope() ScopeID {
	return n.scope
}

// Add appends a statement.
func (n *Block) Add(s Stmt) {
	n.Stmts = append(n.Stmts, s)
}

// DeclareLocal declares a local of the block. Storage for it is reserved
// before any statement of the block runs.
func (n *Block) DeclareLocal(sc *Scopes, name string, t hilti.Type) bool {
	return sc.Add(n.scope, &Identifier{Name: name, Kind: IdentLocal, Type: t})
}

// Print is `print e1, e2, ...;`.
type Print struct {
	SpanVal Span
	Args    []Expr
}

func (n *Print) Span() Span     { return n.SpanVal }
func (n *Print) Kind() NodeKind { return KindPrint }
func (n *Print) stmt()          {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span     { return n.SpanVal }
func (n *ExprStmt) Kind() NodeKind { return KindExprStmt }
func (n *ExprStmt) stmt()          {}

// ---------------------------------------------------------------------------
// Pass tables
// ---------------------------------------------------------------------------

var (
	validators [numStmtKinds]func(c *Checker, s Stmt)
	renderers  [numStmtKinds]func(r Renderer, s Stmt)
	executors  [numStmtKinds]func(cg *CodeGen, s Stmt) error
)

func init() {
	validators = [numStmtKinds]func(*Checker, Stmt){
		KindBlock:     func(*Checker, Stmt) {},
		KindFieldHook: validateFieldHook,
		KindPrint:     validatePrint,
		KindExprStmt:  func(*Checker, Stmt) {},
	}
	renderers = [numStmtKinds]func(Renderer, Stmt){
		KindBlock:     func(r Renderer, s Stmt) { renderBlock(r, s.(*Block)) },
		KindFieldHook: renderFieldHook,
		KindPrint:     renderPrint,
		KindExprStmt:  renderExprStmt,
	}
	executors = [numStmtKinds]func(*CodeGen, Stmt) error{
		KindBlock:     func(cg *CodeGen, s Stmt) error { return cg.executeBlock(s.(*Block), s.(*Block).Scope()) },
		KindFieldHook: func(cg *CodeGen, s Stmt) error { h := s.(*FieldHook); return cg.executeBlock(&h.Block, h.Scope()) },
		KindPrint:     executePrint,
		KindExprStmt:  executeExprStmt,
	}

	for k := NodeKind(0); k < numStmtKinds; k++ {
		if validators[k] == nil || renderers[k] == nil || executors[k] == nil {
			panic(fmt.Sprintf("compiler: statement kind %s is missing a pass", k))
		}
	}
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func validatePrint(c *Checker, s Stmt) {
	for _, arg := range s.(*Print).Args {
		if hilti.IsVoid(c.typeOf(arg)) {
			c.error(arg, "cannot print void expressions")
		}
	}
}

// ---------------------------------------------------------------------------
// render
// ---------------------------------------------------------------------------

// RenderStmt writes s in source form.
func RenderStmt(r Renderer, s Stmt) {
	renderers[s.Kind()](r, s)
}

func renderBlock(r Renderer, b *Block) {
	r.Output("{", true)
	r.Push()
	for _, s := range b.Stmts {
		RenderStmt(r, s)
	}
	r.Pop()
	r.Output("}", true)
}

func renderPrint(r Renderer, s Stmt) {
	p := s.(*Print)
	r.Output("print", false)
	for i, arg := range p.Args {
		if i == 0 {
			r.Output(" ", false)
		} else {
			r.Output(", ", false)
		}
		r.Output(ExprString(arg), false)
	}
	r.Output(";", true)
}

func renderExprStmt(r Renderer, s Stmt) {
	r.Output(ExprString(s.(*ExprStmt).Expr)+";", true)
}

// ---------------------------------------------------------------------------
// execute
// ---------------------------------------------------------------------------

// executeBlock reserves storage for every local of the block's own scope,
// renaming locals that reuse a name already stored in the function, then
// runs the statements in order. A failing statement is reported and
// its siblings still run unless the generator is in fail-fast mode.
func (cg *CodeGen) executeBlock(b *Block, scope ScopeID) error {
	for _, id := range cg.scopes.IDs(scope) {
		if id.Kind != IdentLocal {
			continue
		}
		if err := cg.gen.AddLocal(cg.declareLocal(id), id.Type); err != nil {
			return err
		}
	}

	saved := cg.scope
	cg.scope = scope
	defer func() { cg.scope = saved }()

	for _, s := range b.Stmts {
		if err := cg.run(s); err != nil {
			return err
		}
	}
	return nil
}

func executePrint(cg *CodeGen, s Stmt) error {
	p := s.(*Print)

	fn, err := cg.gen.IDOp(hilti.PrintFunc)
	if err != nil {
		return err
	}

	var ops []hilti.Operand
	for _, arg := range p.Args {
		op, err := cg.evaluate(arg)
		if err != nil {
			return err
		}
		if op == nil {
			hilti.Internalf("print of void expression at %s", arg.Span())
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		ops = append(ops, cg.gen.ConstOp(""))
	}

	for i, op := range ops {
		nl := cg.gen.ConstOp(i == len(ops)-1)
		if err := cg.gen.Call(nil, fn, cg.gen.TupleOp([]hilti.Operand{op, nl})); err != nil {
			return err
		}
	}
	return nil
}

func executeExprStmt(cg *CodeGen, s Stmt) error {
	_, err := cg.evaluate(s.(*ExprStmt).Expr)
	return err
}
