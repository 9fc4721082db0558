package hilti

import (
	"errors"
	"strings"
	"testing"
)

func newTestBuilder(t *testing.T) (*Builder, *Function) {
	t.Helper()
	mod := NewModule("Test")
	b := NewBuilder(mod, nil)
	fn := NewFunction("run", nil, Void, CCHilti)
	if err := b.StartFunction(fn); err != nil {
		t.Fatalf("StartFunction: %v", err)
	}
	return b, fn
}

func addFunction(t *testing.T, b *Builder, f *Function) {
	t.Helper()
	if err := b.Module().AddFunction(f); err != nil {
		t.Fatalf("AddFunction: %v", err)
	}
}

func TestBuilderCallPrint(t *testing.T) {
	b, fn := newTestBuilder(t)

	print, err := b.IDOp(PrintFunc)
	if err != nil {
		t.Fatalf("IDOp: %v", err)
	}
	args := b.TupleOp([]Operand{b.ConstOp("hello"), b.ConstOp(true)})
	if err := b.Call(nil, print, args); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if len(fn.Body) != 1 {
		t.Fatalf("body length = %d, want 1", len(fn.Body))
	}
	if got := fn.Body[0].String(); got != `call Hilti::print ("hello", True)` {
		t.Errorf("instruction = %q", got)
	}
}

func TestBuilderCallArityMismatch(t *testing.T) {
	b, fn := newTestBuilder(t)

	print, _ := b.IDOp(PrintFunc)
	err := b.Call(nil, print, b.TupleOp([]Operand{b.ConstOp("x")}))
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConstraintError", err)
	}
	if ce.Opcode != "call" || ce.Operand != 2 {
		t.Errorf("constraint error = %+v", ce)
	}
	if len(fn.Body) != 0 {
		t.Errorf("failed call was emitted")
	}
}

func TestBuilderCallVoidIntoTarget(t *testing.T) {
	b, _ := newTestBuilder(t)
	if err := b.AddLocal("x", Bool); err != nil {
		t.Fatal(err)
	}
	x, _ := b.IDOp("x")
	print, _ := b.IDOp(PrintFunc)
	err := b.Call(x, print, b.TupleOp([]Operand{b.ConstOp("x"), b.ConstOp(false)}))
	if err == nil || !strings.Contains(err.Error(), "returns no value") {
		t.Errorf("err = %v, want 'returns no value'", err)
	}
}

func TestBuilderLocals(t *testing.T) {
	b, fn := newTestBuilder(t)

	if err := b.AddLocal("a", Int64); err != nil {
		t.Fatalf("AddLocal: %v", err)
	}
	if err := b.AddLocal("a", Int64); err == nil {
		t.Error("duplicate local accepted")
	}
	tmp := b.AddTemp(Bool)
	if len(fn.Locals) != 2 || fn.Locals[1].Name != tmp.String() {
		t.Errorf("locals = %v", fn.Locals)
	}

	a, err := b.IDOp("a")
	if err != nil {
		t.Fatalf("IDOp: %v", err)
	}
	if id := a.(*ID); id.Kind != IDLocal || !SameType(id.Typ, Int64) {
		t.Errorf("IDOp(a) = %+v", id)
	}
	if _, err := b.IDOp("nope"); err == nil {
		t.Error("unknown identifier resolved")
	}
}

func TestBuilderAssign(t *testing.T) {
	b, fn := newTestBuilder(t)
	_ = b.AddLocal("s", String)
	s, _ := b.IDOp("s")

	if err := b.Emit("assign", s, b.ConstOp("v")); err != nil {
		t.Fatalf("assign: %v", err)
	}
	err := b.Emit("assign", s, b.ConstOp(int64(3)))
	var ce *ConstraintError
	if !errors.As(err, &ce) || ce.Operand != 0 {
		t.Fatalf("err = %v, want target constraint error", err)
	}
	if len(fn.Body) != 1 {
		t.Errorf("body length = %d, want 1", len(fn.Body))
	}
}

func TestBuilderEndFunctionAddsReturn(t *testing.T) {
	b, fn := newTestBuilder(t)
	if err := b.EndFunction(); err != nil {
		t.Fatalf("EndFunction: %v", err)
	}
	if len(fn.Body) != 1 || fn.Body[0].Opcode != "return.void" {
		t.Errorf("body = %v", fn.Body)
	}
	if b.Function() != nil {
		t.Error("function still current after EndFunction")
	}
}

func TestBuilderReturnResultType(t *testing.T) {
	mod := NewModule("Test")
	b := NewBuilder(mod, nil)
	fn := NewFunction("answer", nil, Int64, CCHilti)
	_ = b.StartFunction(fn)

	if err := b.Emit("return.result", nil, b.ConstOp("no")); err == nil {
		t.Error("string returned from int function")
	}
	if err := b.Emit("return.result", nil, b.ConstOp(42)); err != nil {
		t.Errorf("return.result: %v", err)
	}
}

func TestBuilderEmitOutsideFunctionIsInternal(t *testing.T) {
	b := NewBuilder(NewModule("Test"), nil)
	r := mustPanic(t, "emit", func() { _ = b.Emit("return.void", nil) })
	if _, ok := r.(*InternalError); !ok && r != nil {
		t.Errorf("panic value = %T, want *InternalError", r)
	}
}

func TestBuilderBitcast(t *testing.T) {
	b, _ := newTestBuilder(t)

	addr := &Address{Symbol: "run"}
	if got := b.Bitcast(addr, CAddr); got != Operand(addr) {
		t.Errorf("bitcast to the same type = %v, want the operand itself", got)
	}
	cast, ok := b.Bitcast(&Undef{Typ: Bytes}, CAddr).(*Cast)
	if !ok || !SameType(cast.Type(), CAddr) {
		t.Errorf("bitcast of bytes = %v, want a cast to caddr", cast)
	}

	for _, op := range []Operand{b.ConstOp(true), b.ConstOp(1), b.ConstOp("s"), b.TupleOp([]Operand{addr, addr})} {
		r := mustPanic(t, "bitcast "+op.Type().String(), func() { b.Bitcast(op, CAddr) })
		if _, ok := r.(*InternalError); !ok && r != nil {
			t.Errorf("bitcast of %s: panic value = %T, want *InternalError", op.Type(), r)
		}
	}
	r := mustPanic(t, "bitcast to int", func() { b.Bitcast(addr, Int64) })
	if _, ok := r.(*InternalError); !ok && r != nil {
		t.Errorf("bitcast to int: panic value = %T, want *InternalError", r)
	}
}

func TestRecoverInternal(t *testing.T) {
	run := func() (err error) {
		defer RecoverInternal(&err)
		Internalf("broken %d", 7)
		return nil
	}
	err := run()
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *InternalError", err)
	}
	if ie.Message != "broken 7" {
		t.Errorf("message = %q", ie.Message)
	}
}

func TestHookOrdering(t *testing.T) {
	mod := NewModule("Test")
	for i, prio := range []int{5, 10, 1, 5} {
		f := NewFunction(string(rune('a'+i)), nil, Void, CCHilti)
		f.Hook = "Test::Msg::len"
		f.Priority = prio
		if err := mod.AddFunction(f); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for _, f := range mod.Hooks("Test::Msg::len") {
		got = append(got, f.Name)
	}
	if want := "b a d c"; strings.Join(got, " ") != want {
		t.Errorf("hook order = %v, want %s", got, want)
	}
}
