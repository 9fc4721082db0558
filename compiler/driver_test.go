package compiler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/binpac/cache"
	"github.com/chazu/binpac/hilti"
	"github.com/chazu/binpac/manifest"
)

func openTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCompile(t *testing.T) {
	res, err := Compile(buildParserProgram(), Options{Listing: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if res.Module == nil || res.Image == nil {
		t.Fatal("Compile returned no module or image")
	}
	want, _ := res.Image.Hash()
	if res.Hash != want {
		t.Errorf("Hash = %x, want image hash %x", res.Hash, want)
	}
	if !strings.Contains(res.Listing, "; === module Test ===") {
		t.Errorf("listing missing module header:\n%s", res.Listing)
	}
	if res.Cached || res.Reused {
		t.Error("no cache was given")
	}
}

func TestCompileReusesCachedImage(t *testing.T) {
	store := openTestCache(t)

	first, err := Compile(buildParserProgram(), Options{Cache: store})
	if err != nil {
		t.Fatalf("first Compile failed: %v", err)
	}
	if first.Cached || first.Reused {
		t.Error("first compile should not hit the cache")
	}

	second, err := Compile(buildParserProgram(), Options{Cache: store})
	if err != nil {
		t.Fatalf("second Compile failed: %v", err)
	}
	if !second.Reused || second.Module != nil {
		t.Error("unchanged program should reuse the cached image without lowering")
	}
	if second.Hash != first.Hash || second.Fingerprint != first.Fingerprint {
		t.Error("reused result should carry the first compile's hash and fingerprint")
	}
	if second.Image.Module != "Test" {
		t.Errorf("reused image module = %q, want Test", second.Image.Module)
	}

	// A listing needs the lowered module.
	third, err := Compile(buildParserProgram(), Options{Cache: store, Listing: true})
	if err != nil {
		t.Fatalf("third Compile failed: %v", err)
	}
	if third.Reused || !third.Cached || third.Listing == "" {
		t.Errorf("listing compile: reused=%v cached=%v", third.Reused, third.Cached)
	}
}

func TestCompileSemanticErrors(t *testing.T) {
	p := newTestProgram()
	fn := addBodyFunc(p, "run")
	fn.Body.Add(&Print{Args: []Expr{&Name{SpanVal: Span{Start: Position{Line: 4, Column: 11}}, Name: "nope"}}})

	var buf bytes.Buffer
	res, err := Compile(p, Options{Reporter: NewReporter(&buf, "test.pac")})
	if !errors.Is(err, ErrSemantic) {
		t.Fatalf("err = %v, want ErrSemantic", err)
	}
	if res.Module != nil {
		t.Error("a program with semantic errors must not be lowered")
	}
	if got, want := buf.String(), "test.pac:4:11: error: unknown identifier nope\n"; got != want {
		t.Errorf("reported %q, want %q", got, want)
	}
}

func TestCompileLoweringErrors(t *testing.T) {
	res, err := Compile(constraintProgram(), Options{})
	if !errors.Is(err, ErrLowering) {
		t.Fatalf("err = %v, want ErrLowering", err)
	}
	if len(res.Diagnostics) != 1 || res.Image != nil {
		t.Errorf("diagnostics = %v, image = %v", messages(res.Diagnostics), res.Image)
	}

	_, err = Compile(constraintProgram(), Options{FailFast: true})
	if !errors.Is(err, ErrAborted) {
		t.Errorf("fail-fast err = %v, want ErrAborted", err)
	}
}

func TestCompileImportConflict(t *testing.T) {
	_, err := Compile(newTestProgram(), Options{Imports: []string{"Base", "Test"}})
	if err == nil || !strings.Contains(err.Error(), "also provided by a dependency") {
		t.Errorf("err = %v, want a module conflict", err)
	}
}

func TestCompileInternalError(t *testing.T) {
	reg := hilti.NewRegistry()
	reg.Register(hilti.Definition{
		Opcode:   "call",
		Arity:    2,
		Operands: []hilti.Constraint{hilti.IsAny, hilti.IsAny},
		Codegen: func(b *hilti.Builder, ins *hilti.Instruction) error {
			hilti.Internalf("backend lost track of %s", ins.Opcode)
			return nil
		},
	})
	reg.Seal()

	p := newTestProgram()
	fn := addBodyFunc(p, "run")
	fn.Body.Add(&Print{Args: []Expr{str("x")}})

	_, err := Compile(p, Options{Registry: reg})
	var ie *hilti.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *hilti.InternalError", err)
	}
	if !strings.Contains(ie.Message, "backend lost track of call") {
		t.Errorf("message = %q", ie.Message)
	}
}

func TestOptionsFromManifest(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	base := filepath.Join(root, "base")
	for dir, content := range map[string]string{
		app: `
[project]
name = "app"

[compiler]
fail-fast = true
listing = true

[cache]
enabled = true

[dependencies]
base = { path = "../base" }
`,
		base: "[project]\nname = \"base\"\n",
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := manifest.Load(app)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	opts, err := OptionsFromManifest(m)
	if err != nil {
		t.Fatalf("OptionsFromManifest failed: %v", err)
	}
	if opts.Cache == nil {
		t.Fatal("cache should be opened")
	}
	defer opts.Cache.Close()

	if !opts.FailFast || !opts.Listing {
		t.Errorf("opts = %+v, want fail-fast and listing", opts)
	}
	if len(opts.Imports) != 1 || opts.Imports[0] != "Base" {
		t.Errorf("Imports = %v, want [Base]", opts.Imports)
	}
	if _, err := os.Stat(filepath.Join(app, ".binpac", "cache.db")); err != nil {
		t.Errorf("cache database not created: %v", err)
	}
}
