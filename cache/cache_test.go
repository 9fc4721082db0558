package cache

import (
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/binpac/hilti"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testImage(module, fn string) *hilti.Image {
	return &hilti.Image{
		Version: hilti.ImageVersion,
		Module:  module,
		Functions: []hilti.ImageFunction{
			{Name: fn, Result: "void"},
		},
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	img := testImage("Test", "run")

	hash, existed, err := s.Put(img)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if existed {
		t.Error("first Put should not report an existing image")
	}
	want, _ := img.Hash()
	if hash != want {
		t.Errorf("Put hash = %x, want %x", hash, want)
	}

	got, err := s.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Module != "Test" || len(got.Functions) != 1 || got.Functions[0].Name != "run" {
		t.Errorf("Get returned %+v", got)
	}
}

func TestPutTwiceReportsExisting(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.Put(testImage("Test", "run")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, existed, err := s.Put(testImage("Test", "run"))
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if !existed {
		t.Error("second Put of an equal image should report existing")
	}

	entries, err := s.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get([32]byte{1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get of missing hash: err = %v, want ErrNotFound", err)
	}
}

func TestListByModule(t *testing.T) {
	s := openTestStore(t)
	for _, img := range []*hilti.Image{
		testImage("A", "one"),
		testImage("A", "two"),
		testImage("B", "one"),
	} {
		if _, _, err := s.Put(img); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	entries, err := s.List("A")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries for A, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Module != "A" {
			t.Errorf("entry module = %q, want A", e.Module)
		}
		if e.Size == 0 {
			t.Error("entry size should be non-zero")
		}
		if _, err := s.Get(e.Hash); err != nil {
			t.Errorf("Get(%x) failed: %v", e.Hash, err)
		}
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	hash, _, err := s.Put(testImage("Test", "run"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete(hash); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(hash); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestReopenKeepsImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	hash, _, err := s.Put(testImage("Test", "run"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(hash); err != nil {
		t.Errorf("Get after reopen failed: %v", err)
	}
}

func TestLinkLookup(t *testing.T) {
	s := openTestStore(t)
	hash, _, err := s.Put(testImage("Test", "run"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	fp := [32]byte{0xAB}
	if _, _, err := s.Lookup(fp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup before Link: err = %v, want ErrNotFound", err)
	}
	if err := s.Link(fp, hash); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	img, got, err := s.Lookup(fp)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != hash || img.Module != "Test" {
		t.Errorf("Lookup = %x/%s, want %x/Test", got, img.Module, hash)
	}

	if err := s.Delete(hash); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := s.Lookup(fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup after Delete: err = %v, want ErrNotFound", err)
	}
}

func TestLinkUnknownImage(t *testing.T) {
	s := openTestStore(t)
	if err := s.Link([32]byte{1}, [32]byte{2}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Link to missing image: err = %v, want ErrNotFound", err)
	}
}

func TestResolvePrefix(t *testing.T) {
	s := openTestStore(t)
	hash, _, err := s.Put(testImage("Test", "run"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	full := hex.EncodeToString(hash[:])

	got, err := s.Resolve(strings.ToUpper(full[:8]))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != hash {
		t.Errorf("Resolve = %x, want %x", got, hash)
	}

	if _, err := s.Resolve("zz"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve of non-hex prefix: err = %v, want invalid hash error", err)
	}

	missing := "0"
	if full[0] == '0' {
		missing = "1"
	}
	if _, err := s.Resolve(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(%q): err = %v, want ErrNotFound", missing, err)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	s := openTestStore(t)
	for _, fn := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q"} {
		if _, _, err := s.Put(testImage("Test", fn)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// 17 images share at least one leading hex digit.
	entries, err := s.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	counts := make(map[byte]int)
	var shared string
	for _, e := range entries {
		d := hex.EncodeToString(e.Hash[:1])[0]
		counts[d]++
		if counts[d] == 2 {
			shared = string(d)
		}
	}
	if shared == "" {
		t.Fatal("expected two images with the same leading digit")
	}
	if _, err := s.Resolve(shared); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("Resolve(%q): err = %v, want ErrAmbiguous", shared, err)
	}
}
