package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "ssh-parser"
module = "SSH"
version = "0.1.0"

[compiler]
fail-fast = true
verbosity = 2
listing = true

[cache]
enabled = true
path = "build/images.db"

[dependencies]
base = { path = "../base" }
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "ssh-parser" {
		t.Errorf("project name = %q, want ssh-parser", m.Project.Name)
	}
	if m.Project.Module != "SSH" {
		t.Errorf("project module = %q, want SSH", m.Project.Module)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if !m.Compiler.FailFast || m.Compiler.Verbosity != 2 || !m.Compiler.Listing {
		t.Errorf("compiler = %+v, want fail-fast, verbosity 2, listing", m.Compiler)
	}
	if !m.Cache.Enabled {
		t.Error("cache should be enabled")
	}
	if want := filepath.Join(m.Dir, "build", "images.db"); m.CachePath() != want {
		t.Errorf("CachePath() = %q, want %q", m.CachePath(), want)
	}
	if dep, ok := m.Dependencies["base"]; !ok || dep.Path != "../base" {
		t.Errorf("base dep = %v, want path ../base", m.Dependencies["base"])
	}
	if !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute path", m.Dir)
	}
}

func TestParseDefaults(t *testing.T) {
	m, err := Parse([]byte(`
[project]
name = "my-proto"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Project.Module != "MyProto" {
		t.Errorf("module = %q, want MyProto", m.Project.Module)
	}
	if m.Cache.Path != filepath.Join(".binpac", "cache.db") {
		t.Errorf("cache path = %q, want default", m.Cache.Path)
	}
	if m.Compiler.FailFast {
		t.Error("fail-fast should default to false")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "missing project",
			content: "[compiler]\nverbosity = 1\n",
			wantMsg: "invalid manifest",
		},
		{
			name:    "unknown key",
			content: "[project]\nname = \"x\"\ncolour = \"red\"\n",
			wantMsg: "invalid manifest",
		},
		{
			name:    "verbosity out of range",
			content: "[project]\nname = \"x\"\n[compiler]\nverbosity = 9\n",
			wantMsg: "invalid manifest",
		},
		{
			name:    "dependency without path",
			content: "[project]\nname = \"x\"\n[dependencies]\nbase = { module = \"Base\" }\n",
			wantMsg: "invalid manifest",
		},
		{
			name:    "reserved module",
			content: "[project]\nname = \"x\"\nmodule = \"Hilti\"\n",
			wantMsg: "reserved namespace",
		},
		{
			name:    "malformed toml",
			content: "[project\nname = ",
			wantMsg: "parse error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tc.wantMsg)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"outer\"\n")

	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected a manifest")
	}
	if m.Project.Module != "Outer" {
		t.Errorf("module = %q, want Outer", m.Project.Module)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing binpac.toml")
	}
}
