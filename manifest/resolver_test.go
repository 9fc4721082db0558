package manifest

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveModule(t *testing.T) {
	tests := []struct {
		name        string
		depName     string
		dep         Dependency
		depManifest *Manifest
		wantMod     string
		wantErr     bool
	}{
		{
			name:    "consumer override wins",
			depName: "dns",
			dep:     Dependency{Path: "../dns", Module: "Custom"},
			depManifest: &Manifest{
				Project: Project{Module: "DNS"},
			},
			wantMod: "Custom",
		},
		{
			name:    "producer module when no consumer override",
			depName: "dns",
			dep:     Dependency{Path: "../dns"},
			depManifest: &Manifest{
				Project: Project{Module: "DNS"},
			},
			wantMod: "DNS",
		},
		{
			name:    "PascalCase fallback when no manifest",
			depName: "my-lib",
			dep:     Dependency{Path: "../my-lib"},
			wantMod: "MyLib",
		},
		{
			name:    "reserved module rejected",
			depName: "rt",
			dep:     Dependency{Path: "../rt", Module: "Hilti"},
			wantErr: true,
		},
		{
			name:    "reserved module via PascalCase fallback",
			depName: "main",
			dep:     Dependency{Path: "../main"},
			wantErr: true,
		},
		{
			name:    "multi-segment with non-reserved root is OK",
			depName: "tp",
			dep:     Dependency{Path: "../tp", Module: "ThirdParty::Hilti"},
			wantMod: "ThirdParty::Hilti",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mod, err := resolveModule(tc.depName, tc.dep, tc.depManifest)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got module %q", mod)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mod != tc.wantMod {
				t.Errorf("module = %q, want %q", mod, tc.wantMod)
			}
		})
	}
}

func TestResolveTransitiveOrder(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeManifest(t, app, `
[project]
name = "app"

[dependencies]
ssh = { path = "../ssh" }
`)
	writeManifest(t, filepath.Join(root, "ssh"), `
[project]
name = "ssh"
module = "SSH"

[dependencies]
base = { path = "../base" }
`)
	writeManifest(t, filepath.Join(root, "base"), "[project]\nname = \"base\"\n")

	m, err := Load(app)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	deps, err := NewResolver(m).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(deps) != 2 {
		t.Fatalf("got %d deps, want 2", len(deps))
	}
	if deps[0].Name != "base" || deps[0].Module != "Base" {
		t.Errorf("deps[0] = %s/%s, want base/Base", deps[0].Name, deps[0].Module)
	}
	if deps[1].Name != "ssh" || deps[1].Module != "SSH" {
		t.Errorf("deps[1] = %s/%s, want ssh/SSH", deps[1].Name, deps[1].Module)
	}
	if deps[1].Dir != filepath.Join(root, "ssh") {
		t.Errorf("deps[1].Dir = %q", deps[1].Dir)
	}
}

func TestResolveModuleConflict(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeManifest(t, app, `
[project]
name = "app"
module = "Proto"

[dependencies]
other = { path = "../other", module = "Proto" }
`)
	writeManifest(t, filepath.Join(root, "other"), "[project]\nname = \"other\"\n")

	m, err := Load(app)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, err = NewResolver(m).Resolve()
	if err == nil || !strings.Contains(err.Error(), "already provided") {
		t.Fatalf("expected module conflict, got %v", err)
	}
}

func TestResolveMissingPath(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "app"

[dependencies]
ghost = { path = "./nowhere" }
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := NewResolver(m).Resolve(); err == nil {
		t.Fatal("expected error for missing dependency directory")
	}
}

func TestResolveWithoutManifest(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeManifest(t, app, `
[project]
name = "app"

[dependencies]
raw-lib = { path = "../raw" }
`)
	writeManifest(t, filepath.Join(root, "raw", "sub"), "[project]\nname = \"unrelated\"\n")

	m, err := Load(app)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	deps, err := NewResolver(m).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(deps) != 1 || deps[0].Module != "RawLib" || deps[0].Manifest != nil {
		t.Errorf("deps = %+v, want one RawLib with no manifest", deps)
	}
}
