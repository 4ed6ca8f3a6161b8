package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "demo"

[build]
target = "go"
output = "gen"
ssa = false
strip-debug = false
max-iterations = 4
incremental = false

[optimize]
passes = ["dead-code"]

[builtins]
disallow = ["print_stack", "printraw"]

[dependencies]
helper = { path = "../helper", mount = "res://addons/helper" }
`
	if err := os.WriteFile(filepath.Join(dir, "gd2c.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Build.Target != "go" || m.Build.Output != "gen" {
		t.Errorf("build = %+v", m.Build)
	}
	if m.Build.SSA || m.Build.StripDebug || m.Build.Incremental {
		t.Errorf("explicit false values were not applied: %+v", m.Build)
	}
	if m.Build.MaxIterations != 4 {
		t.Errorf("max-iterations = %d, want 4", m.Build.MaxIterations)
	}
	if len(m.Optimize.Passes) != 1 || m.Optimize.Passes[0] != "dead-code" {
		t.Errorf("passes = %v", m.Optimize.Passes)
	}
	if len(m.Builtins.Disallow) != 2 {
		t.Errorf("disallow = %v", m.Builtins.Disallow)
	}
	if dep, ok := m.Dependencies["helper"]; !ok || dep.Path != "../helper" {
		t.Errorf("helper dep = %v, want path ../helper", m.Dependencies["helper"])
	}
	if m.OutputPath() != filepath.Join(m.Dir, "gen") {
		t.Errorf("OutputPath() = %q", m.OutputPath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "gd2c.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Build.Target != "gdnative" || m.Build.Output != "native" {
		t.Errorf("default build = %+v", m.Build)
	}
	if !m.Build.SSA || !m.Build.StripDebug || !m.Build.Incremental {
		t.Errorf("default switches should be on: %+v", m.Build)
	}
	if m.Build.MaxIterations != MaxIterations {
		t.Errorf("default max-iterations = %d", m.Build.MaxIterations)
	}
	if len(m.Optimize.Passes) != len(DefaultPasses) {
		t.Errorf("default passes = %v", m.Optimize.Passes)
	}
}

func TestLoadManifestRejectsRaisedCap(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gd2c.toml"), []byte("[build]\nmax-iterations = 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "max-iterations") {
		t.Errorf("expected max-iterations error, got %v", err)
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gd2c.toml"), []byte("[build\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if m.Project.Name != filepath.Base(dir) {
		t.Errorf("project name = %q, want directory name", m.Project.Name)
	}
	if !m.Build.SSA {
		t.Error("defaults should enable SSA")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[project]
name = "found-project"
`
	if err := os.WriteFile(filepath.Join(dir, "gd2c.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no gd2c.toml exists")
	}
}
