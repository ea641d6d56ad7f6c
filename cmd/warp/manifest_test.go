package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "warp.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestFindWarpTomlWalksUpward(t *testing.T) {
	root := t.TempDir()
	want := writeManifest(t, root, "[package]\nname = \"demo\"\n")

	nested := filepath.Join(root, "kernels", "math")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := findWarpToml(nested)
	if err != nil {
		t.Fatalf("findWarpToml: %v", err)
	}
	if !ok {
		t.Fatal("manifest not found from nested directory")
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestFindWarpTomlMissing(t *testing.T) {
	_, ok, err := findWarpToml(t.TempDir())
	if err != nil {
		t.Fatalf("findWarpToml: %v", err)
	}
	if ok {
		t.Error("found a manifest in an empty temp dir")
	}
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[kernel]
name = "scale"
signature = "[]f32,f32"
target = "sm_80"
`)

	cfg, err := loadProjectConfig(path)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.Package.Name != "demo" {
		t.Errorf("package name = %q, want demo", cfg.Package.Name)
	}
	if cfg.Kernel.Name != "scale" || cfg.Kernel.Target != "sm_80" {
		t.Errorf("kernel section = %+v", cfg.Kernel)
	}
	if got := parseSigNames(cfg.Kernel.Signature); len(got) != 2 || got[0] != "[]f32" {
		t.Errorf("parsed signature = %v", got)
	}
}

func TestLoadProjectConfigRequiresPackageName(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no package table", "[kernel]\nname = \"scale\"\n"},
		{"empty name", "[package]\nname = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := loadProjectConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), "package") {
				t.Errorf("error %q does not point at [package]", err)
			}
		})
	}
}

func TestParseSigNames(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"[]f32", []string{"[]f32"}},
		{"[]f32, i32 ,f64", []string{"[]f32", "i32", "f64"}},
	}
	for _, tt := range tests {
		got := parseSigNames(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseSigNames(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseSigNames(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
