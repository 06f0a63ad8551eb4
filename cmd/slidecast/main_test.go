package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	if root.Use != "slidecast" {
		t.Fatalf("root use = %q", root.Use)
	}
	want := []string{"build", "watch", "status", "clean", "config"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestShouldSkipConfig(t *testing.T) {
	root := newRootCommand()
	if shouldSkipConfig(root) {
		t.Fatalf("root command must load config")
	}

	for _, sub := range root.Commands() {
		if sub.Name() != "config" {
			continue
		}
		for _, nested := range sub.Commands() {
			skip := shouldSkipConfig(nested)
			switch nested.Name() {
			case "init":
				if !skip {
					t.Fatalf("config init must run without a config file")
				}
			case "validate":
				if skip {
					t.Fatalf("config validate should load config")
				}
			}
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slidecast.toml")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config", "init", "--path", target})

	if err := root.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing paths section")
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("output does not mention the target path: %q", out.String())
	}
}

func TestConfigValidateHonorsConfigFlag(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "custom.toml")
	sourceDir := filepath.Join(dir, "slides")
	content := "[paths]\n" +
		"source_dir = \"" + sourceDir + "\"\n" +
		"cache_dir = \"" + filepath.Join(dir, "cache") + "\"\n" +
		"output = \"" + filepath.Join(dir, "show.mp4") + "\"\n" +
		"log_dir = \"" + filepath.Join(dir, "logs") + "\"\n"
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"-c", target, "config", "validate"})

	if err := root.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("validate did not report the flagged config path: %q", out.String())
	}
	if !strings.Contains(out.String(), sourceDir) {
		t.Fatalf("validate did not load settings from the flagged file: %q", out.String())
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "slidecast.toml")
	if err := os.WriteFile(target, []byte("existing"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	root := newRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"config", "init", "--path", target})

	if err := root.Execute(); err == nil {
		t.Fatalf("expected refusal without --overwrite")
	}

	root = newRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"config", "init", "--path", target, "--overwrite"})
	if err := root.Execute(); err != nil {
		t.Fatalf("overwrite run failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "existing" {
		t.Fatalf("--overwrite did not replace the file")
	}
}
