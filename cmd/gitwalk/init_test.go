package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/4thel00z/gitwalk/internal"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func runInitCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewInitCmd()
	cmd.SetArgs(args)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	out, err := runInitCmd(t)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	path := filepath.Join(tmpDir, ".gitwalk.yaml")
	if !strings.Contains(out, path) {
		t.Errorf("expected output to name %s, got %q", path, out)
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(cfg, internal.DefaultConfig()) {
		t.Errorf("expected default config, got %+v", cfg)
	}

	if _, err := runInitCmd(t); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestInitCmdTOML(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	if _, err := runInitCmd(t, "--toml"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	path := filepath.Join(tmpDir, ".gitwalk.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal(".gitwalk.toml not created")
	}
	if got := internal.FindConfig(internal.ConfigCandidates(tmpDir, "")); got != path {
		t.Errorf("expected discovery to find %s, got %q", path, got)
	}
}

func TestInitCmdGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	if _, err := runInitCmd(t, "--global"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	path := filepath.Join(home, ".gitwalk", "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("%s not created", path)
	}
}
