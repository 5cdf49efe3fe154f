package capsa

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soltvedt/raido/internal/apperr"
)

func TestDefaultCapsaNamePriority(t *testing.T) {
	// Priority 1: explicit override.
	ctx := Context{Home: "/tmp", DefaultOverride: "explicit", Agent: "agent1"}
	if got := ctx.DefaultCapsaName(); got != "explicit" {
		t.Errorf("DefaultCapsaName = %q, want explicit", got)
	}

	// Priority 2: agent identity.
	ctx = Context{Home: "/tmp", Agent: "agent1"}
	if got := ctx.DefaultCapsaName(); got != "agent1" {
		t.Errorf("DefaultCapsaName = %q, want agent1", got)
	}

	// Global bypasses the agent.
	ctx = Context{Home: "/tmp", Agent: "agent1", Global: true}
	if got := ctx.DefaultCapsaName(); got != DefaultName {
		t.Errorf("DefaultCapsaName = %q, want %q", got, DefaultName)
	}

	// Priority 3: system default.
	ctx = Context{Home: "/tmp"}
	if got := ctx.DefaultCapsaName(); got != DefaultName {
		t.Errorf("DefaultCapsaName = %q, want %q", got, DefaultName)
	}
}

func TestApplyAgentPrefix(t *testing.T) {
	ctx := Context{Home: "/tmp", Agent: "agent1"}
	if got := ctx.ApplyAgentPrefix("my-notes"); got != "agent1-my-notes" {
		t.Errorf("prefix = %q", got)
	}
	// Default maps to the agent's own capsa, not agent1-.default.
	if got := ctx.ApplyAgentPrefix(DefaultName); got != "agent1" {
		t.Errorf("prefix of default = %q", got)
	}

	ctx.Global = true
	if got := ctx.ApplyAgentPrefix("my-notes"); got != "my-notes" {
		t.Errorf("global prefix = %q", got)
	}

	ctx = Context{Home: "/tmp"}
	if got := ctx.ApplyAgentPrefix("my-notes"); got != "my-notes" {
		t.Errorf("no-agent prefix = %q", got)
	}
}

func TestResolveDirectory(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "work"), 0o755); err != nil {
		t.Fatal(err)
	}
	ctx := Context{Home: home}

	ref, err := ctx.Resolve("work")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.Name != "work" || ref.IsLink {
		t.Errorf("ref = %+v", ref)
	}

	_, err = ctx.Resolve("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveLinkFile(t *testing.T) {
	home := t.TempDir()
	external := t.TempDir()
	link := "[link]\ntarget = " + external + "\n"
	if err := os.WriteFile(filepath.Join(home, "ext"), []byte(link), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := Context{Home: home}

	ref, err := ctx.Resolve("ext")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ref.IsLink {
		t.Error("IsLink = false")
	}
	if ref.Path != external {
		t.Errorf("Path = %q, want %q", ref.Path, external)
	}
}

func TestResolveLinkBadTarget(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "bad"), []byte("[link]\ntarget = /nope/missing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := Context{Home: home}
	if _, err := ctx.Resolve("bad"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate(t *testing.T) {
	home := t.TempDir()
	ctx := Context{Home: home, Agent: "agent1"}

	ref, err := ctx.Create("scratch")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ref.Name != "agent1-scratch" {
		t.Errorf("Name = %q", ref.Name)
	}
	if _, err := ctx.Create("scratch"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second create err = %v, want ErrAlreadyExists", err)
	}
	if _, err := ctx.Create(".hidden"); err == nil {
		t.Error("expected error for dot-prefixed name")
	}
}

func TestEnsureDefaultCreates(t *testing.T) {
	home := t.TempDir()
	ctx := Context{Home: home}
	ref, err := ctx.EnsureDefault()
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if !ref.IsDefault {
		t.Error("IsDefault = false")
	}
	info, err := os.Stat(ref.Path)
	if err != nil || !info.IsDir() {
		t.Errorf("default capsa dir missing: %v", err)
	}
}

func TestList(t *testing.T) {
	home := t.TempDir()
	_ = os.MkdirAll(filepath.Join(home, "beta"), 0o755)
	_ = os.MkdirAll(filepath.Join(home, "alpha"), 0o755)
	_ = os.MkdirAll(filepath.Join(home, ".git"), 0o755)
	ctx := Context{Home: home}

	names, err := ctx.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("names = %v", names)
	}
}
