// Package capsa resolves capsa (note collection) names to directories under
// the raido home. A capsa is either a directory in the home, or a link file
// pointing at an external directory. Agent identities prefix capsa names so
// concurrent agents get separate collections by default.
package capsa

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/soltvedt/raido/internal/apperr"
)

// DefaultName is the system default capsa. It starts with a dot so users
// cannot create a capsa with the same name.
const DefaultName = ".default"

// Environment variable names.
const (
	EnvHome    = "RAIDO_HOME"
	EnvDefault = "RAIDO_DEFAULT"
	EnvAgent   = "RAIDO_AGENT"
)

// Context carries everything needed to resolve capsa names.
type Context struct {
	// Home is the base directory holding all capsas.
	Home string
	// Global bypasses agent prefixing.
	Global bool
	// Agent is the acting agent identity, empty when unset.
	Agent string
	// DefaultOverride replaces the default capsa name when non-empty.
	DefaultOverride string
}

// NewContext builds a Context from the home directory and the process
// environment. Empty env values count as unset.
func NewContext(home string, global bool) Context {
	return Context{
		Home:            home,
		Global:          global,
		Agent:           os.Getenv(EnvAgent),
		DefaultOverride: os.Getenv(EnvDefault),
	}
}

// Ref is a resolved capsa.
type Ref struct {
	// Name is the (possibly agent-prefixed) capsa name.
	Name string
	// Path is the absolute directory, external when IsLink.
	Path string
	IsLink    bool
	IsDefault bool
}

// DefaultCapsaName returns the capsa name used when none is given:
// the explicit override, then the agent name, then DefaultName.
func (c Context) DefaultCapsaName() string {
	if c.DefaultOverride != "" {
		return c.DefaultOverride
	}
	if c.Agent != "" && !c.Global {
		return c.Agent
	}
	return DefaultName
}

// ApplyAgentPrefix prefixes name with the agent identity unless the
// operation is global. The default capsa maps to the agent's own capsa
// rather than "<agent>-.default".
func (c Context) ApplyAgentPrefix(name string) string {
	if c.Global || c.Agent == "" {
		return name
	}
	if name == DefaultName {
		return c.Agent
	}
	return c.Agent + "-" + name
}

// Resolve maps a capsa name to its directory. name == "" resolves the
// default capsa. Returns apperr.ErrNotFound when no such capsa exists.
func (c Context) Resolve(name string) (*Ref, error) {
	if name == "" {
		name = c.DefaultCapsaName()
	}
	prefixed := c.ApplyAgentPrefix(name)
	p := filepath.Join(c.Home, prefixed)

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("capsa %q: %w", prefixed, apperr.ErrNotFound)
	}

	if info.Mode().IsRegular() {
		return c.resolveLink(p, prefixed, name == DefaultName)
	}
	if info.IsDir() {
		return &Ref{
			Name:      prefixed,
			Path:      p,
			IsDefault: name == DefaultName,
		}, nil
	}
	return nil, fmt.Errorf("capsa %q: %w", prefixed, apperr.ErrNotFound)
}

// Create makes a new capsa directory. Names starting with a dot are
// reserved for the system.
func (c Context) Create(name string) (*Ref, error) {
	if strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("capsa name cannot start with '.' (reserved)")
	}
	prefixed := c.ApplyAgentPrefix(name)
	p := filepath.Join(c.Home, prefixed)
	if _, err := os.Stat(p); err == nil {
		return nil, fmt.Errorf("capsa %q: %w", prefixed, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("capsa: create %q: %w", prefixed, err)
	}
	return &Ref{Name: prefixed, Path: p}, nil
}

// EnsureDefault resolves the default capsa, creating its directory on
// first use.
func (c Context) EnsureDefault() (*Ref, error) {
	ref, err := c.Resolve("")
	if err == nil {
		return ref, nil
	}
	prefixed := c.ApplyAgentPrefix(c.DefaultCapsaName())
	p := filepath.Join(c.Home, prefixed)
	if mkErr := os.MkdirAll(p, 0o755); mkErr != nil {
		return nil, fmt.Errorf("capsa: create default: %w", mkErr)
	}
	return &Ref{Name: prefixed, Path: p, IsDefault: true}, nil
}

// List returns the names of all capsas in the home, sorted. Hidden entries
// other than the system default are skipped.
func (c Context) List() ([]string, error) {
	dirents, err := os.ReadDir(c.Home)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("capsa: list: %w", err)
	}
	var names []string
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") && name != DefaultName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// resolveLink reads a link file and validates its target directory.
// Link files are two lines of INI: a [link] section with a target key.
func (c Context) resolveLink(linkPath, name string, isDefault bool) (*Ref, error) {
	data, err := os.ReadFile(linkPath)
	if err != nil {
		return nil, fmt.Errorf("capsa: read link %q: %w", name, err)
	}
	target := parseLinkTarget(string(data))
	if target == "" {
		return nil, fmt.Errorf("capsa %q: link file has no target: %w", name, apperr.ErrNotFound)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(c.Home, target)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("capsa %q: link target is not a directory: %w", name, apperr.ErrNotFound)
	}
	return &Ref{
		Name:      name,
		Path:      target,
		IsLink:    true,
		IsDefault: isDefault,
	}, nil
}

// parseLinkTarget extracts the target path from link file content.
func parseLinkTarget(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "target" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
