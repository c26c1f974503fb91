package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const RepositoriesFileName = "repositories.yml"

// ErrNoRepositoriesFile is returned when repositories.yml has not been
// written yet.
var ErrNoRepositoriesFile = errors.New("repositories.yml not found")

// Activation is one line of repositories.yml: ORG/REPO and whether the
// repository is synced by the child kind commands.
type Activation struct {
	FullName string
	Active   bool
}

func RepositoriesPath(dir string) string {
	return filepath.Join(dir, RepositoriesFileName)
}

// ReadRepositories parses repositories.yml, a list of single-key maps:
//
//	- acme/widgets: true
//	- acme/gadgets: false
func ReadRepositories(path string) ([]Activation, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoRepositoriesFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []map[string]bool
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	out := make([]Activation, 0, len(raw))
	for i, entry := range raw {
		if len(entry) != 1 {
			return nil, fmt.Errorf("parsing %s: entry %d must map exactly one ORG/REPO to true or false", path, i+1)
		}
		for name, active := range entry {
			name = strings.TrimSpace(name)
			if !strings.Contains(name, "/") {
				return nil, fmt.Errorf("parsing %s: entry %d: %q is not ORG/REPO", path, i+1, name)
			}
			out = append(out, Activation{FullName: name, Active: active})
		}
	}
	return out, nil
}

// WriteRepositories rewrites repositories.yml in the given order.
func WriteRepositories(path string, entries []Activation) error {
	raw := make([]map[string]bool, 0, len(entries))
	for _, e := range entries {
		raw = append(raw, map[string]bool{e.FullName: e.Active})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
