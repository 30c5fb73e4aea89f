// Package project loads a Pyre project's pyre.toml manifest and walks
// its directory tree for schema and query source files, consumed only
// by cmd/pyre (§6, §4.9).
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"pyreql/ast"
	"pyreql/parser"
)

// Manifest is the decoded pyre.toml project file: a name plus a
// namespace -> SQLite file path mapping.
type Manifest struct {
	Project    ManifestProject              `toml:"project"`
	Namespaces map[string]ManifestNamespace `toml:"namespaces"`
}

type ManifestProject struct {
	Name string `toml:"name"`
}

type ManifestNamespace struct {
	Path string `toml:"path"`
}

// LoadManifest decodes a pyre.toml file at path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("project: decode %q: %w", path, err)
	}
	return &m, nil
}

// DBPath returns the configured SQLite file path for ns, or false if
// the manifest declares no such namespace.
func (m *Manifest) DBPath(ns string) (string, bool) {
	if m == nil {
		return "", false
	}
	n, ok := m.Namespaces[ns]
	if !ok {
		return "", false
	}
	return n.Path, true
}

// Load walks dir for schema.pyre / schema/<ns>/schema.pyre files and
// every other *.pyre file (queries), parsing each according to §6's
// namespacing rule, and returns every parsed schema plus every parsed
// query list.
func Load(dir string) ([]*ast.Schema, []*ast.QueryList, error) {
	var schemas []*ast.Schema
	var queries []*ast.QueryList
	var schemaFiles, queryFiles []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".pyre") {
			return nil
		}
		if filepath.Base(path) == "schema.pyre" {
			schemaFiles = append(schemaFiles, path)
		} else {
			queryFiles = append(queryFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(schemaFiles)
	sort.Strings(queryFiles)

	for _, path := range schemaFiles {
		ns, err := namespaceOf(dir, path)
		if err != nil {
			return nil, nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("project: read %q: %w", path, err)
		}
		s, err := parser.ParseSchema(path, ns, string(src))
		if err != nil {
			return nil, nil, err
		}
		schemas = append(schemas, s)
	}

	for _, path := range queryFiles {
		ns, err := namespaceOf(dir, path)
		if err != nil {
			return nil, nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("project: read %q: %w", path, err)
		}
		q, err := parser.ParseQuery(path, ns, string(src))
		if err != nil {
			return nil, nil, err
		}
		queries = append(queries, q)
	}

	return schemas, queries, nil
}

// namespaceOf derives a file's namespace from its path relative to the
// project root: "schema.pyre" at the root is "default"; anything under
// "schema/<name>/" is "<name>"; any other path falls back to "default".
func namespaceOf(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) >= 2 && parts[0] == "schema" {
		return parts[1], nil
	}
	return "default", nil
}
