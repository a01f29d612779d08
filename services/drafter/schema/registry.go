// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// embeddedSchemas holds the default section schemas baked into the binary
// at compile time, so the drafter works without any external configuration.
//
//go:embed schemas.yaml
var embeddedSchemas []byte

// schemaFile is the on-disk shape of a schema definition file.
// The file-level version applies to every schema in the file unless a
// schema sets its own.
type schemaFile struct {
	Version string          `yaml:"version"`
	Schemas []SectionSchema `yaml:"schemas"`
}

// NormalizeType canonicalizes a section-type identifier for lookup:
// lowercase, surrounding whitespace trimmed. "JUSTIFICATIVA",
// "justificativa" and "  justificativa  " all resolve identically.
func NormalizeType(sectionType string) string {
	return strings.ToLower(strings.TrimSpace(sectionType))
}

// Registry resolves section types to their schemas.
//
// # Thread Safety
//
// Safe for concurrent use. Get and All take a read lock; reloads build the
// full candidate map outside the lock and swap it in one write. A failed
// reload leaves the previous map untouched.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]SectionSchema
	versions map[string]string
	def      SectionSchema
}

// NewRegistry builds a registry from the embedded schema set.
// An invalid embedded set is a programming error and fails loudly so the
// process never starts with broken validation rules.
func NewRegistry() (*Registry, error) {
	schemas, versions, err := parseSchemaBytes(embeddedSchemas)
	if err != nil {
		return nil, fmt.Errorf("embedded schemas: %w", err)
	}
	return &Registry{
		schemas:  schemas,
		versions: versions,
		def:      DefaultSchema(),
	}, nil
}

// NewRegistryFromBytes builds a registry from caller-supplied YAML.
// Used by tests to substitute alternate schema sets.
func NewRegistryFromBytes(data []byte) (*Registry, error) {
	schemas, versions, err := parseSchemaBytes(data)
	if err != nil {
		return nil, err
	}
	return &Registry{
		schemas:  schemas,
		versions: versions,
		def:      DefaultSchema(),
	}, nil
}

// Get returns the schema for a section type, normalizing the identifier
// before lookup. Unknown types receive the default schema. The returned
// value is a copy; mutating it does not affect the registry.
func (r *Registry) Get(sectionType string) SectionSchema {
	key := NormalizeType(sectionType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.schemas[key]; ok {
		return s
	}
	return r.def
}

// Has reports whether a concrete schema exists for the section type.
func (r *Registry) Has(sectionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.schemas[NormalizeType(sectionType)]
	return ok
}

// Default returns the fallback schema handed out for unknown types.
func (r *Registry) Default() SectionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// All returns every concrete schema, sorted by type for stable listings.
func (r *Registry) All() []SectionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SectionSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Len returns the number of concrete schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// LoadDir merges every *.yaml/*.yml file under dir over the current schema
// set and swaps the result in atomically. When two definitions cover the
// same section type, the higher semantic version wins; on equal versions
// the later file (lexical walk order) wins.
//
// Any invalid schema or malformed file aborts the whole load and leaves
// the registry unchanged, so a half-edited override directory can never
// degrade a running service.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("schema dir %s: %w", dir, err)
	}

	// Copy the current state as the merge base.
	r.mu.RLock()
	merged := make(map[string]SectionSchema, len(r.schemas))
	versions := make(map[string]string, len(r.versions))
	for k, v := range r.schemas {
		merged[k] = v
	}
	for k, v := range r.versions {
		versions[k] = v
	}
	r.mu.RUnlock()

	loadedAny := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("schema file %s: %w", name, err)
		}
		fileSchemas, fileVersions, err := parseSchemaBytes(data)
		if err != nil {
			return fmt.Errorf("schema file %s: %w", name, err)
		}

		for key, candidate := range fileSchemas {
			current, exists := versions[key]
			if exists && semver.Compare(canonVersion(fileVersions[key]), canonVersion(current)) < 0 {
				continue
			}
			merged[key] = candidate
			versions[key] = fileVersions[key]
		}
		loadedAny = true
	}

	if !loadedAny {
		return nil
	}

	r.mu.Lock()
	r.schemas = merged
	r.versions = versions
	r.mu.Unlock()
	return nil
}

// parseSchemaBytes unmarshals, validates, and compiles one schema file.
// Returns the schemas keyed by normalized type plus their effective
// versions. Within a single file, a duplicated type is an error rather
// than a silent overwrite.
func parseSchemaBytes(data []byte) (map[string]SectionSchema, map[string]string, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(file.Schemas) == 0 {
		return nil, nil, fmt.Errorf("no schemas defined")
	}

	fileVersion := file.Version
	if fileVersion == "" {
		fileVersion = "0.0.0"
	}
	if !semver.IsValid(canonVersion(fileVersion)) {
		return nil, nil, fmt.Errorf("invalid file version %q", file.Version)
	}

	schemas := make(map[string]SectionSchema, len(file.Schemas))
	versions := make(map[string]string, len(file.Schemas))
	for i := range file.Schemas {
		s := file.Schemas[i]
		s.Type = NormalizeType(s.Type)
		if s.Version == "" {
			s.Version = fileVersion
		}
		if !semver.IsValid(canonVersion(s.Version)) {
			return nil, nil, fmt.Errorf("schema %q: invalid version %q", s.Type, s.Version)
		}
		if err := s.Validate(); err != nil {
			return nil, nil, err
		}
		if err := s.compilePatterns(); err != nil {
			return nil, nil, err
		}
		if _, dup := schemas[s.Type]; dup {
			return nil, nil, fmt.Errorf("duplicate schema type %q", s.Type)
		}
		schemas[s.Type] = s
		versions[s.Type] = s.Version
	}
	return schemas, versions, nil
}

// canonVersion prefixes "v" for x/mod semver comparison, which requires the
// canonical "vMAJOR.MINOR.PATCH" form.
func canonVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
