package skill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"skill-engine/internal/logging"
)

// Catalog holds the loaded skill definitions, indexed by name.
type Catalog struct {
	skills map[string]*Definition
}

// Get returns the named skill, or nil if it is not in the catalog.
func (c *Catalog) Get(name string) *Definition {
	return c.skills[name]
}

// Names returns the sorted skill names in the catalog.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.skills))
	for name := range c.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadCatalog reads every *.json skill document under dir, validates each
// against the embedded schema and the construction-time invariants, and
// returns the resulting catalog. Any invalid document fails the load.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read skills directory '%s': %w", dir, err)
	}

	catalog := &Catalog{skills: make(map[string]*Definition)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, loadErr := LoadDefinition(path)
		if loadErr != nil {
			return nil, loadErr
		}
		if _, dup := catalog.skills[def.Name]; dup {
			return nil, fmt.Errorf("duplicate skill name '%s' in '%s'", def.Name, path)
		}
		catalog.skills[def.Name] = def
		logging.Logf(logging.Debug, "Loaded skill '%s' (%d commands) from %s", def.Name, len(def.Commands), path)
	}
	logging.Logf(logging.Info, "Skill catalog loaded: %d skills from %s", len(catalog.skills), dir)
	return catalog, nil
}

// LoadDefinition reads and validates one skill document.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill file '%s': %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("invalid skill file '%s': %w", path, err)
	}
	return def, nil
}

// ParseDefinition validates raw skill JSON against the schema, unmarshals
// it and checks the remaining invariants.
func ParseDefinition(data []byte) (*Definition, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("- %s: %s", desc.Field(), desc.Description()))
		}
		return nil, fmt.Errorf("skill document does not match schema:\n%s", strings.Join(msgs, "\n"))
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse skill JSON: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
