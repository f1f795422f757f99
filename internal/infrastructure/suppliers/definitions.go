package suppliers

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/restohub/backend/internal/domain/shared"
	"github.com/restohub/backend/internal/domain/supplier"
)

// definitionsFile is the on-disk shape of the supplier definitions document
type definitionsFile struct {
	Suppliers []supplier.SupplierDefinition `yaml:"suppliers"`
}

// StaticCatalog serves supplier definitions loaded once from a YAML file.
// The catalog is immutable after load, so reads need no locking.
type StaticCatalog struct {
	byID map[string]*supplier.SupplierDefinition
	ids  []string // sorted
}

var _ supplier.DefinitionCatalog = (*StaticCatalog)(nil)

// LoadCatalog reads and parses the definitions file at path. Any structural
// problem fails the load; a bad definition should stop startup, not surface
// later as a broken connection flow.
func LoadCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suppliers: read definitions file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a catalog from raw YAML
func ParseCatalog(data []byte) (*StaticCatalog, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("suppliers: parse definitions: %w", err)
	}
	if len(file.Suppliers) == 0 {
		return nil, fmt.Errorf("suppliers: definitions file lists no suppliers")
	}

	byID := make(map[string]*supplier.SupplierDefinition, len(file.Suppliers))
	ids := make([]string, 0, len(file.Suppliers))
	for i := range file.Suppliers {
		def := &file.Suppliers[i]
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("suppliers: definition %q: %w", def.ID, err)
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("suppliers: duplicate definition id %q", def.ID)
		}
		byID[def.ID] = def
		ids = append(ids, def.ID)
	}
	sort.Strings(ids)

	return &StaticCatalog{byID: byID, ids: ids}, nil
}

// Get returns the definition with the given id
func (c *StaticCatalog) Get(id string) (*supplier.SupplierDefinition, error) {
	def, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: supplier definition '%s'", shared.ErrNotFound, id)
	}
	return def, nil
}

// All returns every definition, ordered by id
func (c *StaticCatalog) All() []supplier.SupplierDefinition {
	out := make([]supplier.SupplierDefinition, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, *c.byID[id])
	}
	return out
}
