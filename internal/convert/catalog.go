package convert

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"gopkg.in/yaml.v3"
)

// Catalog maps category ids to class names.
type Catalog map[int]string

// Name returns the name for a category id.
func (c Catalog) Name(categoryID int) (string, error) {
	name, ok := c[categoryID]
	if !ok {
		return "", &UnknownClassError{CategoryID: categoryID}
	}
	return name, nil
}

// IDs returns the catalog ids in ascending order.
func (c Catalog) IDs() []int {
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CatalogFromNames numbers names from 1 in order.
func CatalogFromNames(names []string) Catalog {
	c := make(Catalog, len(names))
	for i, n := range names {
		c[i+1] = n
	}
	return c
}

type catalogFile struct {
	Names yaml.Node `yaml:"names"`
}

// ParseCatalog reads the "names" key of a YOLO data file. A list is
// numbered from 1; a map of zero-based class ids is shifted by one so that
// keys line up with category ids.
func ParseCatalog(data []byte) (Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", dataset.ErrFormat, err)
	}
	switch f.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := f.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("%w: catalog names: %v", dataset.ErrFormat, err)
		}
		return CatalogFromNames(names), nil
	case yaml.MappingNode:
		var byClass map[int]string
		if err := f.Names.Decode(&byClass); err != nil {
			return nil, fmt.Errorf("%w: catalog names: %v", dataset.ErrFormat, err)
		}
		c := make(Catalog, len(byClass))
		for class, name := range byClass {
			c[class+1] = name
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: catalog has no names list", dataset.ErrFormat)
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(ctx context.Context, store imagestore.Store, path string) (Catalog, error) {
	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// MarshalCatalog writes c in the list form ParseCatalog reads. Gaps in the
// id range are filled with empty names.
func MarshalCatalog(c Catalog) ([]byte, error) {
	ids := c.IDs()
	var names []string
	if len(ids) > 0 {
		names = make([]string, max(ids[len(ids)-1], 0))
		for _, id := range ids {
			if id >= 1 {
				names[id-1] = c[id]
			}
		}
	}
	return yaml.Marshal(map[string]any{"nc": len(names), "names": names})
}
