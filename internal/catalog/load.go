package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the static configuration the Store is built from.
type Catalog struct {
	Sources  []Source              `yaml:"sources"`
	Clips    []Clip                `yaml:"clips"`
	Captions map[Category][]string `yaml:"captions,omitempty"`
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile loads the catalog at path, or the embedded default when path is
// empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Validate normalizes locators and checks every record once. Nothing
// downstream re-checks clip fields.
func (c *Catalog) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources", ErrInvalid)
	}
	sources := make(map[string]Source, len(c.Sources))
	for _, s := range c.Sources {
		if s.Key == "" {
			return fmt.Errorf("%w: source with empty key", ErrInvalid)
		}
		if _, dup := sources[s.Key]; dup {
			return fmt.Errorf("%w: duplicate source %q", ErrInvalid, s.Key)
		}
		sources[s.Key] = s
	}

	seen := make(map[string]struct{}, len(c.Clips))
	for i := range c.Clips {
		clip := &c.Clips[i]
		clip.normalize()
		if err := clip.validate(sources); err != nil {
			return err
		}
		if _, dup := seen[clip.ID]; dup {
			return fmt.Errorf("%w: duplicate clip id %q", ErrInvalid, clip.ID)
		}
		seen[clip.ID] = struct{}{}
	}
	return nil
}
