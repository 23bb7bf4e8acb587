package category

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliases []byte

type aliasFile struct {
	Categories []Definition `yaml:"categories"`
}

// Load decodes a YAML alias table from r.
func Load(r io.Reader) (*Normalizer, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f aliasFile
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode alias table: %w", err)
	}
	n, err := NewNormalizer(f.Categories)
	if err != nil {
		return nil, fmt.Errorf("build alias table: %w", err)
	}
	return n, nil
}

// LoadFile reads the alias table at path.
func LoadFile(path string) (*Normalizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alias table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the alias table compiled into the binary.
func Default() (*Normalizer, error) {
	return Load(bytes.NewReader(defaultAliases))
}

// FromFileOrDefault loads path when set and falls back to the built-in table.
func FromFileOrDefault(path string) (*Normalizer, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
