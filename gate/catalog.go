package gate

import (
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Gate is the descriptor the core looks up by name. id is stable for the
// lifetime of a Catalog; name is the canonical (uppercase) spelling used
// when rendering operations back to text.
type Gate struct {
	ID    int
	Name  string
	Flags Flags
}

// MaxNameLength is the longest name the parser will accept before giving
// up on a catalog lookup outright (see the lexical rules in the format
// description).
const MaxNameLength = 31

// Distinguished gate names the core branches on directly.
const (
	Repeat            = "REPEAT"
	Detector          = "DETECTOR"
	ObservableInclude = "OBSERVABLE_INCLUDE"
)

// Catalog is an immutable, read-only table of gates, built once and shared
// by every circuit and parser that uses it.
type Catalog struct {
	byName map[string]*Gate
	byID   []*Gate
}

type catalogFile struct {
	Gates []Entry `yaml:"gates"`
}

// Entry is one row of a gate catalog: a name and the flag names that
// apply to it. Used both for YAML-sourced catalogs and for building one
// programmatically (e.g. in tests).
type Entry struct {
	Name  string   `yaml:"name"`
	Flags []string `yaml:"flags"`
}

// NewCatalog builds a Catalog from an explicit entry list, in the order
// given; entry order determines the assigned Gate.ID.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Gate, len(entries))}
	for i, e := range entries {
		name := strings.ToUpper(e.Name)
		if len(name) == 0 || len(name) > MaxNameLength {
			return nil, errors.Errorf("gate catalog: entry %d has invalid name %q", i, e.Name)
		}
		flags, err := parseFlags(e.Flags)
		if err != nil {
			return nil, errors.Wrapf(err, "gate catalog: entry %q", e.Name)
		}
		if _, dup := c.byName[name]; dup {
			return nil, errors.Errorf("gate catalog: duplicate gate name %q", name)
		}
		g := &Gate{ID: i, Name: name, Flags: flags}
		c.byName[name] = g
		c.byID = append(c.byID, g)
	}
	return c, nil
}

func parseCatalogYAML(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "gate catalog: parsing yaml")
	}
	return NewCatalog(file.Gates)
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
	defaultCatalogErr  error
)

// Default returns the built-in gate catalog, parsed once and shared.
func Default() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = parseCatalogYAML(defaultCatalogYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// MustDefault is Default, panicking on failure. It is meant for program
// startup (global catalog initialization), never for request-time code.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a gate catalog from a YAML file on disk, replacing the
// built-in table entirely. Used when an operator wants to extend or
// restrict the set of recognized gates without recompiling.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "gate catalog: reading %s", path)
	}
	c, err := parseCatalogYAML(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "gate catalog: loading %s", path)
	}
	return c, nil
}

// Lookup finds a gate by name, case-insensitively. Names longer than
// MaxNameLength never match, mirroring the lexical rule that caps gate
// names at 31 characters.
func (c *Catalog) Lookup(name string) (*Gate, bool) {
	if len(name) == 0 || len(name) > MaxNameLength {
		return nil, false
	}
	g, ok := c.byName[strings.ToUpper(name)]
	return g, ok
}

// ByID returns the gate with the given stable id.
func (c *Catalog) ByID(id int) (*Gate, bool) {
	if id < 0 || id >= len(c.byID) {
		return nil, false
	}
	return c.byID[id], true
}
