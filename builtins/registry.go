package builtins

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

//go:embed data/*.json
var catalogFS embed.FS

// LoadCatalog decodes a catalog file. Entries without a name are skipped and
// entries without usages get a single signature with no parameters.
func LoadCatalog(r io.Reader, kind Kind) ([]*Definition, error) {
	var raw []*Definition
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	defs := make([]*Definition, 0, len(raw))
	for _, def := range raw {
		if def == nil || len(def.Name) == 0 {
			continue
		}
		if def.Usages == nil {
			def.Usages = []UsageSignature{{}}
		}
		def.Kind = kind
		defs = append(defs, def)
	}
	return defs, nil
}

// Registry indexes built-in functions and roll options by name and alias.
// It is immutable once constructed.
type Registry struct {
	functions   map[string]*Definition
	rollOptions map[string]*Definition
	ordered     []*Definition
}

func NewRegistry(functions, rollOptions []*Definition) *Registry {
	reg := &Registry{
		functions:   map[string]*Definition{},
		rollOptions: map[string]*Definition{},
		ordered:     []*Definition{},
	}
	reg.index(reg.functions, functions)
	reg.index(reg.rollOptions, rollOptions)
	return reg
}

func (reg *Registry) index(dst map[string]*Definition, defs []*Definition) {
	for _, def := range defs {
		dst[def.Name] = def
		for _, alias := range def.Aliases {
			dst[alias] = def
		}
		reg.ordered = append(reg.ordered, def)
	}
}

func (reg *Registry) Function(name string) (*Definition, bool) {
	def, ok := reg.functions[name]
	return def, ok
}

func (reg *Registry) RollOption(name string) (*Definition, bool) {
	def, ok := reg.rollOptions[name]
	return def, ok
}

// Lookup finds a definition of the given kind.
func (reg *Registry) Lookup(kind Kind, name string) (*Definition, bool) {
	if kind == RollOptionKind {
		return reg.RollOption(name)
	}
	return reg.Function(name)
}

// Definitions returns each definition once, functions first, in load order.
func (reg *Registry) Definitions() []*Definition {
	return reg.ordered
}

// FunctionNames returns every name a function can be called by, aliases
// included.
func (reg *Registry) FunctionNames() []string {
	return namesOf(reg.functions)
}

func (reg *Registry) RollOptionNames() []string {
	return namesOf(reg.rollOptions)
}

func namesOf(m map[string]*Definition) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry loads the catalogs embedded in the binary.
func DefaultRegistry() (*Registry, error) {
	functions, err := loadEmbedded("data/functions.json", FunctionKind)
	if err != nil {
		return nil, err
	}
	rollOptions, err := loadEmbedded("data/roll_options.json", RollOptionKind)
	if err != nil {
		return nil, err
	}
	return NewRegistry(functions, rollOptions), nil
}

func loadEmbedded(name string, kind Kind) ([]*Definition, error) {
	content, err := catalogFS.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	defs, err := LoadCatalog(bytes.NewReader(content), kind)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return defs, nil
}
