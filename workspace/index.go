package workspace

import (
	"strings"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/armon/go-radix"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Location struct {
	URI   uri.URI
	Range lsp.Range
}

// Record is the workspace-wide entry for one name. Every document that
// references the name shares the same record.
type Record struct {
	Name      string
	Kind      analysis.SymbolKind
	Builtin   bool
	Locations []Location
}

// SymbolRef is a document's own view of a symbol: where it appears and how
// many arguments the call had, plus the shared record.
type SymbolRef struct {
	Range    lsp.Range
	Kind     analysis.SymbolKind
	ArgCount int
	HasArgs  bool
	Record   *Record
}

func (ref SymbolRef) Name() string {
	return ref.Record.Name
}

// Index merges the symbols of every open document. It is not safe for
// concurrent use; callers serialize access.
type Index struct {
	logger  *zap.Logger
	records map[string]*Record
	// names each document contributed on its last update
	contributed map[uri.URI][]string
	prefix      *radix.Tree
	defines     map[uri.URI][]analysis.Define
}

func NewIndex(logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		logger:      logger.Named("index"),
		records:     map[string]*Record{},
		contributed: map[uri.URI][]string{},
		prefix:      radix.New(),
		defines:     map[uri.URI][]analysis.Define{},
	}
}

// SeedBuiltins creates a persistent record for every function and roll
// option name. When a name is both, the function record wins.
func (idx *Index) SeedBuiltins(reg *builtins.Registry) {
	for _, name := range reg.RollOptionNames() {
		idx.seed(name, analysis.RollOptionSym)
	}
	for _, name := range reg.FunctionNames() {
		idx.seed(name, analysis.FunctionSym)
	}
	idx.rebuild()
}

func (idx *Index) seed(name string, kind analysis.SymbolKind) {
	if rec, ok := idx.records[name]; ok {
		rec.Kind = kind
		rec.Builtin = true
		return
	}
	idx.records[name] = &Record{Name: name, Kind: kind, Builtin: true, Locations: []Location{}}
}

// Update replaces every location previously contributed by u with the
// given symbols and returns the document's references sorted by position.
func (idx *Index) Update(u uri.URI, found []analysis.FoundSymbol) []SymbolRef {
	idx.dropContributions(u)

	touched := map[string]*Record{}
	refs := make([]SymbolRef, 0, len(found))
	for _, sym := range found {
		loc := Location{URI: u, Range: sym.Range}
		rec, ok := idx.records[sym.Name]
		if !ok {
			rec = &Record{Name: sym.Name, Kind: sym.Kind, Locations: []Location{loc}}
			idx.records[sym.Name] = rec
		} else {
			rec.Locations = append(rec.Locations, loc)
		}
		touched[sym.Name] = rec

		refs = append(refs, SymbolRef{
			Range:    sym.Range,
			Kind:     sym.Kind,
			ArgCount: sym.ArgCount,
			HasArgs:  sym.HasArgs,
			Record:   rec,
		})
	}

	for _, rec := range touched {
		sortLocations(rec.Locations)
	}
	names := maps.Keys(touched)
	slices.Sort(names)
	idx.contributed[u] = names

	idx.rebuild()

	slices.SortStableFunc(refs, func(a, b SymbolRef) int {
		return analysis.ComparePositions(a.Range.Start, b.Range.Start)
	})
	return refs
}

// Remove drops everything a closed document contributed.
func (idx *Index) Remove(u uri.URI) {
	idx.dropContributions(u)
	delete(idx.contributed, u)
	delete(idx.defines, u)
	idx.rebuild()
}

func (idx *Index) dropContributions(u uri.URI) {
	for _, name := range idx.contributed[u] {
		rec, ok := idx.records[name]
		if !ok {
			continue
		}
		rec.Locations = slices.DeleteFunc(rec.Locations, func(loc Location) bool {
			return loc.URI == u
		})
		if len(rec.Locations) == 0 && !rec.Builtin {
			delete(idx.records, name)
		}
	}
	delete(idx.contributed, u)
}

// Demote clears the builtin flag of a record. A demoted record that is not
// referenced anywhere is deleted right away.
func (idx *Index) Demote(name string) {
	rec, ok := idx.records[name]
	if !ok {
		return
	}
	rec.Builtin = false
	if len(rec.Locations) == 0 {
		delete(idx.records, name)
		idx.rebuild()
	}
}

func (idx *Index) Lookup(name string) (*Record, bool) {
	rec, ok := idx.records[name]
	return rec, ok
}

func (idx *Index) Len() int {
	return len(idx.records)
}

// rebuild resets the prefix tree and inserts every record again. Keys are
// lower case so that searching ignores case.
func (idx *Index) rebuild() {
	tree := radix.New()
	for name, rec := range idx.records {
		key := strings.ToLower(name)
		var bucket []*Record
		if existing, ok := tree.Get(key); ok {
			bucket = existing.([]*Record)
		}
		tree.Insert(key, append(bucket, rec))
	}
	idx.prefix = tree
	idx.logger.Debug("rebuilt prefix index", zap.Int("records", len(idx.records)))
}

// Search returns every record whose name starts with prefix, ignoring case,
// sorted by name.
func (idx *Index) Search(prefix string) []*Record {
	found := []*Record{}
	idx.prefix.WalkPrefix(strings.ToLower(prefix), func(_ string, v interface{}) bool {
		found = append(found, v.([]*Record)...)
		return false
	})
	slices.SortFunc(found, func(a, b *Record) int {
		return strings.Compare(a.Name, b.Name)
	})
	return found
}

func sortLocations(locs []Location) {
	slices.SortStableFunc(locs, func(a, b Location) int {
		if c := strings.Compare(string(a.URI), string(b.URI)); c != 0 {
			return c
		}
		return analysis.ComparePositions(a.Range.Start, b.Range.Start)
	})
}
