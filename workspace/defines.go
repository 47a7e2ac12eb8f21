package workspace

import (
	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"go.lsp.dev/uri"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefineSite is a user defined function declared by an open document.
type DefineSite struct {
	URI    uri.URI
	Define analysis.Define
}

// UpdateDefines replaces the user defined functions declared by u.
func (idx *Index) UpdateDefines(u uri.URI, defines []analysis.Define) {
	if len(defines) == 0 {
		delete(idx.defines, u)
		return
	}
	idx.defines[u] = defines
}

// Defines returns every declaration of name across open documents, ordered
// by document.
func (idx *Index) Defines(name string) []DefineSite {
	uris := maps.Keys(idx.defines)
	slices.Sort(uris)

	sites := []DefineSite{}
	for _, u := range uris {
		for _, def := range idx.defines[u] {
			if def.Name == name {
				sites = append(sites, DefineSite{URI: u, Define: def})
			}
		}
	}
	return sites
}

// UserDefinition builds a definition from the first documented declaration
// of name.
func (idx *Index) UserDefinition(name string) (*builtins.Definition, bool) {
	for _, site := range idx.Defines(name) {
		if site.Define.DocStatus == builtins.DocFound {
			return site.Define.Doc.Definition(name), true
		}
	}
	return nil, false
}
