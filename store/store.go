package store

import (
	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/workspace"
	"github.com/google/uuid"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Document is everything derived from one analysis of an open document.
// A Document is never modified after it has been stored.
type Document struct {
	URI         uri.URI
	Version     int32
	ResultID    string
	Tokens      []analysis.Token
	Data        []uint32
	Diagnostics []lsp.Diagnostic
	Vars        *analysis.Vars
	Symbols     []workspace.SymbolRef
	Defines     []analysis.Define
}

// SymbolAt finds the reference under pos: the last one starting at or
// before pos, provided pos does not lie past its end on the same line.
func (doc *Document) SymbolAt(pos lsp.Position) (workspace.SymbolRef, bool) {
	idx, _ := slices.BinarySearchFunc(doc.Symbols, pos, func(ref workspace.SymbolRef, target lsp.Position) int {
		if analysis.ComparePositions(ref.Range.Start, target) <= 0 {
			return -1
		}
		return 1
	})
	if idx == 0 {
		return workspace.SymbolRef{}, false
	}

	ref := doc.Symbols[idx-1]
	if ref.Range.End.Line != pos.Line || pos.Character > ref.Range.End.Character {
		return workspace.SymbolRef{}, false
	}
	return ref, true
}

type Store struct {
	// a map of document URIs mapped to their latest analysis
	documents map[uri.URI]*Document
}

func NewStore() *Store {
	return &Store{documents: map[uri.URI]*Document{}}
}

func (st *Store) Get(u uri.URI) (*Document, bool) {
	doc, ok := st.documents[u]
	return doc, ok
}

// Put replaces the stored analysis of doc.URI with doc and gives it a new
// result id.
func (st *Store) Put(doc *Document) {
	doc.ResultID = uuid.NewString()
	st.documents[doc.URI] = doc
}

func (st *Store) Delete(u uri.URI) bool {
	_, ok := st.documents[u]
	delete(st.documents, u)
	return ok
}

func (st *Store) Len() int {
	return len(st.documents)
}

func (st *Store) URIs() []uri.URI {
	uris := maps.Keys(st.documents)
	slices.Sort(uris)
	return uris
}
