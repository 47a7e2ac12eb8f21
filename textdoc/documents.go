package textdoc

import (
	"github.com/Daedeross/maptool-script.vscode/server/helpers"
	"github.com/pkg/errors"
	"go.lsp.dev/uri"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Documents tracks open documents. The current text of each document is
// mirrored into a shared in-memory filesystem.
type Documents struct {
	fs   *helpers.SharedFS
	docs map[uri.URI]*Document
}

func NewDocuments(fs *helpers.SharedFS) *Documents {
	if fs == nil {
		fs = helpers.NewSharedFS()
	}
	return &Documents{fs: fs, docs: map[uri.URI]*Document{}}
}

func (ds *Documents) Open(u uri.URI, languageID string, version int32, text string) (*Document, error) {
	doc := NewDocument(u, languageID, version, text)
	if err := ds.sync(doc); err != nil {
		return nil, err
	}
	ds.docs[u] = doc
	return doc, nil
}

func (ds *Documents) Change(u uri.URI, version int32, changes []Change) (*Document, error) {
	doc, ok := ds.docs[u]
	if !ok {
		return nil, errors.Errorf("document %s is not open", u)
	}
	doc.ApplyChanges(version, changes)
	if err := ds.sync(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (ds *Documents) Close(u uri.URI) {
	if _, ok := ds.docs[u]; !ok {
		return
	}
	delete(ds.docs, u)
	_ = ds.fs.Remove(helpers.URIKey(u))
}

func (ds *Documents) Get(u uri.URI) (*Document, bool) {
	doc, ok := ds.docs[u]
	return doc, ok
}

// All returns the open documents ordered by URI.
func (ds *Documents) All() []*Document {
	uris := maps.Keys(ds.docs)
	slices.Sort(uris)

	docs := make([]*Document, 0, len(uris))
	for _, u := range uris {
		docs = append(docs, ds.docs[u])
	}
	return docs
}

func (ds *Documents) Len() int {
	return len(ds.docs)
}

func (ds *Documents) sync(doc *Document) error {
	if err := ds.fs.WriteFile(helpers.URIKey(doc.URI), []byte(doc.Text())); err != nil {
		return errors.Wrapf(err, "store %s", doc.URI)
	}
	return nil
}

// Load reads a document from the shared filesystem, falling back to disk.
// Loaded documents are not tracked as open.
func (ds *Documents) Load(path string, languageID string) (*Document, error) {
	content, err := ds.fs.ReadFile(helpers.PathKey(path))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return NewDocument(uri.File(path), languageID, 0, string(content)), nil
}
