package textdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Daedeross/maptool-script.vscode/server/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func pos(line, char uint32) lsp.Position {
	return lsp.Position{Line: line, Character: char}
}

func TestPositionConversions(t *testing.T) {
	doc := NewDocument("file:///a.mts", "mts", 1, "ab\n😀cd\n\nx")

	assert.Equal(t, pos(0, 0), doc.PositionAt(0))
	assert.Equal(t, pos(0, 2), doc.PositionAt(2))
	assert.Equal(t, pos(1, 0), doc.PositionAt(3))
	assert.Equal(t, pos(1, 2), doc.PositionAt(5))
	assert.Equal(t, pos(1, 4), doc.PositionAt(7))
	assert.Equal(t, pos(2, 0), doc.PositionAt(8))
	assert.Equal(t, pos(3, 1), doc.PositionAt(100))
	assert.Equal(t, pos(0, 0), doc.PositionAt(-1))

	assert.Equal(t, 5, doc.OffsetAt(pos(1, 2)))
	assert.Equal(t, 7, doc.OffsetAt(pos(1, 40)))
	assert.Equal(t, 10, doc.OffsetAt(pos(9, 0)))

	for offset := 0; offset <= 10; offset++ {
		if offset == 4 {
			// inside the surrogate pair
			continue
		}
		assert.Equal(t, offset, doc.OffsetAt(doc.PositionAt(offset)), "offset %d", offset)
	}
}

func TestApplyChanges(t *testing.T) {
	doc := NewDocument("file:///a.mts", "mts", 1, "[h: x = 1]\n[r: x]")

	doc.ApplyChanges(2, []Change{
		{Range: &lsp.Range{Start: pos(0, 8), End: pos(0, 9)}, Text: "42"},
		{Range: &lsp.Range{Start: pos(1, 4), End: pos(1, 4)}, Text: "2 * "},
	})
	assert.Equal(t, "[h: x = 42]\n[r: 2 * x]", doc.Text())
	assert.Equal(t, int32(2), doc.Version)

	doc.ApplyChanges(3, []Change{
		{Range: &lsp.Range{Start: pos(0, 11), End: pos(1, 0)}, Text: ""},
	})
	assert.Equal(t, "[h: x = 42][r: 2 * x]", doc.Text())

	doc.ApplyChanges(4, []Change{{Text: "replaced"}})
	assert.Equal(t, "replaced", doc.Text())
	assert.Equal(t, pos(0, 8), doc.PositionAt(100))
}

func TestWordBefore(t *testing.T) {
	doc := NewDocument("file:///a.mts", "mts", 1, "[r: json.ge]\n[h: list")

	assert.Equal(t, "json.ge", doc.WordBefore(pos(0, 11)))
	assert.Equal(t, "json", doc.WordBefore(pos(0, 8)))
	assert.Equal(t, "", doc.WordBefore(pos(0, 4)))
	assert.Equal(t, "list", doc.WordBefore(pos(1, 8)))
	assert.Equal(t, "", doc.WordBefore(pos(5, 0)))
}

func TestDocuments(t *testing.T) {
	sfs := helpers.NewSharedFS()
	docs := NewDocuments(sfs)
	u := uri.URI("untitled:Untitled-1")

	_, err := docs.Open(u, "mts", 1, "[h: x = 1]")
	require.NoError(t, err)

	content, err := sfs.ReadFile(helpers.URIKey(u))
	require.NoError(t, err)
	assert.Equal(t, "[h: x = 1]", string(content))

	doc, err := docs.Change(u, 2, []Change{{Text: "[h: x = 2]"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), doc.Version)

	content, err = sfs.ReadFile(helpers.URIKey(u))
	require.NoError(t, err)
	assert.Equal(t, "[h: x = 2]", string(content))

	_, err = docs.Open(uri.URI("file:///a.mts"), "mts", 1, "")
	require.NoError(t, err)
	all := docs.All()
	require.Len(t, all, 2)
	assert.Equal(t, uri.URI("file:///a.mts"), all[0].URI)
	docs.Close(uri.URI("file:///a.mts"))

	docs.Close(u)
	_, ok := docs.Get(u)
	assert.False(t, ok)
	assert.Equal(t, 0, docs.Len())

	_, err = docs.Change(u, 3, nil)
	assert.Error(t, err)
}

func TestDocumentsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.mts")
	require.NoError(t, os.WriteFile(path, []byte("[r: abs(-1)]"), 0o600))

	docs := NewDocuments(nil)
	doc, err := docs.Load(path, "mts")
	require.NoError(t, err)
	assert.Equal(t, "[r: abs(-1)]", doc.Text())
	assert.Equal(t, uri.File(path), doc.URI)

	_, err = docs.Load(filepath.Join(t.TempDir(), "missing.mts"), "mts")
	assert.Error(t, err)
}
