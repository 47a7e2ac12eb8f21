package textdoc

import (
	"regexp"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Change is one content change of textDocument/didChange. A nil Range
// replaces the whole text.
type Change struct {
	Range *lsp.Range `json:"range,omitempty"`
	Text  string     `json:"text"`
}

type line struct {
	byteStart int
	u16Start  int
}

// Document is the text of an open document with a line index for
// converting between UTF-16 positions and byte offsets.
type Document struct {
	URI        uri.URI
	LanguageID string
	Version    int32

	text  string
	lines []line
}

func NewDocument(u uri.URI, languageID string, version int32, text string) *Document {
	doc := &Document{URI: u, LanguageID: languageID, Version: version}
	doc.SetText(text)
	return doc
}

func (doc *Document) Text() string {
	return doc.text
}

func (doc *Document) SetText(text string) {
	doc.text = text
	doc.lines = doc.lines[:0]
	doc.lines = append(doc.lines, line{})

	u16 := 0
	for i, r := range text {
		u16 += runeWidth(r)
		if r == '\n' {
			doc.lines = append(doc.lines, line{byteStart: i + 1, u16Start: u16})
		}
	}
}

func runeWidth(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// lineEnd returns the byte offset of the end of line n, excluding the line
// break.
func (doc *Document) lineEnd(n int) int {
	if n+1 < len(doc.lines) {
		return doc.lines[n+1].byteStart - 1
	}
	return len(doc.text)
}

// byteOffset converts a position into a byte offset, clamping positions
// past the end of a line or of the document.
func (doc *Document) byteOffset(pos lsp.Position) int {
	n := int(pos.Line)
	if n >= len(doc.lines) {
		return len(doc.text)
	}

	i, end := doc.lines[n].byteStart, doc.lineEnd(n)
	remaining := int(pos.Character)
	for i < end && remaining > 0 {
		r, size := utf8.DecodeRuneInString(doc.text[i:])
		remaining -= runeWidth(r)
		i += size
	}
	return i
}

// OffsetAt converts a position into a UTF-16 offset from the start of the
// document.
func (doc *Document) OffsetAt(pos lsp.Position) int {
	n := int(pos.Line)
	if n >= len(doc.lines) {
		return doc.u16Len()
	}

	b := doc.byteOffset(pos)
	start := doc.lines[n]
	return start.u16Start + u16Len(doc.text[start.byteStart:b])
}

// PositionAt converts a UTF-16 offset into a position. Offsets outside the
// document are clamped.
func (doc *Document) PositionAt(offset int) lsp.Position {
	if offset < 0 {
		offset = 0
	}
	n := sort.Search(len(doc.lines), func(i int) bool {
		return doc.lines[i].u16Start > offset
	}) - 1

	start := doc.lines[n]
	lineLen := u16Len(doc.text[start.byteStart:doc.lineEnd(n)])
	char := min(offset-start.u16Start, lineLen)
	return lsp.Position{Line: uint32(n), Character: uint32(char)}
}

func (doc *Document) u16Len() int {
	last := doc.lines[len(doc.lines)-1]
	return last.u16Start + u16Len(doc.text[last.byteStart:])
}

func u16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// ApplyChanges applies content changes in order and sets the new version.
func (doc *Document) ApplyChanges(version int32, changes []Change) {
	for _, change := range changes {
		if change.Range == nil {
			doc.SetText(change.Text)
			continue
		}

		start := doc.byteOffset(change.Range.Start)
		end := doc.byteOffset(change.Range.End)
		if end < start {
			start, end = end, start
		}
		doc.SetText(doc.text[:start] + change.Text + doc.text[end:])
	}
	doc.Version = version
}

var wordRe = regexp.MustCompile(`[\w.]+$`)

// WordBefore returns the identifier being typed right before pos, dots
// included, or an empty string.
func (doc *Document) WordBefore(pos lsp.Position) string {
	n := int(pos.Line)
	if n >= len(doc.lines) {
		return ""
	}
	return wordRe.FindString(doc.text[doc.lines[n].byteStart:doc.byteOffset(pos)])
}
