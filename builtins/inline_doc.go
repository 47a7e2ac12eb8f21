package builtins

import (
	"encoding/json"
	"regexp"
)

type DocStatus int

const (
	DocAbsent DocStatus = iota
	DocMalformed
	DocFound
)

func (s DocStatus) String() string {
	switch s {
	case DocMalformed:
		return "malformed"
	case DocFound:
		return "found"
	default:
		return "absent"
	}
}

// InlineDoc is the documentation a script author can attach to a user
// defined function with a JSON object inside a comment.
type InlineDoc struct {
	Name        string           `json:"name,omitempty"`
	Aliases     []string         `json:"aliases,omitempty"`
	Description string           `json:"description,omitempty"`
	IsTrusted   bool             `json:"isTrusted,omitempty"`
	Usages      []UsageSignature `json:"usages,omitempty"`
	Returns     string           `json:"returns,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Wiki        string           `json:"wiki,omitempty"`
}

var inlineDocRe = regexp.MustCompile(`\{.*\}`)

// ParseInlineDoc extracts the first single-line JSON object from text.
func ParseInlineDoc(text string) (InlineDoc, DocStatus) {
	match := inlineDocRe.FindString(text)
	if len(match) == 0 {
		return InlineDoc{}, DocAbsent
	}

	var doc InlineDoc
	if err := json.Unmarshal([]byte(match), &doc); err != nil {
		return InlineDoc{}, DocMalformed
	}
	return doc, DocFound
}

// Definition converts the annotation into a definition for hover and
// completion.
func (doc InlineDoc) Definition(name string) *Definition {
	def := &Definition{
		Name:        name,
		Aliases:     doc.Aliases,
		Description: doc.Description,
		IsTrusted:   doc.IsTrusted,
		Usages:      doc.Usages,
		Returns:     doc.Returns,
		Notes:       doc.Notes,
		Wiki:        doc.Wiki,
		Kind:        FunctionKind,
	}
	if len(doc.Name) != 0 {
		def.Name = doc.Name
	}
	return def
}
