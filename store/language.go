package store

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

const LANGUAGE_ID = "mts"

var FileExtensions = []string{".mts", ".mtscript"}

// IsMacroLanguage reports whether a client language id denotes MTS.
func IsMacroLanguage(languageID string) bool {
	return strings.EqualFold(languageID, LANGUAGE_ID)
}

// DetectByPath reports whether a file looks like an MTS macro from its
// extension.
func DetectByPath(path string) bool {
	gotExt := strings.ToLower(filepath.Ext(path))
	for _, ext := range FileExtensions {
		if gotExt == ext {
			return true
		}
	}
	return false
}

// IsMacroDocument decides whether a document should be analyzed. The
// extension is only consulted when the client sent no language id.
func IsMacroDocument(languageID string, u uri.URI) bool {
	if len(languageID) != 0 {
		return IsMacroLanguage(languageID)
	}
	return DetectByPath(string(u))
}

// IncludePatterns returns glob patterns matching every macro file
// extension.
func IncludePatterns() []string {
	patterns := make([]string, 0, len(FileExtensions))
	for _, ext := range FileExtensions {
		patterns = append(patterns, "**"+ext)
	}
	return patterns
}
