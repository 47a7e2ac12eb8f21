package engine

import (
	"fmt"
	"strings"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/metrics"
	"github.com/Daedeross/maptool-script.vscode/server/textdoc"
	"github.com/Daedeross/maptool-script.vscode/server/workspace"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Hover describes the symbol under pos using the last stored analysis of
// the document.
func (e *Engine) Hover(u uri.URI, pos lsp.Position, settings config.Settings) (*lsp.Hover, bool) {
	doc, ok := e.Sessions.Get(u)
	if !ok {
		return nil, false
	}
	ref, ok := doc.SymbolAt(pos)
	if !ok {
		return nil, false
	}

	var value string
	switch ref.Kind {
	case analysis.FunctionSym:
		def, ok := e.definition(ref.Name())
		if !ok {
			return nil, false
		}
		value = def.Hover(settings.WikiURIRoot)
	case analysis.RollOptionSym:
		def, ok := e.Registry.RollOption(strings.ToLower(ref.Name()))
		if !ok {
			return nil, false
		}
		value = def.Hover(settings.WikiURIRoot)
	case analysis.VariableSym:
		value = variableHover(ref, doc.Vars)
	default:
		return nil, false
	}

	rng := ref.Range
	return &lsp.Hover{
		Contents: lsp.MarkupContent{Kind: lsp.Markdown, Value: value},
		Range:    &rng,
	}, true
}

// definition looks a function up among the built-ins first, then among the
// documented user defined functions.
func (e *Engine) definition(name string) (*builtins.Definition, bool) {
	if def, ok := e.Registry.Function(name); ok {
		return def, true
	}
	return e.Index.UserDefinition(name)
}

func variableHover(ref workspace.SymbolRef, vars *analysis.Vars) string {
	value := fmt.Sprintf("#### *variable* **%s**", ref.Name())
	if vars == nil {
		return value
	}
	usage, ok := vars.Usage(ref.Name())
	if !ok {
		return value
	}
	if ref.Name() == analysis.MacroArgs {
		return value + "\n\nArguments passed to the macro."
	}
	if len(usage.Sets) == 0 {
		return value + "\n\nNever assigned in this document."
	}
	return value + fmt.Sprintf("\n\nAssigned %d time(s), read %d time(s).", len(usage.Sets), len(usage.Gets))
}

// Complete offers workspace symbols matching the word before pos.
func (e *Engine) Complete(doc *textdoc.Document, pos lsp.Position, settings config.Settings) []lsp.CompletionItem {
	metrics.CompletionRequestsTotal.Inc()

	word := doc.WordBefore(pos)
	replace := lsp.Range{
		Start: lsp.Position{Line: pos.Line, Character: pos.Character - uint32(len(word))},
		End:   pos,
	}

	records := e.Index.Complete(word, settings.FuzzyCompletion)
	items := make([]lsp.CompletionItem, 0, len(records))
	for _, rec := range records {
		items = append(items, e.completionItem(rec, replace, settings))
	}
	return items
}

func (e *Engine) completionItem(rec *workspace.Record, replace lsp.Range, settings config.Settings) lsp.CompletionItem {
	item := lsp.CompletionItem{
		Label: rec.Name,
		Kind:  completionKind(rec.Kind),
		TextEdit: &lsp.TextEdit{
			Range:   replace,
			NewText: rec.Name,
		},
	}

	switch rec.Kind {
	case analysis.FunctionSym:
		item.TextEdit.NewText = rec.Name + "()"
		item.Command = &lsp.Command{
			Title:     "cursorMove",
			Command:   "cursorMove",
			Arguments: []interface{}{map[string]string{"to": "left"}},
		}
		if def, ok := e.definition(rec.Name); ok {
			usage, _ := def.LastUsage()
			item.Detail = builtins.Signature(usage)
			item.Documentation = lsp.MarkupContent{Kind: lsp.Markdown, Value: def.Hover(settings.WikiURIRoot)}
		}
	case analysis.RollOptionSym:
		if def, ok := e.Registry.RollOption(rec.Name); ok {
			item.Documentation = lsp.MarkupContent{Kind: lsp.Markdown, Value: def.Hover(settings.WikiURIRoot)}
		}
	}
	return item
}

func completionKind(kind analysis.SymbolKind) lsp.CompletionItemKind {
	switch kind {
	case analysis.FunctionSym:
		return lsp.CompletionItemKindFunction
	case analysis.RollOptionSym:
		return lsp.CompletionItemKindKeyword
	case analysis.VariableSym:
		return lsp.CompletionItemKindVariable
	default:
		return lsp.CompletionItemKindText
	}
}
