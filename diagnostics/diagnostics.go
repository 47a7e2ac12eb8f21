package diagnostics

import (
	"fmt"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/workspace"
	lsp "go.lsp.dev/protocol"
)

const SOURCE = "mts"

// Positioner converts UTF-16 offsets of a document into positions.
type Positioner interface {
	PositionAt(offset int) lsp.Position
}

type Synthesizer struct {
	registry *builtins.Registry
}

func NewSynthesizer(registry *builtins.Registry) *Synthesizer {
	return &Synthesizer{registry: registry}
}

// Arity checks the argument count of every call that resolves to a
// built-in function. Calls to anything else are left alone.
func (s *Synthesizer) Arity(refs []workspace.SymbolRef) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	for _, ref := range refs {
		if ref.Kind != analysis.FunctionSym || !ref.HasArgs {
			continue
		}
		def, ok := s.registry.Function(ref.Name())
		if !ok {
			continue
		}

		arity := def.Arity()
		if arity.Accepts(ref.ArgCount) {
			continue
		}

		msg := fmt.Sprintf("Built-in function '%s' requires at most %d arguments.", def.Name, arity.Max)
		if ref.ArgCount < arity.Min {
			msg = fmt.Sprintf("Built-in function '%s' requires at least %d arguments.", def.Name, arity.Min)
		}

		diags = append(diags, lsp.Diagnostic{
			Range:    ref.Range,
			Severity: lsp.DiagnosticSeverityError,
			Source:   SOURCE,
			Message:  msg,
		})
	}
	return diags
}

// Variables reports reads that happen before the first assignment of a
// variable. existing is the number of diagnostics already reported for the
// document; once the running count exceeds maxProblems no further reads are
// checked.
func Variables(vars *analysis.Vars, pos Positioner, existing, maxProblems int) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	count := existing
	for _, name := range vars.Names() {
		usage, ok := vars.Usage(name)
		if !ok {
			continue
		}
		earliest := usage.EarliestSet()
		for _, get := range usage.Gets {
			if get.Offset >= earliest {
				continue
			}
			if count > maxProblems {
				return diags
			}
			diags = append(diags, lsp.Diagnostic{
				Range: lsp.Range{
					Start: pos.PositionAt(get.Offset),
					End:   pos.PositionAt(get.Offset + get.Length),
				},
				Severity: lsp.DiagnosticSeverityWarning,
				Source:   SOURCE,
				Message:  fmt.Sprintf("%s is not yet assigned.", name),
			})
			count++
		}
	}
	return diags
}

// Synthesize puts together every diagnostic of a document: structural ones
// first, then call arity, then the capped variable warnings.
func (s *Synthesizer) Synthesize(structural []lsp.Diagnostic, refs []workspace.SymbolRef, vars *analysis.Vars, pos Positioner, maxProblems int) []lsp.Diagnostic {
	diags := make([]lsp.Diagnostic, 0, len(structural))
	diags = append(diags, structural...)
	diags = append(diags, s.Arity(refs)...)
	diags = append(diags, Variables(vars, pos, len(diags), maxProblems)...)
	return diags
}
