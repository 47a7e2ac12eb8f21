package engine

import (
	"fmt"
	"time"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/diagnostics"
	"github.com/Daedeross/maptool-script.vscode/server/metrics"
	"github.com/Daedeross/maptool-script.vscode/server/store"
	"github.com/Daedeross/maptool-script.vscode/server/syntax"
	"github.com/Daedeross/maptool-script.vscode/server/textdoc"
	"github.com/Daedeross/maptool-script.vscode/server/workspace"
	"github.com/pkg/errors"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

const SOURCE_SYNTAX = "mts:syntax"

// Engine runs the analysis pipeline and owns the state shared between
// documents. It is not safe for concurrent use.
type Engine struct {
	Registry *builtins.Registry
	Index    *workspace.Index
	Sessions *store.Store

	analyzer    *analysis.Analyzer
	synthesizer *diagnostics.Synthesizer
	logger      *zap.Logger
}

func New(registry *builtins.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	index := workspace.NewIndex(logger)
	index.SeedBuiltins(registry)
	metrics.IndexedSymbols.Set(float64(index.Len()))

	return &Engine{
		Registry:    registry,
		Index:       index,
		Sessions:    store.NewStore(),
		analyzer:    analysis.NewAnalyzer(logger),
		synthesizer: diagnostics.NewSynthesizer(registry),
		logger:      logger.Named("engine"),
	}
}

// Default builds an engine over the embedded built-in catalog.
func Default(logger *zap.Logger) (*Engine, error) {
	registry, err := builtins.DefaultRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "load built-ins")
	}
	return New(registry, logger), nil
}

// AnalyzeDocument analyzes the current text of doc, merges its symbols into
// the workspace index and stores the result, replacing any previous one.
func (e *Engine) AnalyzeDocument(doc *textdoc.Document, settings config.Settings) (result *store.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analysis panicked", zap.String("uri", string(doc.URI)), zap.Any("panic", r))
			result, err = nil, fmt.Errorf("analysis of %s failed: %v", doc.URI, r)
		}
	}()

	start := time.Now()
	macro, syntaxErrs := syntax.Parse(doc.Text())
	metrics.ObserveStage(metrics.STAGE_PARSE, start)

	start = time.Now()
	res := e.analyzer.Analyze(macro)
	metrics.ObserveStage(metrics.STAGE_WALK, start)

	start = time.Now()
	refs := e.Index.Update(doc.URI, res.Symbols)
	e.Index.UpdateDefines(doc.URI, res.Defines)
	metrics.ObserveStage(metrics.STAGE_INDEX, start)

	start = time.Now()
	structural := make([]lsp.Diagnostic, 0, len(syntaxErrs)+len(res.Diagnostics))
	for _, se := range syntaxErrs {
		structural = append(structural, syntaxDiagnostic(se))
	}
	structural = append(structural, res.Diagnostics...)
	diags := e.synthesizer.Synthesize(structural, refs, res.Vars, doc, settings.MaxNumberOfProblems)
	metrics.ObserveStage(metrics.STAGE_DIAGNOSE, start)

	result = &store.Document{
		URI:         doc.URI,
		Version:     doc.Version,
		Tokens:      res.Tokens,
		Data:        analysis.EncodeTokens(res.Tokens),
		Diagnostics: diags,
		Vars:        res.Vars,
		Symbols:     refs,
		Defines:     res.Defines,
	}
	e.Sessions.Put(result)

	for _, d := range diags {
		metrics.DiagnosticsTotal.WithLabelValues(severityLabel(d.Severity)).Inc()
	}
	metrics.OpenDocuments.Set(float64(e.Sessions.Len()))
	metrics.IndexedSymbols.Set(float64(e.Index.Len()))

	e.logger.Debug("analyzed document",
		zap.String("uri", string(doc.URI)),
		zap.Int32("version", doc.Version),
		zap.Int("symbols", len(refs)),
		zap.Int("diagnostics", len(diags)))
	return result, nil
}

// Close forgets a document. It returns false when nothing was stored for it.
func (e *Engine) Close(u uri.URI) bool {
	ok := e.Sessions.Delete(u)
	e.Index.Remove(u)

	metrics.OpenDocuments.Set(float64(e.Sessions.Len()))
	metrics.IndexedSymbols.Set(float64(e.Index.Len()))
	return ok
}

func syntaxDiagnostic(se syntax.SyntaxError) lsp.Diagnostic {
	return lsp.Diagnostic{
		Range: lsp.Range{
			Start: lsp.Position{Line: uint32(se.Start.Line), Character: uint32(se.Start.Col)},
			End:   lsp.Position{Line: uint32(se.End.Line), Character: uint32(se.End.Col)},
		},
		Severity: lsp.DiagnosticSeverityError,
		Source:   SOURCE_SYNTAX,
		Message:  se.Message,
	}
}

func severityLabel(s lsp.DiagnosticSeverity) string {
	switch s {
	case lsp.DiagnosticSeverityError:
		return "error"
	case lsp.DiagnosticSeverityWarning:
		return "warning"
	case lsp.DiagnosticSeverityInformation:
		return "information"
	default:
		return "hint"
	}
}
