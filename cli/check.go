package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/engine"
	"github.com/Daedeross/maptool-script.vscode/server/store"
	"github.com/Daedeross/maptool-script.vscode/server/textdoc"
	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	lsp "go.lsp.dev/protocol"
)

var severityColors = map[lsp.DiagnosticSeverity]lipgloss.Color{
	lsp.DiagnosticSeverityError:       lipgloss.Color("1"),
	lsp.DiagnosticSeverityWarning:     lipgloss.Color("3"),
	lsp.DiagnosticSeverityInformation: lipgloss.Color("4"),
	lsp.DiagnosticSeverityHint:        lipgloss.Color("4"),
}

type checkSummary struct {
	Files    int
	Errors   int
	Warnings int
}

type checker struct {
	engine    *engine.Engine
	settings  config.Settings
	documents *textdoc.Documents
	includes  []glob.Glob
	styles    map[lsp.DiagnosticSeverity]lipgloss.Style
}

func newChecker(eng *engine.Engine, settings config.Settings, patterns []string) (*checker, error) {
	includes := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid include pattern %q", pattern)
		}
		includes = append(includes, g)
	}

	return &checker{
		engine:    eng,
		settings:  settings,
		documents: textdoc.NewDocuments(nil),
		includes:  includes,
	}, nil
}

// useColor styles severity labels with renderer. Without it the output is
// plain text.
func (c *checker) useColor(renderer *lipgloss.Renderer) {
	c.styles = make(map[lsp.DiagnosticSeverity]lipgloss.Style, len(severityColors))
	for severity, color := range severityColors {
		c.styles[severity] = renderer.NewStyle().Foreground(color).Bold(severity == lsp.DiagnosticSeverityError)
	}
}

func (c *checker) included(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, g := range c.includes {
		if g.Match(slashed) {
			return true
		}
	}
	return false
}

// collect expands directories into the included files below them. Files
// named explicitly are always checked.
func (c *checker) collect(paths []string) ([]string, error) {
	files := []string{}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !c.included(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Check analyzes every file and prints its diagnostics to w, one per line.
// All files are analyzed before printing so that user defined functions
// resolve across files.
func (c *checker) Check(w io.Writer, paths []string) (checkSummary, error) {
	summary := checkSummary{}

	files, err := c.collect(paths)
	if err != nil {
		return summary, err
	}

	docs := make([]*textdoc.Document, 0, len(files))
	for _, path := range files {
		doc, err := c.documents.Load(path, store.LANGUAGE_ID)
		if err != nil {
			return summary, err
		}
		if _, err := c.engine.AnalyzeDocument(doc, c.settings); err != nil {
			return summary, err
		}
		docs = append(docs, doc)
	}

	for i, doc := range docs {
		// analyze again now that every file contributed its defines
		result, err := c.engine.AnalyzeDocument(doc, c.settings)
		if err != nil {
			return summary, err
		}

		summary.Files++
		for _, diag := range result.Diagnostics {
			switch diag.Severity {
			case lsp.DiagnosticSeverityError:
				summary.Errors++
			case lsp.DiagnosticSeverityWarning:
				summary.Warnings++
			}
			fmt.Fprintln(w, c.format(files[i], diag))
		}
	}
	return summary, nil
}

func (c *checker) format(path string, diag lsp.Diagnostic) string {
	severity := severityName(diag.Severity)
	if style, ok := c.styles[diag.Severity]; ok {
		severity = style.Render(severity)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, diag.Range.Start.Line+1, diag.Range.Start.Character+1, severity, diag.Message)
}

func severityName(s lsp.DiagnosticSeverity) string {
	switch s {
	case lsp.DiagnosticSeverityError:
		return "error"
	case lsp.DiagnosticSeverityWarning:
		return "warning"
	case lsp.DiagnosticSeverityInformation:
		return "info"
	default:
		return "hint"
	}
}

// listCatalog prints the built-ins whose name starts with prefix together
// with the number of arguments they accept.
func listCatalog(w io.Writer, eng *engine.Engine, prefix string) {
	for _, rec := range eng.Index.Search(prefix) {
		if !rec.Builtin {
			continue
		}

		kind, label := builtins.FunctionKind, "function"
		if rec.Kind == analysis.RollOptionSym {
			kind, label = builtins.RollOptionKind, "roll option"
		}
		def, ok := eng.Registry.Lookup(kind, rec.Name)
		if !ok {
			continue
		}

		line := fmt.Sprintf("%-20s %-12s %s", rec.Name, label, def.Arity())
		if def.Name != rec.Name {
			line += " (alias of " + def.Name + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
