package analysis

import (
	"github.com/Daedeross/maptool-script.vscode/server/syntax"
	lsp "go.lsp.dev/protocol"
)

type SymbolKind int

const (
	UnknownSym SymbolKind = iota
	FunctionSym
	RollOptionSym
	VariableSym
)

func (k SymbolKind) String() string {
	switch k {
	case FunctionSym:
		return "function"
	case RollOptionSym:
		return "rollOption"
	case VariableSym:
		return "variable"
	default:
		return "unknown"
	}
}

// FoundSymbol is one occurrence of a name discovered while walking a
// document. ArgCount is only meaningful when HasArgs is set.
type FoundSymbol struct {
	Name     string
	Kind     SymbolKind
	Range    lsp.Range
	ArgCount int
	HasArgs  bool
}

func toPosition(p syntax.Pos) lsp.Position {
	return lsp.Position{Line: uint32(p.Line), Character: uint32(p.Col)}
}

func toRange(start, end syntax.Pos) lsp.Range {
	return lsp.Range{Start: toPosition(start), End: toPosition(end)}
}

func tokenRange(tok syntax.Token) lsp.Range {
	return toRange(tok.Start, tok.End)
}

// ComparePositions orders positions by line, then character.
func ComparePositions(a, b lsp.Position) int {
	if a.Line != b.Line {
		if a.Line < b.Line {
			return -1
		}
		return 1
	}
	if a.Character != b.Character {
		if a.Character < b.Character {
			return -1
		}
		return 1
	}
	return 0
}
