package analysis

import (
	"fmt"
	"strings"

	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/syntax"
	lsp "go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const (
	SOURCE_FOR_LOOP     = "mts:for_loop"
	SOURCE_FOREACH_LOOP = "mts:foreach_loop"
)

const DEFINE_FUNCTION = "defineFunction"

// Define is a `defineFunction("name", ...)` call site together with the
// documentation found in the text right before the script.
type Define struct {
	Name      string
	Range     lsp.Range
	Doc       builtins.InlineDoc
	DocStatus builtins.DocStatus
}

type Result struct {
	Tokens      []Token
	Symbols     []FoundSymbol
	Vars        *Vars
	Diagnostics []lsp.Diagnostic
	Defines     []Define
}

type Analyzer struct {
	logger *zap.Logger
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger.Named("analyzer")}
}

// Analyze walks the tree once. It does not modify the tree and the result
// only depends on the tree.
func (a *Analyzer) Analyze(macro *syntax.Macro) *Result {
	w := &walker{
		logger: a.logger,
		result: &Result{
			Tokens:      []Token{},
			Symbols:     []FoundSymbol{},
			Vars:        NewVars(),
			Diagnostics: []lsp.Diagnostic{},
			Defines:     []Define{},
		},
	}
	w.walk(macro)

	slices.SortStableFunc(w.result.Tokens, func(a, b Token) int {
		if a.Line != b.Line {
			return int(a.Line) - int(b.Line)
		}
		return int(a.Char) - int(b.Char)
	})
	slices.SortStableFunc(w.result.Symbols, func(a, b FoundSymbol) int {
		return ComparePositions(a.Range.Start, b.Range.Start)
	})
	return w.result
}

type walker struct {
	logger *zap.Logger
	result *Result
	// text of the last Text bit seen before the current script
	lastText string
}

func (w *walker) token(tok syntax.Token, typ TokenType) {
	if t, ok := newToken(tok, typ); ok {
		w.result.Tokens = append(w.result.Tokens, t)
	}
}

func (w *walker) optToken(tok *syntax.Token, typ TokenType) {
	if tok != nil {
		w.token(*tok, typ)
	}
}

func (w *walker) symbol(name string, kind SymbolKind, rng lsp.Range) {
	w.result.Symbols = append(w.result.Symbols, FoundSymbol{Name: name, Kind: kind, Range: rng})
}

func (w *walker) call(name string, kind SymbolKind, rng lsp.Range, args int) {
	w.result.Symbols = append(w.result.Symbols, FoundSymbol{
		Name:     name,
		Kind:     kind,
		Range:    rng,
		ArgCount: args,
		HasArgs:  true,
	})
}

func (w *walker) setVar(v *syntax.Variable) {
	w.token(v.Tok, VariableToken)
	w.result.Vars.Set(v.Name(), v.Tok.Start.Offset)
	w.symbol(v.Name(), VariableSym, tokenRange(v.Tok))
}

func (w *walker) walkExprs(exprs []syntax.Expr) {
	for _, e := range exprs {
		w.walk(e)
	}
}

func (w *walker) walk(node syntax.Node) {
	switch n := node.(type) {
	case nil:
		return
	case *syntax.Macro:
		for _, bit := range n.Bits {
			w.walk(bit)
		}
	case *syntax.Text:
		w.lastText = n.Tok.Text
	case *syntax.Script:
		for _, opt := range n.Options {
			w.walk(opt)
		}
		w.optToken(n.Colon, ColonToken)
		if n.Body != nil {
			w.walk(n.Body)
		}
		w.lastText = ""
	case *syntax.SimpleOption:
		w.token(n.Name, KeywordToken)
		w.symbol(n.Name.Text, RollOptionSym, tokenRange(n.Name))
	case *syntax.CodeOption:
		w.token(n.Name, KeywordToken)
		w.symbol(n.Name.Text, RollOptionSym, tokenRange(n.Name))
	case *syntax.FunctionOption:
		w.token(n.Name, KeywordToken)
		w.call(n.Name.Text, RollOptionSym, tokenRange(n.Name), len(n.Args))
		w.walkExprs(n.Args)
	case *syntax.ForOption:
		w.forOption(n)
	case *syntax.IfOption:
		w.token(n.Keyword, KeywordToken)
		w.call(n.Keyword.Text, RollOptionSym, tokenRange(n.Keyword), 1)
		if n.Cond != nil {
			w.walk(n.Cond)
		}
	case *syntax.SwitchOption:
		w.token(n.Keyword, KeywordToken)
		w.call(n.Keyword.Text, RollOptionSym, tokenRange(n.Keyword), 1)
		if n.Subject != nil {
			w.walk(n.Subject)
		}
	case *syntax.StatementBody:
		w.walk(n.Stmt)
	case *syntax.BlockBody:
		w.walk(n.Block)
	case *syntax.Block:
		for _, bit := range n.Bits {
			w.walk(bit)
		}
	case *syntax.IfBody:
		if n.True != nil {
			w.walk(n.True)
		}
		w.optToken(n.Semi, ColonToken)
		if n.False != nil {
			w.walk(n.False)
		}
	case *syntax.SwitchBody:
		for _, c := range n.Cases {
			w.walk(c)
		}
		if n.Default != nil {
			w.token(*n.Default, KeywordToken)
		}
		w.optToken(n.DefaultColon, ColonToken)
		if n.DefaultBody != nil {
			w.walk(n.DefaultBody)
		}
	case *syntax.SwitchCase:
		w.token(n.Case, KeywordToken)
		if n.Value != nil {
			w.walk(n.Value)
		}
		w.optToken(n.Colon, ColonToken)
		if n.Body != nil {
			w.walk(n.Body)
		}
		w.optToken(n.Semi, ColonToken)
	case *syntax.Assignment:
		w.setVar(n.Target)
		w.token(n.Assign, OperatorToken)
		if n.Value != nil {
			w.walk(n.Value)
		}
	case *syntax.ExprStatement:
		w.walk(n.X)
	case *syntax.BinaryExpr:
		w.walk(n.Left)
		w.token(n.Op, OperatorToken)
		if n.Right != nil {
			w.walk(n.Right)
		}
	case *syntax.UnaryExpr:
		w.token(n.Op, OperatorToken)
		w.walk(n.X)
	case *syntax.ParenExpr:
		w.walk(n.X)
	case *syntax.FunctionCall:
		w.token(n.Name.Tok, FunctionToken)
		w.call(n.Name.Name(), FunctionSym, tokenRange(n.Name.Tok), len(n.Args))
		w.walkExprs(n.Args)
		if n.Name.Name() == DEFINE_FUNCTION {
			w.define(n)
		}
	case *syntax.Atom:
		w.atom(n)
	case *syntax.Variable:
		w.token(n.Tok, VariableToken)
	default:
		w.logger.Warn("unhandled node", zap.String("type", fmt.Sprintf("%T", node)))
	}
}

func (w *walker) atom(n *syntax.Atom) {
	switch n.Kind {
	case syntax.AtomVariable:
		w.token(n.Tok, VariableToken)
		w.result.Vars.Get(n.Tok.Text, n.Tok.Start.Offset, n.Tok.Length())
		w.symbol(n.Tok.Text, VariableSym, tokenRange(n.Tok))
	case syntax.AtomNumber:
		w.token(n.Tok, NumberToken)
	case syntax.AtomString:
		w.token(n.Tok, StringToken)
	case syntax.AtomBoolean:
		w.token(n.Tok, KeywordToken)
	}
}

// forOption validates the argument list of for/foreach. The loop variable
// counts toward the total, an invalid first argument does not.
func (w *walker) forOption(n *syntax.ForOption) {
	w.token(n.Keyword, KeywordToken)

	count := len(n.Args)
	if n.Var != nil {
		count++
	}
	w.call(n.Keyword.Text, RollOptionSym, tokenRange(n.Keyword), count)

	if n.Var != nil {
		w.setVar(n.Var)
	} else if n.Invalid != nil {
		start, end := n.Invalid.Span()
		w.result.Diagnostics = append(w.result.Diagnostics, lsp.Diagnostic{
			Range:    toRange(start, end),
			Severity: lsp.DiagnosticSeverityError,
			Source:   SOURCE_FOR_LOOP,
			Message: fmt.Sprintf(
				"The first argument to a for/foreach loop must be a variable declaration, found '%s' instead.",
				sourceText(n.Invalid),
			),
		})
		w.walk(n.Invalid)
	}
	w.walkExprs(n.Args)

	var minArgs, maxArgs int
	var source string
	switch strings.ToLower(n.Keyword.Text) {
	case "for":
		minArgs, maxArgs, source = 3, 5, SOURCE_FOR_LOOP
	case "foreach":
		minArgs, maxArgs, source = 3, 4, SOURCE_FOREACH_LOOP
	default:
		w.logger.Warn("unknown loop keyword", zap.String("keyword", n.Keyword.Text))
		return
	}

	if count >= minArgs && count <= maxArgs {
		return
	}

	end := n.LParen.End
	if len(n.Args) > 0 {
		_, end = n.Args[len(n.Args)-1].Span()
	}
	if n.RParen != nil {
		end = n.RParen.Start
	}
	w.result.Diagnostics = append(w.result.Diagnostics, lsp.Diagnostic{
		Range:    toRange(n.LParen.Start, end),
		Severity: lsp.DiagnosticSeverityError,
		Source:   source,
		Message: fmt.Sprintf(
			"Invalid number of arguments in '%s' statement. Expected %d-%d arguments.",
			strings.ToLower(n.Keyword.Text), minArgs, maxArgs,
		),
	})
}

func (w *walker) define(call *syntax.FunctionCall) {
	if len(call.Args) == 0 {
		return
	}
	atom, ok := call.Args[0].(*syntax.Atom)
	if !ok || atom.Kind != syntax.AtomString {
		return
	}
	name := unquote(atom.Tok.Text)
	if len(name) == 0 {
		return
	}

	doc, status := builtins.ParseInlineDoc(w.lastText)
	w.result.Defines = append(w.result.Defines, Define{
		Name:      name,
		Range:     tokenRange(atom.Tok),
		Doc:       doc,
		DocStatus: status,
	})
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// sourceText rebuilds the text of an expression from its tokens.
func sourceText(e syntax.Expr) string {
	var sb strings.Builder
	var write func(n syntax.Node)
	write = func(n syntax.Node) {
		switch n := n.(type) {
		case *syntax.BinaryExpr:
			write(n.Left)
			sb.WriteString(" " + n.Op.Text + " ")
			if n.Right != nil {
				write(n.Right)
			}
		case *syntax.UnaryExpr:
			sb.WriteString(n.Op.Text)
			write(n.X)
		case *syntax.ParenExpr:
			sb.WriteString("(")
			write(n.X)
			sb.WriteString(")")
		case *syntax.FunctionCall:
			sb.WriteString(n.Name.Name() + "(")
			for i, arg := range n.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				write(arg)
			}
			sb.WriteString(")")
		case *syntax.Atom:
			sb.WriteString(n.Tok.Text)
		}
	}
	write(e)
	return sb.String()
}
