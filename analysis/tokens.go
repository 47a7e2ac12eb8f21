package analysis

import (
	"github.com/Daedeross/maptool-script.vscode/server/syntax"
)

type TokenType uint32

// The order of these constants is the order of the legend sent to the
// client.
const (
	StringToken TokenType = iota
	KeywordToken
	ColonToken
	NumberToken
	RegexpToken
	OperatorToken
	FunctionToken
	VariableToken
)

var TokenTypes = []string{
	"string",
	"keyword",
	"colon",
	"number",
	"regexp",
	"operator",
	"function",
	"variable",
}

var TokenModifiers = []string{}

func (t TokenType) String() string {
	if int(t) < len(TokenTypes) {
		return TokenTypes[t]
	}
	return "unknown"
}

// Token is a classified source span. Tokens never span lines.
type Token struct {
	Line      uint32
	Char      uint32
	Length    uint32
	Type      TokenType
	Modifiers uint32
}

func newToken(tok syntax.Token, typ TokenType) (Token, bool) {
	if tok.Start.Line != tok.End.Line || tok.Length() <= 0 {
		return Token{}, false
	}
	return Token{
		Line:   uint32(tok.Start.Line),
		Char:   uint32(tok.Start.Col),
		Length: uint32(tok.Length()),
		Type:   typ,
	}, true
}

// EncodeTokens converts tokens, which must be sorted by position, into the
// relative five-integer form of textDocument/semanticTokens.
func EncodeTokens(tokens []Token) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32
	for _, t := range tokens {
		deltaLine := t.Line - prevLine
		deltaChar := t.Char
		if deltaLine == 0 {
			deltaChar = t.Char - prevChar
		}
		data = append(data, deltaLine, deltaChar, t.Length, uint32(t.Type), t.Modifiers)
		prevLine = t.Line
		prevChar = t.Char
	}
	return data
}
