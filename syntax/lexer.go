package syntax

import (
	"unicode"
	"unicode/utf16"
)

const eof = -1

// scanner produces tokens in one of two modes: text mode (everything up to
// the next script bracket) and script mode (punctuation, literals and
// identifiers). The parser decides which mode to use.
type scanner struct {
	src []rune
	i   int
	pos Pos
}

type scanState struct {
	i   int
	pos Pos
}

func newScanner(text string) *scanner {
	return &scanner{src: []rune(text)}
}

func (s *scanner) save() scanState {
	return scanState{i: s.i, pos: s.pos}
}

func (s *scanner) restore(st scanState) {
	s.i = st.i
	s.pos = st.pos
}

func (s *scanner) peekRune() rune {
	if s.i >= len(s.src) {
		return eof
	}
	return s.src[s.i]
}

func (s *scanner) peekRuneAt(n int) rune {
	if s.i+n >= len(s.src) {
		return eof
	}
	return s.src[s.i+n]
}

func (s *scanner) advance() rune {
	r := s.src[s.i]
	s.i++
	width := utf16.RuneLen(r)
	if width < 0 {
		width = 1
	}
	if r == '\n' {
		s.pos.Line++
		s.pos.Col = 0
	} else {
		s.pos.Col += width
	}
	s.pos.Offset += width
	return r
}

func (s *scanner) token(kind TokenKind, start Pos, from int) Token {
	return Token{
		Kind:  kind,
		Text:  string(s.src[from:s.i]),
		Start: start,
		End:   s.pos,
	}
}

// scanText consumes literal text up to the next '[' (or '}' inside a code
// block). ok is false when no text was consumed.
func (s *scanner) scanText(inBlock bool) (tok Token, ok bool) {
	start, from := s.pos, s.i
	for {
		r := s.peekRune()
		if r == eof || r == '[' || (inBlock && r == '}') {
			break
		}
		s.advance()
	}
	if s.i == from {
		return Token{}, false
	}
	return s.token(TokenText, start, from), true
}

func (s *scanner) skipSpace() {
	for {
		r := s.peekRune()
		if r == eof || !unicode.IsSpace(r) {
			return
		}
		s.advance()
	}
}

// next scans one script-mode token.
func (s *scanner) next() Token {
	s.skipSpace()
	start, from := s.pos, s.i

	r := s.peekRune()
	if r == eof {
		return Token{Kind: TokenEOF, Start: start, End: start}
	}

	s.advance()
	switch r {
	case '[':
		return s.token(TokenLBracket, start, from)
	case ']':
		return s.token(TokenRBracket, start, from)
	case '{':
		return s.token(TokenLBrace, start, from)
	case '}':
		return s.token(TokenRBrace, start, from)
	case '(':
		return s.token(TokenLParen, start, from)
	case ')':
		return s.token(TokenRParen, start, from)
	case ',':
		return s.token(TokenComma, start, from)
	case ':':
		return s.token(TokenColon, start, from)
	case ';':
		return s.token(TokenSemi, start, from)
	case '=':
		if s.peekRune() == '=' {
			s.advance()
			return s.token(TokenOperator, start, from)
		}
		return s.token(TokenAssign, start, from)
	case '!', '<', '>':
		if s.peekRune() == '=' {
			s.advance()
		}
		return s.token(TokenOperator, start, from)
	case '&', '|':
		if s.peekRune() == r {
			s.advance()
			return s.token(TokenOperator, start, from)
		}
		return s.token(TokenIllegal, start, from)
	case '+', '-', '*', '/', '^':
		return s.token(TokenOperator, start, from)
	case '"', '\'':
		for {
			c := s.peekRune()
			if c == eof {
				break
			}
			s.advance()
			if c == '\\' && s.peekRune() != eof {
				s.advance()
				continue
			}
			if c == r {
				break
			}
		}
		return s.token(TokenString, start, from)
	}

	if isDigit(r) {
		s.scanDigits()
		if s.peekRune() == '.' && isDigit(s.peekRuneAt(1)) {
			s.advance()
			s.scanDigits()
		} else if (s.peekRune() == 'd' || s.peekRune() == 'D') && isDigit(s.peekRuneAt(1)) {
			// dice expression such as 2d6
			s.advance()
			s.scanDigits()
		}
		return s.token(TokenNumber, start, from)
	}

	if isIdentStart(r) {
		for {
			c := s.peekRune()
			if c == '.' && isIdentStart(s.peekRuneAt(1)) {
				s.advance()
				continue
			}
			if c == eof || !isIdentPart(c) {
				break
			}
			s.advance()
		}
		return s.token(TokenIdent, start, from)
	}

	return s.token(TokenIllegal, start, from)
}

func (s *scanner) scanDigits() {
	for isDigit(s.peekRune()) {
		s.advance()
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
