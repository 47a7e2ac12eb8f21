package syntax

import (
	"fmt"
	"strings"
)

type SyntaxError struct {
	Start   Pos
	End     Pos
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Start.Line+1, e.Start.Col+1, e.Message)
}

type bailout struct{}

type parser struct {
	sc     *scanner
	tok    Token
	loaded bool
	errs   []SyntaxError
}

type parserState struct {
	sc     scanState
	tok    Token
	loaded bool
	nerrs  int
}

// Parse turns MTS source text into a tree. The tree is always returned;
// scripts that fail to parse keep whatever was recognized before the error.
func Parse(text string) (*Macro, []SyntaxError) {
	p := &parser{sc: newScanner(text)}
	macro := &Macro{Bits: p.parseBits(false)}
	macro.End = p.sc.pos
	return macro, p.errs
}

func (p *parser) save() parserState {
	return parserState{sc: p.sc.save(), tok: p.tok, loaded: p.loaded, nerrs: len(p.errs)}
}

func (p *parser) restore(st parserState) {
	p.sc.restore(st.sc)
	p.tok = st.tok
	p.loaded = st.loaded
	p.errs = p.errs[:st.nerrs]
}

func (p *parser) peek() Token {
	if !p.loaded {
		p.tok = p.sc.next()
		p.loaded = true
	}
	return p.tok
}

func (p *parser) take() Token {
	tok := p.peek()
	p.loaded = false
	return tok
}

func (p *parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *parser) atKeyword(words ...string) bool {
	tok := p.peek()
	if tok.Kind != TokenIdent {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(tok.Text, w) {
			return true
		}
	}
	return false
}

func (p *parser) accept(kind TokenKind) *Token {
	if !p.at(kind) {
		return nil
	}
	tok := p.take()
	return &tok
}

func (p *parser) expect(kind TokenKind, what string) Token {
	if !p.at(kind) {
		p.fail(fmt.Sprintf("expected %s", what))
	}
	return p.take()
}

func (p *parser) fail(msg string) {
	tok := p.peek()
	if tok.Kind == TokenEOF {
		msg += ", found end of input"
	} else {
		msg += fmt.Sprintf(", found '%s'", tok.Text)
	}
	p.errs = append(p.errs, SyntaxError{Start: tok.Start, End: tok.End, Message: msg})
	panic(bailout{})
}

func (p *parser) parseBits(inBlock bool) []Bit {
	bits := []Bit{}
	for {
		if text, ok := p.sc.scanText(inBlock); ok {
			bits = append(bits, &Text{Tok: text})
		}
		if p.sc.peekRune() != '[' {
			return bits
		}
		bits = append(bits, p.parseScript())
	}
}

func (p *parser) parseScript() (script *Script) {
	script = &Script{Open: p.take()}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.recoverTo(script)
		}
	}()

	if opts, ok := p.tryOptions(); ok {
		script.Options = opts
		colon := p.take()
		script.Colon = &colon
	}

	if !p.at(TokenRBracket) {
		script.Body = p.parseBody(script.Options)
	}

	if !p.at(TokenRBracket) {
		p.fail("expected ']'")
	}
	closeTok := p.take()
	script.Close = &closeTok
	return script
}

// recoverTo skips the remainder of a broken script so that text mode can
// resume after its closing bracket.
func (p *parser) recoverTo(script *Script) {
	for {
		tok := p.take()
		switch tok.Kind {
		case TokenRBracket:
			script.Close = &tok
			return
		case TokenEOF:
			return
		}
	}
}

// tryOptions parses `option, option, ... :`. When the script does not start
// with a roll option list the parser is rewound and ok is false.
func (p *parser) tryOptions() (opts []Option, ok bool) {
	st := p.save()
	defer func() {
		if r := recover(); r != nil {
			if _, isBail := r.(bailout); !isBail {
				panic(r)
			}
			p.restore(st)
			opts, ok = nil, false
		}
	}()

	for {
		if !p.at(TokenIdent) {
			p.restore(st)
			return nil, false
		}
		opts = append(opts, p.parseOption())
		if p.accept(TokenComma) != nil {
			continue
		}
		if p.at(TokenColon) {
			return opts, true
		}
		p.restore(st)
		return nil, false
	}
}

func (p *parser) parseOption() Option {
	name := p.take()
	lower := strings.ToLower(name.Text)

	if !p.at(TokenLParen) {
		if lower == "code" {
			return &CodeOption{Name: name}
		}
		return &SimpleOption{Name: name}
	}

	lparen := p.take()
	switch lower {
	case "for", "foreach":
		opt := &ForOption{Keyword: name, LParen: lparen}
		if !p.at(TokenRParen) {
			first := p.parseExpr()
			if atom, ok := first.(*Atom); ok && atom.Kind == AtomVariable {
				opt.Var = &Variable{Tok: atom.Tok}
			} else {
				opt.Invalid = first
			}
			for p.accept(TokenComma) != nil {
				opt.Args = append(opt.Args, p.parseExpr())
			}
		}
		rparen := p.expect(TokenRParen, "')'")
		opt.RParen = &rparen
		return opt
	case "if":
		opt := &IfOption{Keyword: name, LParen: lparen, Cond: p.parseExpr()}
		rparen := p.expect(TokenRParen, "')'")
		opt.RParen = &rparen
		return opt
	case "switch":
		opt := &SwitchOption{Keyword: name, LParen: lparen, Subject: p.parseExpr()}
		rparen := p.expect(TokenRParen, "')'")
		opt.RParen = &rparen
		return opt
	}

	opt := &FunctionOption{Name: name, LParen: lparen, Args: p.parseArgs()}
	rparen := p.expect(TokenRParen, "')'")
	opt.RParen = &rparen
	return opt
}

func (p *parser) parseBody(opts []Option) Body {
	var hasCode, hasIf, hasSwitch bool
	for _, opt := range opts {
		switch opt.(type) {
		case *CodeOption:
			hasCode = true
		case *IfOption:
			hasIf = true
		case *SwitchOption:
			hasSwitch = true
		}
	}

	switch {
	case hasIf:
		body := &IfBody{}
		if !p.at(TokenSemi) {
			body.True = p.parseBranch(hasCode)
		}
		body.Semi = p.accept(TokenSemi)
		if body.Semi != nil && !p.at(TokenRBracket) {
			body.False = p.parseBranch(hasCode)
		}
		return body
	case hasSwitch:
		return p.parseSwitchBody(hasCode)
	default:
		return p.parseBranch(hasCode)
	}
}

func (p *parser) parseBranch(code bool) Body {
	if code || p.at(TokenLBrace) {
		return &BlockBody{Block: p.parseBlock()}
	}
	return &StatementBody{Stmt: p.parseStatement()}
}

func (p *parser) parseSwitchBody(code bool) *SwitchBody {
	body := &SwitchBody{}
	for p.atKeyword("case") {
		c := &SwitchCase{Case: p.take()}
		c.Value = p.parseAtom()
		colon := p.expect(TokenColon, "':'")
		c.Colon = &colon
		c.Body = p.parseBranch(code)
		c.Semi = p.accept(TokenSemi)
		body.Cases = append(body.Cases, c)
	}
	if p.atKeyword("default") {
		dflt := p.take()
		body.Default = &dflt
		colon := p.expect(TokenColon, "':'")
		body.DefaultColon = &colon
		body.DefaultBody = p.parseBranch(code)
	}
	return body
}

func (p *parser) parseBlock() *Block {
	block := &Block{LBrace: p.expect(TokenLBrace, "'{'")}
	// the lookahead has not been consumed past '{', so text mode resumes here
	block.Bits = p.parseBits(true)
	rbrace := p.expect(TokenRBrace, "'}'")
	block.RBrace = &rbrace
	return block
}

func (p *parser) parseStatement() Statement {
	if p.at(TokenIdent) {
		st := p.save()
		target := p.take()
		if p.at(TokenAssign) {
			assign := p.take()
			return &Assignment{
				Target: &Variable{Tok: target},
				Assign: assign,
				Value:  p.parseExpr(),
			}
		}
		p.restore(st)
	}
	return &ExprStatement{X: p.parseExpr()}
}

func (p *parser) parseArgs() []Expr {
	args := []Expr{}
	if p.at(TokenRParen) {
		return args
	}
	args = append(args, p.parseExpr())
	for p.accept(TokenComma) != nil {
		args = append(args, p.parseExpr())
	}
	return args
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, ">": 3, "<=": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5,
	"^": 6,
}

func (p *parser) parseExpr() Expr {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Text]
		if tok.Kind != TokenOperator || !ok || prec < minPrec {
			return left
		}
		op := p.take()
		right := p.parseBinary(prec + 1)
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
}

func (p *parser) parseUnary() Expr {
	tok := p.peek()
	if tok.Kind == TokenOperator && (tok.Text == "-" || tok.Text == "!" || tok.Text == "+") {
		op := p.take()
		return &UnaryExpr{Op: op, X: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Expr {
	switch p.peek().Kind {
	case TokenLParen:
		e := &ParenExpr{LParen: p.take()}
		e.X = p.parseExpr()
		rparen := p.expect(TokenRParen, "')'")
		e.RParen = &rparen
		return e
	case TokenIdent:
		if p.atKeyword("true", "false") {
			return p.parseAtom()
		}
		name := p.take()
		if p.at(TokenLParen) {
			call := &FunctionCall{Name: &Variable{Tok: name}, LParen: p.take()}
			call.Args = p.parseArgs()
			rparen := p.expect(TokenRParen, "')'")
			call.RParen = &rparen
			return call
		}
		return &Atom{Kind: AtomVariable, Tok: name}
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() *Atom {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber:
		return &Atom{Kind: AtomNumber, Tok: p.take()}
	case TokenString:
		return &Atom{Kind: AtomString, Tok: p.take()}
	case TokenIdent:
		if p.atKeyword("true", "false") {
			return &Atom{Kind: AtomBoolean, Tok: p.take()}
		}
		return &Atom{Kind: AtomVariable, Tok: p.take()}
	}
	p.fail("expected expression")
	return nil
}
