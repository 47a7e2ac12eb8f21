package syntax

// Pos is a location in a document. Line and Col are zero based, Col and
// Offset are counted in UTF-16 code units.
type Pos struct {
	Line   int
	Col    int
	Offset int
}

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenText
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenComma
	TokenColon
	TokenSemi
	TokenAssign
	TokenOperator
	TokenNumber
	TokenString
	TokenIdent
	TokenIllegal
)

type Token struct {
	Kind  TokenKind
	Text  string
	Start Pos
	End   Pos
}

// Length returns the token length in UTF-16 code units.
func (t Token) Length() int {
	return t.End.Offset - t.Start.Offset
}

// Node is implemented by every tree node. The set of implementations is
// closed: only types in this package satisfy it.
type Node interface {
	Span() (Pos, Pos)
	node()
}

type Bit interface {
	Node
	bit()
}

type Option interface {
	Node
	option()
}

type Body interface {
	Node
	body()
}

type Statement interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Macro is the root of a parsed document.
type Macro struct {
	Bits []Bit
	End  Pos
}

// Text is literal output outside of any script.
type Text struct {
	Tok Token
}

// Script is a bracketed `[options: body]` unit.
type Script struct {
	Open    Token
	Options []Option
	Colon   *Token
	Body    Body
	Close   *Token
}

type SimpleOption struct {
	Name Token
}

// CodeOption is the `code` roll option which turns bodies into blocks.
type CodeOption struct {
	Name Token
}

type FunctionOption struct {
	Name   Token
	LParen Token
	Args   []Expr
	RParen *Token
}

// ForOption is a `for(...)` or `foreach(...)` loop option. The first
// argument is either a variable declaration (Var) or, when it is anything
// else, kept in Invalid. Args holds the remaining expressions.
type ForOption struct {
	Keyword Token
	LParen  Token
	Var     *Variable
	Invalid Expr
	Args    []Expr
	RParen  *Token
}

type IfOption struct {
	Keyword Token
	LParen  Token
	Cond    Expr
	RParen  *Token
}

type SwitchOption struct {
	Keyword Token
	LParen  Token
	Subject Expr
	RParen  *Token
}

type StatementBody struct {
	Stmt Statement
}

type BlockBody struct {
	Block *Block
}

type IfBody struct {
	True  Body
	Semi  *Token
	False Body
}

type SwitchBody struct {
	Cases        []*SwitchCase
	Default      *Token
	DefaultColon *Token
	DefaultBody  Body
}

type SwitchCase struct {
	Case  Token
	Value *Atom
	Colon *Token
	Body  Body
	Semi  *Token
}

type Block struct {
	LBrace Token
	Bits   []Bit
	RBrace *Token
}

type Assignment struct {
	Target *Variable
	Assign Token
	Value  Expr
}

type ExprStatement struct {
	X Expr
}

type BinaryExpr struct {
	Left  Expr
	Op    Token
	Right Expr
}

type UnaryExpr struct {
	Op Token
	X  Expr
}

type ParenExpr struct {
	LParen Token
	X      Expr
	RParen *Token
}

type FunctionCall struct {
	Name   *Variable
	LParen Token
	Args   []Expr
	RParen *Token
}

type AtomKind int

const (
	AtomVariable AtomKind = iota
	AtomNumber
	AtomString
	AtomBoolean
)

type Atom struct {
	Kind AtomKind
	Tok  Token
}

// Variable is a possibly dotted identifier such as `macro.args`.
type Variable struct {
	Tok Token
}

func (v *Variable) Name() string {
	return v.Tok.Text
}

func endOf(tok *Token, fallback Pos) Pos {
	if tok == nil {
		return fallback
	}
	return tok.End
}

func spanEnd(n Node, fallback Pos) Pos {
	if n == nil {
		return fallback
	}
	_, end := n.Span()
	return end
}

func (m *Macro) Span() (Pos, Pos) { return Pos{}, m.End }

func (t *Text) Span() (Pos, Pos) { return t.Tok.Start, t.Tok.End }

func (s *Script) Span() (Pos, Pos) {
	end := s.Open.End
	if s.Colon != nil {
		end = s.Colon.End
	}
	end = spanEnd(s.Body, end)
	return s.Open.Start, endOf(s.Close, end)
}

func (o *SimpleOption) Span() (Pos, Pos) { return o.Name.Start, o.Name.End }

func (o *CodeOption) Span() (Pos, Pos) { return o.Name.Start, o.Name.End }

func (o *FunctionOption) Span() (Pos, Pos) {
	return o.Name.Start, endOf(o.RParen, lastEnd(o.Args, o.LParen.End))
}

func (o *ForOption) Span() (Pos, Pos) {
	return o.Keyword.Start, endOf(o.RParen, lastEnd(o.Args, o.LParen.End))
}

func (o *IfOption) Span() (Pos, Pos) {
	return o.Keyword.Start, endOf(o.RParen, spanEnd(o.Cond, o.LParen.End))
}

func (o *SwitchOption) Span() (Pos, Pos) {
	return o.Keyword.Start, endOf(o.RParen, spanEnd(o.Subject, o.LParen.End))
}

func (b *StatementBody) Span() (Pos, Pos) { return b.Stmt.Span() }

func (b *BlockBody) Span() (Pos, Pos) { return b.Block.Span() }

func (b *IfBody) Span() (Pos, Pos) {
	var start, end Pos
	if b.True != nil {
		start, end = b.True.Span()
	} else if b.Semi != nil {
		start = b.Semi.Start
	}
	end = endOf(b.Semi, end)
	return start, spanEnd(b.False, end)
}

func (b *SwitchBody) Span() (Pos, Pos) {
	var start, end Pos
	if len(b.Cases) > 0 {
		start, _ = b.Cases[0].Span()
		_, end = b.Cases[len(b.Cases)-1].Span()
	} else if b.Default != nil {
		start = b.Default.Start
	}
	if b.Default != nil {
		end = b.Default.End
	}
	end = endOf(b.DefaultColon, end)
	return start, spanEnd(b.DefaultBody, end)
}

func (c *SwitchCase) Span() (Pos, Pos) {
	end := c.Case.End
	if c.Value != nil {
		end = c.Value.Tok.End
	}
	end = endOf(c.Colon, end)
	end = spanEnd(c.Body, end)
	return c.Case.Start, endOf(c.Semi, end)
}

func (b *Block) Span() (Pos, Pos) {
	end := b.LBrace.End
	if len(b.Bits) > 0 {
		_, end = b.Bits[len(b.Bits)-1].Span()
	}
	return b.LBrace.Start, endOf(b.RBrace, end)
}

func (a *Assignment) Span() (Pos, Pos) {
	return a.Target.Tok.Start, spanEnd(a.Value, a.Assign.End)
}

func (s *ExprStatement) Span() (Pos, Pos) { return s.X.Span() }

func (e *BinaryExpr) Span() (Pos, Pos) {
	start, _ := e.Left.Span()
	return start, spanEnd(e.Right, e.Op.End)
}

func (e *UnaryExpr) Span() (Pos, Pos) { return e.Op.Start, spanEnd(e.X, e.Op.End) }

func (e *ParenExpr) Span() (Pos, Pos) {
	return e.LParen.Start, endOf(e.RParen, spanEnd(e.X, e.LParen.End))
}

func (e *FunctionCall) Span() (Pos, Pos) {
	return e.Name.Tok.Start, endOf(e.RParen, lastEnd(e.Args, e.LParen.End))
}

func (a *Atom) Span() (Pos, Pos) { return a.Tok.Start, a.Tok.End }

func (v *Variable) Span() (Pos, Pos) { return v.Tok.Start, v.Tok.End }

func lastEnd(exprs []Expr, fallback Pos) Pos {
	if len(exprs) == 0 {
		return fallback
	}
	return spanEnd(exprs[len(exprs)-1], fallback)
}

func (*Macro) node()          {}
func (*Text) node()           {}
func (*Script) node()         {}
func (*SimpleOption) node()   {}
func (*CodeOption) node()     {}
func (*FunctionOption) node() {}
func (*ForOption) node()      {}
func (*IfOption) node()       {}
func (*SwitchOption) node()   {}
func (*StatementBody) node()  {}
func (*BlockBody) node()      {}
func (*IfBody) node()         {}
func (*SwitchBody) node()     {}
func (*SwitchCase) node()     {}
func (*Block) node()          {}
func (*Assignment) node()     {}
func (*ExprStatement) node()  {}
func (*BinaryExpr) node()     {}
func (*UnaryExpr) node()      {}
func (*ParenExpr) node()      {}
func (*FunctionCall) node()   {}
func (*Atom) node()           {}
func (*Variable) node()       {}

func (*Text) bit()   {}
func (*Script) bit() {}

func (*SimpleOption) option()   {}
func (*CodeOption) option()     {}
func (*FunctionOption) option() {}
func (*ForOption) option()      {}
func (*IfOption) option()       {}
func (*SwitchOption) option()   {}

func (*StatementBody) body() {}
func (*BlockBody) body()     {}
func (*IfBody) body()        {}
func (*SwitchBody) body()    {}

func (*Assignment) stmt()    {}
func (*ExprStatement) stmt() {}

func (*BinaryExpr) expr()   {}
func (*UnaryExpr) expr()    {}
func (*ParenExpr) expr()    {}
func (*FunctionCall) expr() {}
func (*Atom) expr()         {}
