package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseScript(t *testing.T, src string) *Script {
	t.Helper()
	macro, errs := Parse(src)
	require.Empty(t, errs)
	for _, bit := range macro.Bits {
		if script, ok := bit.(*Script); ok {
			return script
		}
	}
	t.Fatalf("no script in %q", src)
	return nil
}

func TestParseTextAndScripts(t *testing.T) {
	macro, errs := Parse("Hello [h: x = 1] world")
	require.Empty(t, errs)
	require.Len(t, macro.Bits, 3)

	text, ok := macro.Bits[0].(*Text)
	require.True(t, ok)
	assert.Equal(t, "Hello ", text.Tok.Text)

	script, ok := macro.Bits[1].(*Script)
	require.True(t, ok)
	require.Len(t, script.Options, 1)
	assert.IsType(t, &SimpleOption{}, script.Options[0])
	require.NotNil(t, script.Colon)
	require.NotNil(t, script.Close)

	body, ok := script.Body.(*StatementBody)
	require.True(t, ok)
	assign, ok := body.Stmt.(*Assignment)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Target.Name())
	assert.Equal(t, Pos{Line: 0, Col: 10, Offset: 10}, assign.Target.Tok.Start)

	_, end := macro.Span()
	assert.Equal(t, 22, end.Offset)
}

func TestParseScriptWithoutOptions(t *testing.T) {
	script := parseScript(t, "[listGet(list, 0)]")
	assert.Empty(t, script.Options)
	assert.Nil(t, script.Colon)

	stmt := script.Body.(*StatementBody).Stmt.(*ExprStatement)
	call, ok := stmt.X.(*FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "listGet", call.Name.Name())
	assert.Len(t, call.Args, 2)
}

func TestParseDottedIdentifiers(t *testing.T) {
	script := parseScript(t, "[r: json.get(macro.args, 0)]")
	call := script.Body.(*StatementBody).Stmt.(*ExprStatement).X.(*FunctionCall)
	assert.Equal(t, "json.get", call.Name.Name())

	arg, ok := call.Args[0].(*Atom)
	require.True(t, ok)
	assert.Equal(t, AtomVariable, arg.Kind)
	assert.Equal(t, "macro.args", arg.Tok.Text)
}

func TestParseForOption(t *testing.T) {
	script := parseScript(t, "[for(i, 0, 10, 1, ','): i]")
	opt, ok := script.Options[0].(*ForOption)
	require.True(t, ok)
	require.NotNil(t, opt.Var)
	assert.Equal(t, "i", opt.Var.Name())
	assert.Nil(t, opt.Invalid)
	assert.Len(t, opt.Args, 4)
	require.NotNil(t, opt.RParen)
	assert.Equal(t, 4, opt.LParen.Start.Offset)

	script = parseScript(t, "[foreach(1 + 2, list): x]")
	opt = script.Options[0].(*ForOption)
	assert.Nil(t, opt.Var)
	assert.IsType(t, &BinaryExpr{}, opt.Invalid)
	assert.Len(t, opt.Args, 1)
}

func TestParseIfBody(t *testing.T) {
	script := parseScript(t, "[if(hp < 10): \"low\"; \"ok\"]")
	require.IsType(t, &IfOption{}, script.Options[0])

	body, ok := script.Body.(*IfBody)
	require.True(t, ok)
	assert.NotNil(t, body.True)
	assert.NotNil(t, body.Semi)
	assert.NotNil(t, body.False)
}

func TestParseSwitchBody(t *testing.T) {
	script := parseScript(t, `[switch(kind): case "a": x = 1; case 2: x = 2; default: x = 3]`)
	body, ok := script.Body.(*SwitchBody)
	require.True(t, ok)
	require.Len(t, body.Cases, 2)
	assert.Equal(t, AtomString, body.Cases[0].Value.Kind)
	assert.Equal(t, AtomNumber, body.Cases[1].Value.Kind)
	require.NotNil(t, body.Default)
	assert.IsType(t, &StatementBody{}, body.DefaultBody)
}

func TestParseCodeBlock(t *testing.T) {
	script := parseScript(t, "[h, code: {\n  text [x = 2] more\n}]")
	require.Len(t, script.Options, 2)
	assert.IsType(t, &CodeOption{}, script.Options[1])

	block, ok := script.Body.(*BlockBody)
	require.True(t, ok)
	require.Len(t, block.Block.Bits, 3)

	inner, ok := block.Block.Bits[1].(*Script)
	require.True(t, ok)
	assign := inner.Body.(*StatementBody).Stmt.(*Assignment)
	assert.Equal(t, 1, assign.Target.Tok.Start.Line)
	assert.Equal(t, 8, assign.Target.Tok.Start.Col)
}

func TestParsePrecedence(t *testing.T) {
	script := parseScript(t, "[a + b * c == d && !e]")
	root := script.Body.(*StatementBody).Stmt.(*ExprStatement).X.(*BinaryExpr)
	assert.Equal(t, "&&", root.Op.Text)

	cmp := root.Left.(*BinaryExpr)
	assert.Equal(t, "==", cmp.Op.Text)
	sum := cmp.Left.(*BinaryExpr)
	assert.Equal(t, "+", sum.Op.Text)
	assert.Equal(t, "*", sum.Right.(*BinaryExpr).Op.Text)
	assert.IsType(t, &UnaryExpr{}, root.Right)
}

func TestParseLiterals(t *testing.T) {
	script := parseScript(t, `[x = 2d6 + 1.5 + 'it\'s' + true]`)
	assign := script.Body.(*StatementBody).Stmt.(*Assignment)

	var atoms []*Atom
	var collect func(e Expr)
	collect = func(e Expr) {
		switch n := e.(type) {
		case *BinaryExpr:
			collect(n.Left)
			collect(n.Right)
		case *Atom:
			atoms = append(atoms, n)
		}
	}
	collect(assign.Value)

	require.Len(t, atoms, 4)
	assert.Equal(t, AtomNumber, atoms[0].Kind)
	assert.Equal(t, "2d6", atoms[0].Tok.Text)
	assert.Equal(t, "1.5", atoms[1].Tok.Text)
	assert.Equal(t, AtomString, atoms[2].Kind)
	assert.Equal(t, `'it\'s'`, atoms[2].Tok.Text)
	assert.Equal(t, AtomBoolean, atoms[3].Kind)
}

func TestParseUTF16Columns(t *testing.T) {
	macro, errs := Parse("😀[x]")
	require.Empty(t, errs)
	script := macro.Bits[1].(*Script)
	atom := script.Body.(*StatementBody).Stmt.(*ExprStatement).X.(*Atom)
	assert.Equal(t, 3, atom.Tok.Start.Col)
	assert.Equal(t, 3, atom.Tok.Start.Offset)
}

func TestParseRecovery(t *testing.T) {
	macro, errs := Parse("[x = ] after [y]")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "expected expression")
	assert.Equal(t, "1:6: expected expression, found ']'", errs[0].Error())

	require.Len(t, macro.Bits, 3)
	assert.Equal(t, " after ", macro.Bits[1].(*Text).Tok.Text)
	assert.NotNil(t, macro.Bits[0].(*Script).Close)

	_, errs = Parse("[foo(1")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "end of input")
}
