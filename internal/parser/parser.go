// Package parser implements a recursive descent parser for the compiler's
// keyword/emoji source surface. Its output is the shared internal/ast tree
// also produced by internal/sexpr, the S-expression surface; everything
// downstream of parsing only ever sees that shared tree.
//
// PARSING STRATEGY:
// 1. Recursive descent for statements and declarations
// 2. Precedence climbing for binary expressions
//
// WHY RECURSIVE DESCENT?
// - Direct mapping from grammar to code
// - Good error messages (you know exactly what you expected)
//
// ERROR HANDLING STRATEGY:
// - Accumulate errors rather than stopping at the first one
// - Use panic/recover for error recovery at declaration/statement boundaries
package parser

import (
	"fmt"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
)

// Parser converts a token stream into an *ast.Program.
//
// DESIGN CHOICE: Parser is a struct with methods, matching the teacher's
// lexer-driven recursive descent parser, rather than a set of free
// functions threading state through every call.
type Parser struct {
	lexer *lexer.Lexer

	current  lexer.Token
	previous lexer.Token

	errors []error

	// panicMode suppresses cascading errors between a parse error and the
	// next successful synchronization point.
	panicMode bool
}

// New creates a Parser reading from l. The first token is primed
// immediately so current is always valid.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{lexer: l}
	p.advance()
	return p
}

// checkpoint captures enough parser state to undo a run of speculative
// advances — used for the handful of constructs that can't be told apart
// from a plain identifier until a token or two past it.
type checkpoint struct {
	lex      lexer.Checkpoint
	current  lexer.Token
	previous lexer.Token
}

func (p *Parser) mark() checkpoint {
	return checkpoint{p.lexer.Mark(), p.current, p.previous}
}

func (p *Parser) rewind(c checkpoint) {
	p.lexer.Reset(c.lex)
	p.current, p.previous = c.current, c.previous
}

// Parse parses one complete source file into a Program. Top-level bare
// statements (a file with no fn/st/ext/enum at all) are collected and
// wrapped in an implicit "fn main", matching script-style entry files.
func (p *Parser) Parse(filename string) (*ast.Program, []error) {
	prog, topStmts := p.parseTopLevel(filename)

	if len(topStmts) > 0 {
		pos := lexer.Position{Filename: filename, Line: 1, Column: 1}
		prog.Decls = append(prog.Decls, &ast.FuncDecl{
			Base:   ast.NewBase(pos),
			Name:   "main",
			Return: ast.NewNamedType(pos, "i32"),
			Body:   &ast.BlockStmt{Base: ast.NewBase(pos), Stmts: topStmts},
		})
	}

	return prog, p.errors
}

// ParseDeclarations is the prelude entry point (spec.md: "a prelude entry
// point that emits only declarations (no implicit main wrapping)"). Bare
// top-level statements are a prelude error rather than an implicit-main
// trigger — a prelude file only ever declares structs, enums, externs, and
// functions for `use` to pull in.
func (p *Parser) ParseDeclarations(filename string) (*ast.Program, []error) {
	prog, topStmts := p.parseTopLevel(filename)
	for _, s := range topStmts {
		p.errors = append(p.errors, fmt.Errorf("%s: prelude files may only contain declarations", s.Pos()))
	}
	return prog, p.errors
}

func (p *Parser) parseTopLevel(filename string) (*ast.Program, []ast.Stmt) {
	prog := &ast.Program{Filename: filename}
	var topStmts []ast.Stmt

	p.skipNewlines()
	for !p.isAtEnd() {
		if p.check(lexer.TokenUse) {
			prog.Decls = append(prog.Decls, p.parseUseDecl())
			p.skipNewlines()
			continue
		}

		if p.startsKeywordDecl() {
			prog.Decls = append(prog.Decls, p.parseDecl())
			p.skipNewlines()
			continue
		}

		if p.looksLikeKeywordFreeDecl() {
			prog.Decls = append(prog.Decls, p.parseDecl())
			p.skipNewlines()
			continue
		}

		topStmts = append(topStmts, p.parseStmt())
		p.skipNewlines()
	}

	return prog, topStmts
}

func (p *Parser) startsKeywordDecl() bool {
	switch p.current.Type {
	case lexer.TokenExtern, lexer.TokenFn, lexer.TokenStruct, lexer.TokenEnum:
		return true
	default:
		return false
	}
}

// looksLikeKeywordFreeDecl recognizes "name(...)" and "name{...}" at the
// top level as an implicit fn/struct declaration without the fn/st keyword,
// without committing to consuming any tokens.
func (p *Parser) looksLikeKeywordFreeDecl() bool {
	if p.current.Type != lexer.TokenIdentifier {
		return false
	}
	save := p.mark()
	defer p.rewind(save)
	p.advance()
	if p.check(lexer.TokenLBrace) {
		return true
	}
	if p.check(lexer.TokenLParen) {
		p.advance()
		depth := 1
		for depth > 0 && !p.isAtEnd() {
			switch p.current.Type {
			case lexer.TokenLParen:
				depth++
			case lexer.TokenRParen:
				depth--
			}
			if depth > 0 {
				p.advance()
			}
		}
		if p.check(lexer.TokenRParen) {
			p.advance()
		}
		return p.check(lexer.TokenAssign) || p.check(lexer.TokenArrow) || p.check(lexer.TokenLBrace)
	}
	return false
}

// ---- declarations ----

func (p *Parser) parseUseDecl() *ast.UseDecl {
	pos := p.current.Position
	p.consume(lexer.TokenUse, "expected 'use'")
	name := p.consume(lexer.TokenIdentifier, "expected module name")
	p.expectStmtEnd()
	return &ast.UseDecl{Base: ast.NewBase(pos), Name: name.Lexeme}
}

func (p *Parser) parseDecl() ast.Decl {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
		}
	}()

	switch {
	case p.check(lexer.TokenExtern):
		return p.parseExternDecl()
	case p.check(lexer.TokenFn):
		return p.parseFuncDecl(true)
	case p.check(lexer.TokenStruct):
		return p.parseStructDecl(true)
	case p.check(lexer.TokenEnum):
		return p.parseEnumDecl()
	case p.check(lexer.TokenIdentifier):
		save := p.mark()
		p.advance()
		isFn := p.check(lexer.TokenLParen)
		isSt := p.check(lexer.TokenLBrace)
		p.rewind(save)
		if isSt {
			return p.parseStructDecl(false)
		}
		if isFn {
			return p.parseFuncDecl(false)
		}
	}

	p.error("expected declaration")
	panic("invalid declaration")
}

func (p *Parser) parseExternDecl() *ast.ExternDecl {
	pos := p.current.Position
	p.consume(lexer.TokenExtern, "expected 'ext'")
	name := p.consume(lexer.TokenIdentifier, "expected function name")
	p.consume(lexer.TokenLParen, "expected '('")
	params, variadic := p.parseParams(true)
	p.consume(lexer.TokenRParen, "expected ')'")

	ret := ast.TypeExpr(ast.NewNamedType(p.current.Position, "v"))
	if p.match(lexer.TokenArrow) {
		ret = p.parseType()
	}
	p.expectStmtEnd()

	return &ast.ExternDecl{
		Base:     ast.NewBase(pos),
		Name:     name.Lexeme,
		Params:   params,
		Variadic: variadic,
		Return:   ret,
	}
}

// blockHasReturnValue reports whether body can reach a "ret expr" — used to
// infer a non-void return type for multi-statement function bodies that
// never declared one explicitly.
func blockHasReturnValue(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return n.Value != nil
	case *ast.BlockStmt:
		for _, st := range n.Stmts {
			if blockHasReturnValue(st) {
				return true
			}
		}
	case *ast.IfStmt:
		if blockHasReturnValue(n.Then) {
			return true
		}
		if n.Else != nil && blockHasReturnValue(n.Else) {
			return true
		}
	case *ast.WhileStmt:
		return blockHasReturnValue(n.Body)
	case *ast.ForStmt:
		return blockHasReturnValue(n.Body)
	case *ast.MatchStmt:
		for _, c := range n.Cases {
			if blockHasReturnValue(c.Body) {
				return true
			}
		}
		if n.Default != nil {
			return blockHasReturnValue(n.Default)
		}
	}
	return false
}

func (p *Parser) parseFuncDecl(hasKeyword bool) *ast.FuncDecl {
	pos := p.current.Position
	if hasKeyword {
		p.consume(lexer.TokenFn, "expected 'fn'")
	}
	name := p.consume(lexer.TokenIdentifier, "expected function name")
	isMain := name.Lexeme == "main"

	var params []ast.Param
	var variadic bool
	if p.check(lexer.TokenLParen) {
		p.advance()
		params, variadic = p.parseParams(false)
		p.consume(lexer.TokenRParen, "expected ')'")
	}

	var ret ast.TypeExpr
	if p.match(lexer.TokenArrow) {
		ret = p.parseType()
	} else if isMain {
		ret = ast.NewNamedType(pos, "i32")
	} else {
		ret = ast.NewNamedType(pos, "v")
	}

	var body *ast.BlockStmt
	if p.match(lexer.TokenAssign) {
		// one-liner: fn name(args) = expr
		val := p.parseExpr()
		p.expectStmtEnd()
		body = &ast.BlockStmt{Base: ast.NewBase(pos), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Base: ast.NewBase(pos), Value: val},
		}}
		if isNamedVoid(ret) && !isMain {
			ret = ast.NewNamedType(pos, "i32")
		}
	} else {
		body = p.parseBlock()
		if isNamedVoid(ret) && !isMain && blockHasReturnValue(body) {
			ret = ast.NewNamedType(pos, "i32")
		}
	}

	// implicit return: the last expression statement of a non-void,
	// non-main function becomes its return value.
	if !isNamedVoid(ret) && !isMain && len(body.Stmts) > 0 {
		last := len(body.Stmts) - 1
		if es, ok := body.Stmts[last].(*ast.ExprStmt); ok {
			body.Stmts[last] = &ast.ReturnStmt{Base: ast.NewBase(es.Pos()), Value: es.X}
		}
	}

	return &ast.FuncDecl{
		Base:     ast.NewBase(pos),
		Name:     name.Lexeme,
		Params:   params,
		Variadic: variadic,
		Return:   ret,
		Body:     body,
	}
}

func isNamedVoid(t ast.TypeExpr) bool {
	n, ok := t.(*ast.NamedTypeExpr)
	return ok && (n.Name == "v" || n.Name == "void")
}

func (p *Parser) parseStructDecl(hasKeyword bool) *ast.StructDecl {
	pos := p.current.Position
	if hasKeyword {
		p.consume(lexer.TokenStruct, "expected 'st'")
	}
	name := p.consume(lexer.TokenIdentifier, "expected struct name")
	p.consume(lexer.TokenLBrace, "expected '{'")
	p.skipNewlines()

	var fields []ast.Param
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		fname := p.consume(lexer.TokenIdentifier, "expected field name")
		p.consume(lexer.TokenColon, "expected ':'")
		ftype := p.parseType()
		fields = append(fields, ast.Param{Name: fname.Lexeme, Type: ftype})
		p.match(lexer.TokenComma)
		p.skipNewlines()
	}
	p.consume(lexer.TokenRBrace, "expected '}'")

	return &ast.StructDecl{Base: ast.NewBase(pos), Name: name.Lexeme, Fields: fields}
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	pos := p.current.Position
	p.consume(lexer.TokenEnum, "expected 'enum'")
	name := p.consume(lexer.TokenIdentifier, "expected enum name")
	p.consume(lexer.TokenLBrace, "expected '{'")
	p.skipNewlines()

	var members []ast.EnumMember
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		mname := p.consume(lexer.TokenIdentifier, "expected enum member name")
		var value ast.Expr
		if p.match(lexer.TokenAssign) {
			lit := p.consume(lexer.TokenInt, "expected integer literal")
			value = &ast.IntLit{Base: ast.NewBase(lit.Position), Value: lit.IntValue}
		}
		members = append(members, ast.EnumMember{Name: mname.Lexeme, Value: value})
		if p.match(lexer.TokenComma) {
			// optional separator
		}
		p.skipNewlines()
	}
	p.consume(lexer.TokenRBrace, "expected '}'")

	return &ast.EnumDecl{Base: ast.NewBase(pos), Name: name.Lexeme, Members: members}
}

// parseParams parses a parenthesized parameter list's interior (the
// surrounding parens are consumed by the caller). allowAnon permits
// type-only parameters, used by extern declarations and function-pointer
// types where parameter names are never meaningful.
func (p *Parser) parseParams(allowAnon bool) ([]ast.Param, bool) {
	if p.check(lexer.TokenRParen) {
		return nil, false
	}
	if p.check(lexer.TokenEllipsis) {
		p.advance()
		return nil, true
	}

	var params []ast.Param
	variadic := false
	anonIdx := 0
	for {
		if p.check(lexer.TokenEllipsis) {
			p.advance()
			variadic = true
			break
		}
		if allowAnon && p.isTypeStart() {
			ty := p.parseType()
			params = append(params, ast.Param{Name: fmt.Sprintf("_p%d", anonIdx), Type: ty})
			anonIdx++
			if !p.match(lexer.TokenComma) {
				break
			}
			continue
		}

		name := p.consume(lexer.TokenIdentifier, "expected parameter name")
		switch {
		case p.match(lexer.TokenColon):
			ty := p.parseType()
			params = append(params, ast.Param{Name: name.Lexeme, Type: ty})
		case allowAnon:
			// bare identifier names a struct type; the parameter itself is
			// anonymous (used only by extern declarations).
			ty := ast.NewNamedType(name.Position, name.Lexeme)
			params = append(params, ast.Param{Name: fmt.Sprintf("_p%d", anonIdx), Type: ty})
			anonIdx++
		default:
			params = append(params, ast.Param{Name: name.Lexeme, Type: ast.NewNamedType(name.Position, "i32")})
		}
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	return params, variadic
}

// ---- type parsing ----

func (p *Parser) isTypeStart() bool {
	switch p.current.Type {
	case lexer.TokenI8, lexer.TokenI16, lexer.TokenI32, lexer.TokenI64,
		lexer.TokenU8, lexer.TokenU16, lexer.TokenU32, lexer.TokenU64,
		lexer.TokenF32, lexer.TokenF64, lexer.TokenVoid, lexer.TokenBool,
		lexer.TokenStar, lexer.TokenLBracket:
		return true
	default:
		return false
	}
}

func (p *Parser) parseType() ast.TypeExpr {
	pos := p.current.Position

	if p.match(lexer.TokenStar) {
		if p.match(lexer.TokenFn) {
			p.consume(lexer.TokenLParen, "expected '('")
			params, variadic := p.parseParams(true)
			p.consume(lexer.TokenRParen, "expected ')'")
			ret := ast.TypeExpr(ast.NewNamedType(pos, "v"))
			if p.match(lexer.TokenArrow) {
				ret = p.parseType()
			}
			ptypes := make([]ast.TypeExpr, len(params))
			for i, pm := range params {
				ptypes[i] = pm.Type
			}
			return &ast.PointerTypeExpr{
				Base: ast.NewBase(pos),
				Elem: &ast.FuncTypeExpr{Base: ast.NewBase(pos), Params: ptypes, Variadic: variadic, Return: ret},
			}
		}
		return &ast.PointerTypeExpr{Base: ast.NewBase(pos), Elem: p.parseType()}
	}

	if p.match(lexer.TokenLBracket) {
		size := p.consume(lexer.TokenInt, "expected array length")
		p.consume(lexer.TokenRBracket, "expected ']'")
		return &ast.ArrayTypeExpr{Base: ast.NewBase(pos), Len: size.IntValue, Elem: p.parseType()}
	}

	switch p.current.Type {
	case lexer.TokenI8, lexer.TokenI16, lexer.TokenI32, lexer.TokenI64,
		lexer.TokenU8, lexer.TokenU16, lexer.TokenU32, lexer.TokenU64,
		lexer.TokenF32, lexer.TokenF64, lexer.TokenVoid:
		name := p.current.Lexeme
		p.advance()
		return ast.NewNamedType(pos, name)
	case lexer.TokenBool:
		// canonical lowering: bool is represented as i32 in core IR.
		p.advance()
		return ast.NewNamedType(pos, "i32")
	case lexer.TokenIdentifier:
		name := p.current.Lexeme
		p.advance()
		return ast.NewNamedType(pos, name)
	}

	p.error("expected type")
	panic("expected type")
}

// ---- statement parsing ----

func (p *Parser) parseStmt() ast.Stmt {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
		}
	}()

	pos := p.current.Position

	switch {
	case p.check(lexer.TokenLBrace):
		return p.parseBlock()
	case p.check(lexer.TokenRet):
		return p.parseReturnStmt()
	case p.check(lexer.TokenIf):
		return p.parseIfStmt()
	case p.check(lexer.TokenDelete):
		return p.parseDeleteStmt()
	case p.check(lexer.TokenBreak):
		p.advance()
		p.expectStmtEnd()
		return &ast.BreakStmt{Base: ast.NewBase(pos)}
	case p.check(lexer.TokenContinue):
		p.advance()
		p.expectStmtEnd()
		return &ast.ContinueStmt{Base: ast.NewBase(pos)}
	case p.check(lexer.TokenAsm):
		return p.parseAsmStmt()
	case p.check(lexer.TokenComptime):
		p.advance()
		x := p.parseExpr()
		p.expectStmtEnd()
		return &ast.ExprStmt{Base: ast.NewBase(pos), X: &ast.ComptimeExpr{Base: ast.NewBase(pos), X: x}}
	case p.check(lexer.TokenWh):
		return p.parseWhileStmt()
	case p.check(lexer.TokenFor):
		return p.parseForStmt()
	case p.check(lexer.TokenMatch):
		return p.parseMatchStmt()
	case p.check(lexer.TokenDefer):
		p.advance()
		stmt := p.parseStmt()
		return &ast.DeferStmt{Base: ast.NewBase(pos), Stmt: stmt}
	case p.check(lexer.TokenIdentifier) && (p.current.Lexeme == "var" || p.current.Lexeme == "let"):
		return p.parseVarKeywordDeclStmt()
	}

	if p.tokIsIdent("print") || p.tokIsIdent("check") {
		if stmt, ok := p.tryParsePrintOrCheckSugar(); ok {
			return stmt
		}
	}

	if p.check(lexer.TokenIdentifier) {
		if stmt, ok := p.tryParseBareDeclStmt(); ok {
			return stmt
		}
	}

	return p.parseSimpleStmt()
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	pos := p.current.Position
	p.consume(lexer.TokenLBrace, "expected '{'")
	p.skipNewlines()

	var stmts []ast.Stmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.parseStmt())
		p.skipNewlines()
	}
	p.consume(lexer.TokenRBrace, "expected '}'")
	return &ast.BlockStmt{Base: ast.NewBase(pos), Stmts: stmts}
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	pos := p.current.Position
	p.consume(lexer.TokenRet, "expected 'ret'")
	var value ast.Expr
	if !p.check(lexer.TokenNewline) && !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		value = p.parseExpr()
	}
	p.expectStmtEnd()
	return &ast.ReturnStmt{Base: ast.NewBase(pos), Value: value}
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	pos := p.current.Position
	p.consume(lexer.TokenIf, "expected 'if'")
	cond := p.parseExpr()
	then := p.parseBlock()

	save := p.mark()
	p.skipNewlines()
	n := &ast.IfStmt{Base: ast.NewBase(pos), Cond: cond, Then: then}
	if p.match(lexer.TokenEl) {
		if p.check(lexer.TokenIf) {
			n.Else = p.parseIfStmt()
		} else {
			n.Else = p.parseBlock()
		}
	} else {
		p.rewind(save)
	}
	return n
}

func (p *Parser) parseDeleteStmt() ast.Stmt {
	pos := p.current.Position
	p.consume(lexer.TokenDelete, "expected 'del'")
	x := p.parseExpr()
	p.expectStmtEnd()
	return &ast.DeleteStmt{Base: ast.NewBase(pos), X: x}
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	pos := p.current.Position
	p.consume(lexer.TokenWh, "expected 'wh'")
	cond := p.parseExpr()
	body := p.parseBlock()
	return &ast.WhileStmt{Base: ast.NewBase(pos), Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	pos := p.current.Position
	p.consume(lexer.TokenFor, "expected 'for'")
	iter := p.consume(lexer.TokenIdentifier, "expected loop variable")
	p.consume(lexer.TokenDeclAssign, "expected ':='")
	rangeExpr := p.parseExpr()
	rng, ok := rangeExpr.(*ast.RangeExpr)
	if !ok {
		p.error("expected range in for loop")
		panic("expected range in for loop")
	}
	body := p.parseBlock()
	return &ast.ForStmt{Base: ast.NewBase(pos), Var: iter.Lexeme, Range: rng, Body: body}
}

func (p *Parser) parseMatchStmt() *ast.MatchStmt {
	pos := p.current.Position
	p.consume(lexer.TokenMatch, "expected 'match'")
	subject := p.parseExpr()
	p.consume(lexer.TokenLBrace, "expected '{'")
	p.skipNewlines()

	n := &ast.MatchStmt{Base: ast.NewBase(pos), Subject: subject}
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		if p.tokIsIdent("_") {
			p.advance()
			n.Default = p.parseBlock()
		} else {
			value := p.parseExpr()
			body := p.parseBlock()
			n.Cases = append(n.Cases, ast.MatchCase{Value: value, Body: body})
		}
		p.skipNewlines()
	}
	p.consume(lexer.TokenRBrace, "expected '}'")
	return n
}

// parseAsmStmt parses "asm(\"template\" (: outputs)? (: inputs)? (: clobbers)?)",
// where outputs/inputs are comma-separated "constraint"(expr) pairs and
// clobbers are bare comma-separated constraint strings.
func (p *Parser) parseAsmStmt() *ast.AsmStmt {
	pos := p.current.Position
	p.consume(lexer.TokenAsm, "expected 'asm'")
	p.consume(lexer.TokenLParen, "expected '('")
	tmpl := p.consume(lexer.TokenString, "expected asm template string")

	n := &ast.AsmStmt{Base: ast.NewBase(pos), Text: string(tmpl.StringValue)}

	if p.match(lexer.TokenColon) {
		n.Outputs = p.parseAsmOperands()
		if p.match(lexer.TokenColon) {
			n.Inputs = p.parseAsmOperands()
			if p.match(lexer.TokenColon) {
				n.Clobbers = p.parseAsmClobbers()
			}
		}
	}
	p.consume(lexer.TokenRParen, "expected ')'")
	p.expectStmtEnd()

	return n
}

// parseAsmOperands parses a comma-separated "constraint"(expr) list, used
// for both the outputs and the inputs section of an asm statement.
func (p *Parser) parseAsmOperands() []ast.AsmOperand {
	var ops []ast.AsmOperand
	for p.check(lexer.TokenString) {
		constraint := p.current.StringValue
		p.advance()
		p.consume(lexer.TokenLParen, "expected '('")
		expr := p.parseExpr()
		p.consume(lexer.TokenRParen, "expected ')'")
		ops = append(ops, ast.AsmOperand{Constraint: string(constraint), Expr: expr})
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	return ops
}

// parseAsmClobbers parses a comma-separated list of bare clobber strings
// (no parenthesized expr, unlike outputs/inputs).
func (p *Parser) parseAsmClobbers() []string {
	var clobbers []string
	for p.check(lexer.TokenString) {
		clobbers = append(clobbers, string(p.current.StringValue))
		p.advance()
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	return clobbers
}

func (p *Parser) parseVarKeywordDeclStmt() ast.Stmt {
	pos := p.current.Position
	p.advance() // consume 'var'/'let'
	name := p.consume(lexer.TokenIdentifier, "expected variable name")

	switch {
	case p.match(lexer.TokenDeclAssign), p.match(lexer.TokenAssign):
		init := p.parseExpr()
		p.expectStmtEnd()
		return &ast.VarDeclStmt{Base: ast.NewBase(pos), Name: name.Lexeme, Init: init}
	case p.match(lexer.TokenColon):
		ty := p.parseType()
		var init ast.Expr
		if p.match(lexer.TokenAssign) {
			init = p.parseExpr()
		}
		p.expectStmtEnd()
		return &ast.VarDeclStmt{Base: ast.NewBase(pos), Name: name.Lexeme, Type: ty, Init: init}
	}
	p.error("expected ':=' or ':' after 'var'")
	panic("expected ':=' or ':'")
}

// tryParsePrintOrCheckSugar recognizes "print expr" / "check expr" without
// parens as sugar for "print(expr)" / "check(expr)". It backs out (without
// consuming anything) when the identifier is immediately followed by a
// declaration or call, which are both ordinary uses of that name.
func (p *Parser) tryParsePrintOrCheckSugar() (ast.Stmt, bool) {
	save := p.mark()
	name := p.current
	p.advance()
	if p.check(lexer.TokenDeclAssign) || p.check(lexer.TokenColon) ||
		p.check(lexer.TokenNewline) || p.check(lexer.TokenEOF) || p.check(lexer.TokenRBrace) ||
		p.check(lexer.TokenLParen) {
		p.rewind(save)
		return nil, false
	}
	arg := p.parseExpr()
	call := &ast.CallExpr{
		Base:   ast.NewBase(name.Position),
		Callee: &ast.Ident{Base: ast.NewBase(name.Position), Name: name.Lexeme},
		Args:   []ast.Expr{arg},
	}
	p.expectStmtEnd()
	return &ast.ExprStmt{Base: ast.NewBase(name.Position), X: call}, true
}

// tryParseBareDeclStmt recognizes "ID := expr" and "ID : Type (= expr)?"
// without a leading 'var' keyword, backing out to re-parse as an ordinary
// expression/assignment statement when neither shape matches.
func (p *Parser) tryParseBareDeclStmt() (ast.Stmt, bool) {
	save := p.mark()
	name := p.current
	p.advance()

	if p.match(lexer.TokenDeclAssign) {
		init := p.parseExpr()
		p.expectStmtEnd()
		return &ast.VarDeclStmt{Base: ast.NewBase(name.Position), Name: name.Lexeme, Init: init}, true
	}

	if p.match(lexer.TokenColon) {
		ty := p.parseType()
		var init ast.Expr
		if p.match(lexer.TokenAssign) {
			init = p.parseExpr()
		}
		p.expectStmtEnd()
		return &ast.VarDeclStmt{Base: ast.NewBase(name.Position), Name: name.Lexeme, Type: ty, Init: init}, true
	}

	p.rewind(save)
	return nil, false
}

var compoundAssignOps = map[lexer.TokenType]lexer.TokenType{
	lexer.TokenPlusEq:    lexer.TokenPlus,
	lexer.TokenMinusEq:   lexer.TokenMinus,
	lexer.TokenStarEq:    lexer.TokenStar,
	lexer.TokenSlashEq:   lexer.TokenSlash,
	lexer.TokenPercentEq: lexer.TokenPercent,
}

// parseSimpleStmt parses an expression, an assignment "target = value", or
// a compound assignment "target op= value" (desugared here to
// "target = target op value" so codegen only ever lowers plain
// assignment).
func (p *Parser) parseSimpleStmt() ast.Stmt {
	pos := p.current.Position
	expr := p.parseExpr()

	if p.match(lexer.TokenAssign) {
		value := p.parseExpr()
		p.expectStmtEnd()
		return &ast.AssignStmt{Base: ast.NewBase(pos), Target: expr, Op: lexer.TokenAssign, Value: value}
	}

	if binop, ok := compoundAssignOps[p.current.Type]; ok {
		p.advance()
		rhs := p.parseExpr()
		combined := &ast.BinaryExpr{Base: ast.NewBase(pos), Op: binop, Left: expr, Right: rhs}
		p.expectStmtEnd()
		return &ast.AssignStmt{Base: ast.NewBase(pos), Target: expr, Op: lexer.TokenAssign, Value: combined}
	}

	p.expectStmtEnd()
	return &ast.ExprStmt{Base: ast.NewBase(pos), X: expr}
}

// ---- expression parsing ----

func (p *Parser) parseExpr() ast.Expr {
	expr := p.parseBinary(PrecRange)

	if p.match(lexer.TokenQuestion) {
		pos := p.previous.Position
		then := p.parseExpr()
		p.consume(lexer.TokenColon, "expected ':' in ternary expression")
		els := p.parseExpr()
		expr = &ast.TernaryExpr{Base: ast.NewBase(pos), Cond: expr, Then: then, Else: els}
	}

	for p.check(lexer.TokenPipeOp) {
		pos := p.current.Position
		p.advance()
		rhs := p.parseBinary(PrecRange)
		switch r := rhs.(type) {
		case *ast.CallExpr:
			r.Args = append([]ast.Expr{expr}, r.Args...)
			expr = r
		case *ast.Ident:
			expr = &ast.CallExpr{Base: ast.NewBase(pos), Callee: r, Args: []ast.Expr{expr}}
		default:
			p.error("pipe RHS must be function or call")
		}
	}

	return expr
}

func (p *Parser) parseBinary(minPrec Precedence) ast.Expr {
	left := p.parseCast()
	for {
		prec := binaryPrecedence(p.current.Type)
		if prec == PrecNone || prec < minPrec {
			break
		}
		op := p.current.Type
		pos := p.current.Position
		p.advance()

		nextMin := prec + 1
		if isRangeOp(op) {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)

		if isRangeOp(op) {
			left = &ast.RangeExpr{Base: ast.NewBase(pos), Start: left, End: right, Inclusive: op == lexer.TokenRangeInc}
		} else {
			left = &ast.BinaryExpr{Base: ast.NewBase(pos), Op: op, Left: left, Right: right}
		}
	}
	return left
}

// parseCast binds 'as' between unary and binary operators, so "&buf as *v"
// parses as "(&buf) as *v".
func (p *Parser) parseCast() ast.Expr {
	expr := p.parseUnary()
	for p.match(lexer.TokenAs) {
		pos := p.previous.Position
		ty := p.parseType()
		expr = &ast.CastExpr{Base: ast.NewBase(pos), X: expr, Type: ty}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expr {
	pos := p.current.Position
	switch p.current.Type {
	case lexer.TokenAmp, lexer.TokenStar, lexer.TokenBang, lexer.TokenMinus:
		op := p.current.Type
		p.advance()
		return &ast.UnaryExpr{Base: ast.NewBase(pos), Op: op, X: p.parseUnary()}
	case lexer.TokenComptime:
		p.advance()
		return &ast.ComptimeExpr{Base: ast.NewBase(pos), X: p.parseUnary()}
	}
	return p.parsePostfix(p.parsePrimary())
}

var reducerNames = map[string]ast.ReducerKind{
	"product": ast.ReducerProduct,
	"sum":     ast.ReducerSum,
	"count":   ast.ReducerCount,
	"min":     ast.ReducerMin,
	"max":     ast.ReducerMax,
}

func (p *Parser) parsePostfix(left ast.Expr) ast.Expr {
	for {
		pos := p.current.Position
		switch {
		case p.check(lexer.TokenLParen):
			p.advance()
			var args []ast.Expr
			if !p.check(lexer.TokenRParen) {
				for {
					p.skipNewlines()
					args = append(args, p.parseExpr())
					p.skipNewlines()
					if !p.match(lexer.TokenComma) {
						break
					}
				}
			}
			p.consume(lexer.TokenRParen, "expected ')'")
			left = p.maybeReducer(&ast.CallExpr{Base: ast.NewBase(pos), Callee: left, Args: args})
			continue

		case p.check(lexer.TokenDot):
			p.advance()
			name := p.consume(lexer.TokenIdentifier, "expected field name")
			left = &ast.FieldExpr{Base: ast.NewBase(pos), X: left, Name: name.Lexeme}
			continue

		case p.check(lexer.TokenLBracket):
			p.advance()
			idx := p.parseExpr()
			p.consume(lexer.TokenRBracket, "expected ']'")
			left = &ast.IndexExpr{Base: ast.NewBase(pos), X: left, Index: idx}
			continue
		}
		break
	}
	return left
}

// maybeReducer rewrites "product(range)" and friends — the compiler's
// built-in reducer intrinsics — from an ordinary call into a ReducerExpr so
// codegen never has to special-case these five names by string comparison
// deep in call lowering.
func (p *Parser) maybeReducer(call *ast.CallExpr) ast.Expr {
	ident, ok := call.Callee.(*ast.Ident)
	if !ok || len(call.Args) != 1 {
		return call
	}
	kind, ok := reducerNames[ident.Name]
	if !ok {
		return call
	}
	rng, ok := call.Args[0].(*ast.RangeExpr)
	if !ok {
		return call
	}
	return &ast.ReducerExpr{Base: ast.NewBase(call.Pos()), Kind: kind, Range: rng}
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.current.Position

	switch {
	case p.check(lexer.TokenInt):
		tok := p.current
		p.advance()
		return &ast.IntLit{Base: ast.NewBase(pos), Value: tok.IntValue}

	case p.check(lexer.TokenFloat):
		tok := p.current
		p.advance()
		return &ast.FloatLit{Base: ast.NewBase(pos), Value: tok.FloatValue}

	case p.check(lexer.TokenString):
		tok := p.current
		p.advance()
		return &ast.StringLit{Base: ast.NewBase(pos), Value: tok.StringValue}

	case p.check(lexer.TokenNull):
		p.advance()
		return &ast.NullLit{Base: ast.NewBase(pos)}

	case p.check(lexer.TokenIdentifier):
		name := p.current
		p.advance()
		if p.check(lexer.TokenLBrace) && p.looksLikeStructInit() {
			return p.parseStructInitLiteral(name.Lexeme, pos, false)
		}
		return &ast.Ident{Base: ast.NewBase(pos), Name: name.Lexeme}

	case p.match(lexer.TokenLParen):
		expr := p.parseExpr()
		p.consume(lexer.TokenRParen, "expected ')'")
		return expr

	case p.check(lexer.TokenSizeof):
		p.advance()
		ty := p.parseType()
		return &ast.SizeofExpr{Base: ast.NewBase(pos), Type: ty}

	case p.check(lexer.TokenNew):
		p.advance()
		ty := p.parseType()
		if named, ok := ty.(*ast.NamedTypeExpr); ok && p.check(lexer.TokenLBrace) {
			return p.parseStructInitLiteral(named.Name, pos, true)
		}
		return &ast.NewExpr{Base: ast.NewBase(pos), Type: ty}
	}

	p.error("expected expression")
	panic("expected expression")
}

func (p *Parser) parseStructInitLiteral(typeName string, pos lexer.Position, heap bool) ast.Expr {
	p.consume(lexer.TokenLBrace, "expected '{'")
	p.skipNewlines()

	var fields []ast.StructInitField
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		fname := p.consume(lexer.TokenIdentifier, "expected field name")
		p.consume(lexer.TokenColon, "expected ':'")
		value := p.parseExpr()
		fields = append(fields, ast.StructInitField{Name: fname.Lexeme, Value: value})
		p.match(lexer.TokenComma)
		p.skipNewlines()
	}
	p.consume(lexer.TokenRBrace, "expected '}'")

	return &ast.StructInitExpr{Base: ast.NewBase(pos), TypeName: typeName, Fields: fields, Heap: heap}
}

// looksLikeStructInit disambiguates "Ident {" between a struct-init literal
// and a following statement block (as in "if cond { ... }" where cond
// happens to be a bare identifier). A struct init must open with either
// '}' (empty struct) or "ident :".
func (p *Parser) looksLikeStructInit() bool {
	if !p.check(lexer.TokenLBrace) {
		return false
	}
	save := p.mark()
	defer p.rewind(save)

	p.advance() // consume '{'
	p.skipNewlines()

	if p.check(lexer.TokenRBrace) {
		return true
	}
	if p.check(lexer.TokenIdentifier) {
		p.advance()
		return p.check(lexer.TokenColon)
	}
	return false
}

// ---- lexer-driven helpers ----

func (p *Parser) advance() {
	p.previous = p.current
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.error(err.Error())
		p.current = lexer.Token{Type: lexer.TokenInvalid}
		return
	}
	p.current = tok
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) tokIsIdent(name string) bool {
	return p.current.Type == lexer.TokenIdentifier && p.current.Lexeme == name
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, message string) lexer.Token {
	if p.check(t) {
		tok := p.current
		p.advance()
		return tok
	}
	p.error(fmt.Sprintf("%s (got %s)", message, p.current.Type))
	panic(message)
}

func (p *Parser) isAtEnd() bool {
	return p.current.Type == lexer.TokenEOF
}

// skipNewlines consumes any run of statement-terminator tokens — used
// between statements and around brace-delimited lists, where blank lines
// are insignificant.
func (p *Parser) skipNewlines() {
	for p.check(lexer.TokenNewline) {
		p.advance()
	}
}

// expectStmtEnd requires a newline (or ';', which the lexer folds into the
// same token) after a statement, unless the statement is immediately
// followed by a closing brace or end of file.
func (p *Parser) expectStmtEnd() {
	if p.check(lexer.TokenNewline) {
		p.advance()
		p.skipNewlines()
		return
	}
	if p.check(lexer.TokenRBrace) || p.isAtEnd() {
		return
	}
	p.error("expected newline or ';'")
}

func (p *Parser) error(message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errors = append(p.errors, fmt.Errorf("%s: %s", p.current.Position.String(), message))
}

// synchronize skips tokens until a likely statement/declaration boundary,
// so one parse error doesn't cascade into a wall of follow-on errors.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.isAtEnd() {
		if p.previous.Type == lexer.TokenNewline {
			return
		}
		switch p.current.Type {
		case lexer.TokenFn, lexer.TokenExtern, lexer.TokenStruct, lexer.TokenEnum,
			lexer.TokenIf, lexer.TokenWh, lexer.TokenFor, lexer.TokenMatch, lexer.TokenRet:
			return
		}
		p.advance()
	}
}
