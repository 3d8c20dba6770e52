package sexpr

import (
	"fmt"

	"github.com/hassan/esc/internal/ast"
	"github.com/hassan/esc/internal/lexer"
)

// parser holds the error-accumulation state for one transduction pass, in
// the same error-collection style as internal/parser: one bad top-level
// form is reported and skipped rather than aborting the whole file.
type parser struct {
	errors []error
}

func (p *parser) errorf(pos lexer.Position, format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Errorf("%s: %s", pos.String(), fmt.Sprintf(format, args...)))
}

// Parse reads src (already macro-expanded) as the S-expression surface and
// produces the same *ast.Program the keyword/emoji parser would, synthesizing
// an implicit "fn main() -> i32" around any top-level forms that aren't
// declarations (spec.md §8: "a file containing only expressions compiles
// successfully with an implicit main returning i32").
func Parse(src, filename string) (*ast.Program, []error) {
	prog, topStmts, errs := parseTopLevel(src, filename)
	if len(errs) > 0 {
		return prog, errs
	}
	if len(topStmts) > 0 {
		pos := lexer.Position{Filename: filename, Line: 1, Column: 1}
		prog.Decls = append(prog.Decls, &ast.FuncDecl{
			Base:   ast.NewBase(pos),
			Name:   "main",
			Return: ast.NewNamedType(pos, "i32"),
			Body:   &ast.BlockStmt{Base: ast.NewBase(pos), Stmts: topStmts},
		})
	}
	return prog, nil
}

// ParseDeclarations is the prelude entry point for the S-expression surface,
// mirroring internal/parser.Parser.ParseDeclarations: bare top-level forms
// are an error rather than an implicit-main trigger.
func ParseDeclarations(src, filename string) (*ast.Program, []error) {
	prog, topStmts, errs := parseTopLevel(src, filename)
	for _, s := range topStmts {
		errs = append(errs, fmt.Errorf("%s: prelude files may only contain declarations", s.Pos()))
	}
	return prog, errs
}

var topDeclHeads = map[string]bool{"use": true, "fn": true, "ext": true, "st": true, "enum": true}

func parseTopLevel(src, filename string) (*ast.Program, []ast.Stmt, []error) {
	toks, err := tokenize(src, filename)
	if err != nil {
		return &ast.Program{Filename: filename}, nil, []error{err}
	}
	data, err := newReader(toks).readAll()
	if err != nil {
		return &ast.Program{Filename: filename}, nil, []error{err}
	}

	p := &parser{}
	prog := &ast.Program{Filename: filename}
	var topStmts []ast.Stmt

	for _, d := range data {
		if d.isList() && topDeclHeads[d.head()] {
			if decl := p.transduceDecl(d); decl != nil {
				prog.Decls = append(prog.Decls, decl)
			}
			continue
		}
		if s := p.transduceStmt(d); s != nil {
			topStmts = append(topStmts, s)
		}
	}

	return prog, topStmts, p.errors
}

// ---- declarations ----

func (p *parser) transduceDecl(d *datum) ast.Decl {
	switch d.head() {
	case "use":
		return p.transduceUse(d)
	case "fn":
		return p.transduceFunc(d)
	case "ext":
		return p.transduceExtern(d)
	case "st":
		return p.transduceStruct(d)
	case "enum":
		return p.transduceEnum(d)
	}
	p.errorf(d.pos, "expected declaration, got head %q", d.head())
	return nil
}

func (p *parser) transduceUse(d *datum) *ast.UseDecl {
	args := d.args()
	if len(args) != 1 {
		p.errorf(d.pos, "(use NAME) expects exactly one argument")
		return &ast.UseDecl{Base: ast.NewBase(d.pos)}
	}
	return &ast.UseDecl{Base: ast.NewBase(d.pos), Name: args[0].sym}
}

// transduceParams reads a "(params...)" list datum where each element is
// either "(name Type)" or, when allowAnon is set, a bare type datum (an
// anonymous extern parameter) or the symbol "..." marking variadics.
func (p *parser) transduceParams(d *datum, allowAnon bool) ([]ast.Param, bool) {
	var params []ast.Param
	variadic := false
	anonIdx := 0
	for _, item := range d.list {
		if item.isSymbol("...") {
			variadic = true
			continue
		}
		if item.isList() && len(item.list) == 2 && !item.list[0].isList() {
			name := item.list[0].sym
			ty := p.transduceType(item.list[1])
			params = append(params, ast.Param{Name: name, Type: ty})
			continue
		}
		if allowAnon {
			ty := p.transduceType(item)
			params = append(params, ast.Param{Name: fmt.Sprintf("_p%d", anonIdx), Type: ty})
			anonIdx++
			continue
		}
		p.errorf(item.pos, "expected (name Type) parameter")
	}
	return params, variadic
}

func (p *parser) transduceFunc(d *datum) *ast.FuncDecl {
	args := d.args()
	if len(args) < 3 {
		p.errorf(d.pos, "(fn name (params) RetType body...) expects at least 3 arguments")
		return &ast.FuncDecl{Base: ast.NewBase(d.pos)}
	}
	name := args[0].sym
	params, variadic := p.transduceParams(args[1], false)
	ret := p.transduceType(args[2])

	var stmts []ast.Stmt
	for _, s := range args[3:] {
		if st := p.transduceStmt(s); st != nil {
			stmts = append(stmts, st)
		}
	}

	return &ast.FuncDecl{
		Base:     ast.NewBase(d.pos),
		Name:     name,
		Params:   params,
		Variadic: variadic,
		Return:   ret,
		Body:     &ast.BlockStmt{Base: ast.NewBase(d.pos), Stmts: stmts},
	}
}

func (p *parser) transduceExtern(d *datum) *ast.ExternDecl {
	args := d.args()
	if len(args) < 2 {
		p.errorf(d.pos, "(ext name (params) RetType?) expects at least 2 arguments")
		return &ast.ExternDecl{Base: ast.NewBase(d.pos)}
	}
	name := args[0].sym
	params, variadic := p.transduceParams(args[1], true)
	ret := ast.TypeExpr(ast.NewNamedType(d.pos, "v"))
	if len(args) >= 3 {
		ret = p.transduceType(args[2])
	}
	return &ast.ExternDecl{Base: ast.NewBase(d.pos), Name: name, Params: params, Variadic: variadic, Return: ret}
}

func (p *parser) transduceStruct(d *datum) *ast.StructDecl {
	args := d.args()
	if len(args) < 1 {
		p.errorf(d.pos, "(st Name fields...) expects a name")
		return &ast.StructDecl{Base: ast.NewBase(d.pos)}
	}
	name := args[0].sym
	var fields []ast.Param
	for _, f := range args[1:] {
		if !f.isList() || len(f.list) != 2 {
			p.errorf(f.pos, "expected (field Type)")
			continue
		}
		fields = append(fields, ast.Param{Name: f.list[0].sym, Type: p.transduceType(f.list[1])})
	}
	return &ast.StructDecl{Base: ast.NewBase(d.pos), Name: name, Fields: fields}
}

func (p *parser) transduceEnum(d *datum) *ast.EnumDecl {
	args := d.args()
	if len(args) < 1 {
		p.errorf(d.pos, "(enum Name members...) expects a name")
		return &ast.EnumDecl{Base: ast.NewBase(d.pos)}
	}
	name := args[0].sym
	var members []ast.EnumMember
	for _, m := range args[1:] {
		if m.isList() {
			if len(m.list) != 2 {
				p.errorf(m.pos, "expected (Member value)")
				continue
			}
			members = append(members, ast.EnumMember{
				Name:  m.list[0].sym,
				Value: &ast.IntLit{Base: ast.NewBase(m.list[1].pos), Value: m.list[1].intVal},
			})
			continue
		}
		members = append(members, ast.EnumMember{Name: m.sym})
	}
	return &ast.EnumDecl{Base: ast.NewBase(d.pos), Name: name, Members: members}
}

// ---- types ----

func (p *parser) transduceType(d *datum) ast.TypeExpr {
	if !d.isList() {
		if d.sym == "bool" {
			return ast.NewNamedType(d.pos, "i32")
		}
		return ast.NewNamedType(d.pos, d.sym)
	}
	switch d.head() {
	case "*":
		args := d.args()
		if len(args) != 1 {
			p.errorf(d.pos, "(* Elem) expects exactly one element type")
			return ast.NewNamedType(d.pos, "v")
		}
		if args[0].isList() && args[0].head() == "fn" {
			return &ast.PointerTypeExpr{Base: ast.NewBase(d.pos), Elem: p.transduceFuncType(args[0])}
		}
		return &ast.PointerTypeExpr{Base: ast.NewBase(d.pos), Elem: p.transduceType(args[0])}
	case "[]":
		args := d.args()
		if len(args) != 2 {
			p.errorf(d.pos, "([] Len Elem) expects a length and an element type")
			return ast.NewNamedType(d.pos, "v")
		}
		return &ast.ArrayTypeExpr{Base: ast.NewBase(d.pos), Len: args[0].intVal, Elem: p.transduceType(args[1])}
	case "fn":
		return p.transduceFuncType(d)
	}
	p.errorf(d.pos, "expected type, got head %q", d.head())
	return ast.NewNamedType(d.pos, "v")
}

func (p *parser) transduceFuncType(d *datum) *ast.FuncTypeExpr {
	args := d.args()
	if len(args) < 2 {
		p.errorf(d.pos, "(fn (params) Ret) expects a parameter list and a return type")
		return &ast.FuncTypeExpr{Base: ast.NewBase(d.pos)}
	}
	params, variadic := p.transduceParams(args[0], true)
	ptypes := make([]ast.TypeExpr, len(params))
	for i, pm := range params {
		ptypes[i] = pm.Type
	}
	return &ast.FuncTypeExpr{
		Base:     ast.NewBase(d.pos),
		Params:   ptypes,
		Variadic: variadic,
		Return:   p.transduceType(args[1]),
	}
}

// ---- statements ----

func (p *parser) transduceStmt(d *datum) ast.Stmt {
	if !d.isList() {
		switch {
		case d.isSymbol("brk"):
			return &ast.BreakStmt{Base: ast.NewBase(d.pos)}
		case d.isSymbol("cont"):
			return &ast.ContinueStmt{Base: ast.NewBase(d.pos)}
		}
		// a bare atom in statement position is an expression statement
		return &ast.ExprStmt{Base: ast.NewBase(d.pos), X: p.transduceExpr(d)}
	}

	args := d.args()
	switch d.head() {
	case "block":
		var stmts []ast.Stmt
		for _, s := range args {
			if st := p.transduceStmt(s); st != nil {
				stmts = append(stmts, st)
			}
		}
		return &ast.BlockStmt{Base: ast.NewBase(d.pos), Stmts: stmts}

	case "=":
		if len(args) != 2 {
			p.errorf(d.pos, "(= name value) expects exactly two arguments")
			return nil
		}
		return &ast.VarDeclStmt{Base: ast.NewBase(d.pos), Name: args[0].sym, Init: p.transduceExpr(args[1])}

	case ":":
		if len(args) < 2 {
			p.errorf(d.pos, "(: name Type value?) expects a name and a type")
			return nil
		}
		n := &ast.VarDeclStmt{Base: ast.NewBase(d.pos), Name: args[0].sym, Type: p.transduceType(args[1])}
		if len(args) >= 3 {
			n.Init = p.transduceExpr(args[2])
		}
		return n

	case "!":
		if len(args) != 2 {
			p.errorf(d.pos, "(! target value) expects exactly two arguments")
			return nil
		}
		return &ast.AssignStmt{
			Base:   ast.NewBase(d.pos),
			Target: p.transduceExpr(args[0]),
			Op:     lexer.TokenAssign,
			Value:  p.transduceExpr(args[1]),
		}

	case "+=", "-=", "*=", "/=", "%=":
		if len(args) != 2 {
			p.errorf(d.pos, "(%s target value) expects exactly two arguments", d.head())
			return nil
		}
		target := p.transduceExpr(args[0])
		rhs := p.transduceExpr(args[1])
		combined := &ast.BinaryExpr{Base: ast.NewBase(d.pos), Op: compoundBaseOp[d.head()], Left: target, Right: rhs}
		return &ast.AssignStmt{Base: ast.NewBase(d.pos), Target: target, Op: lexer.TokenAssign, Value: combined}

	case "^":
		n := &ast.ReturnStmt{Base: ast.NewBase(d.pos)}
		if len(args) == 1 {
			n.Value = p.transduceExpr(args[0])
		} else if len(args) > 1 {
			p.errorf(d.pos, "(^ value?) expects zero or one arguments")
		}
		return n

	case "if":
		return p.transduceIf(d)

	case "@":
		if len(args) != 2 {
			p.errorf(d.pos, "(@ cond body) expects exactly two arguments")
			return nil
		}
		return &ast.WhileStmt{Base: ast.NewBase(d.pos), Cond: p.transduceExpr(args[0]), Body: p.transduceBlock(args[1])}

	case "for":
		if len(args) != 3 {
			p.errorf(d.pos, "(for var range body) expects exactly three arguments")
			return nil
		}
		rng := p.transduceExpr(args[1])
		r, ok := rng.(*ast.RangeExpr)
		if !ok {
			p.errorf(args[1].pos, "expected a range expression")
			return nil
		}
		return &ast.ForStmt{Base: ast.NewBase(d.pos), Var: args[0].sym, Range: r, Body: p.transduceBlock(args[2])}

	case "match":
		return p.transduceMatch(d)

	case "defer":
		if len(args) != 1 {
			p.errorf(d.pos, "(defer stmt) expects exactly one argument")
			return nil
		}
		return &ast.DeferStmt{Base: ast.NewBase(d.pos), Stmt: p.transduceStmt(args[0])}

	case "del":
		if len(args) != 1 {
			p.errorf(d.pos, "(del expr) expects exactly one argument")
			return nil
		}
		return &ast.DeleteStmt{Base: ast.NewBase(d.pos), X: p.transduceExpr(args[0])}

	case "asm":
		if len(args) != 1 || !args[0].isString {
			p.errorf(d.pos, "(asm \"template\") expects a single string literal")
			return nil
		}
		return &ast.AsmStmt{Base: ast.NewBase(d.pos), Text: string(args[0].strVal)}
	}

	// any other list in statement position is an expression evaluated for
	// its side effect, almost always a call.
	return &ast.ExprStmt{Base: ast.NewBase(d.pos), X: p.transduceExpr(d)}
}

var compoundBaseOp = map[string]lexer.TokenType{
	"+=": lexer.TokenPlus,
	"-=": lexer.TokenMinus,
	"*=": lexer.TokenStar,
	"/=": lexer.TokenSlash,
	"%=": lexer.TokenPercent,
}

func (p *parser) transduceBlock(d *datum) *ast.BlockStmt {
	if d.isList() && d.head() == "block" {
		s := p.transduceStmt(d)
		if b, ok := s.(*ast.BlockStmt); ok {
			return b
		}
	}
	// a single bare statement used where a block is expected
	s := p.transduceStmt(d)
	if s == nil {
		return &ast.BlockStmt{Base: ast.NewBase(d.pos)}
	}
	return &ast.BlockStmt{Base: ast.NewBase(d.pos), Stmts: []ast.Stmt{s}}
}

func (p *parser) transduceIf(d *datum) *ast.IfStmt {
	args := d.args()
	if len(args) < 2 {
		p.errorf(d.pos, "(if cond then else?) expects at least a condition and a then-branch")
		return &ast.IfStmt{Base: ast.NewBase(d.pos)}
	}
	n := &ast.IfStmt{Base: ast.NewBase(d.pos), Cond: p.transduceExpr(args[0]), Then: p.transduceBlock(args[1])}
	if len(args) >= 3 {
		if args[2].isList() && args[2].head() == "if" {
			n.Else = p.transduceIf(args[2])
		} else {
			n.Else = p.transduceBlock(args[2])
		}
	}
	return n
}

func (p *parser) transduceMatch(d *datum) *ast.MatchStmt {
	args := d.args()
	if len(args) < 1 {
		p.errorf(d.pos, "(match subject cases...) expects a subject")
		return &ast.MatchStmt{Base: ast.NewBase(d.pos)}
	}
	n := &ast.MatchStmt{Base: ast.NewBase(d.pos), Subject: p.transduceExpr(args[0])}
	for _, c := range args[1:] {
		if !c.isList() {
			p.errorf(c.pos, "expected (case value body) or (default body)")
			continue
		}
		switch c.head() {
		case "default":
			ca := c.args()
			if len(ca) != 1 {
				p.errorf(c.pos, "(default body) expects exactly one argument")
				continue
			}
			n.Default = p.transduceBlock(ca[0])
		case "case":
			ca := c.args()
			if len(ca) != 2 {
				p.errorf(c.pos, "(case value body) expects exactly two arguments")
				continue
			}
			n.Cases = append(n.Cases, ast.MatchCase{Value: p.transduceExpr(ca[0]), Body: p.transduceBlock(ca[1])})
		default:
			p.errorf(c.pos, "expected 'case' or 'default', got %q", c.head())
		}
	}
	return n
}

// ---- expressions ----

var binaryOps = map[string]lexer.TokenType{
	"+": lexer.TokenPlus, "-": lexer.TokenMinus, "*": lexer.TokenStar,
	"/": lexer.TokenSlash, "%": lexer.TokenPercent,
	"==": lexer.TokenEq, "!=": lexer.TokenNeq,
	"<": lexer.TokenLt, "<=": lexer.TokenLeq, ">": lexer.TokenGt, ">=": lexer.TokenGeq,
	"&&": lexer.TokenAndAnd, "||": lexer.TokenOrOr,
	"&": lexer.TokenAmp, "|": lexer.TokenPipe, "^": lexer.TokenCaret,
	"<<": lexer.TokenShl, ">>": lexer.TokenShr,
}

var unaryOps = map[string]lexer.TokenType{
	"-": lexer.TokenMinus, "!": lexer.TokenBang, "~": lexer.TokenTilde,
	"&": lexer.TokenAmp, "*": lexer.TokenStar,
}

var reducerNames = map[string]ast.ReducerKind{
	"product": ast.ReducerProduct, "sum": ast.ReducerSum, "count": ast.ReducerCount,
	"min": ast.ReducerMin, "max": ast.ReducerMax,
}

func (p *parser) transduceExpr(d *datum) ast.Expr {
	if !d.isList() {
		switch {
		case d.isInt:
			return &ast.IntLit{Base: ast.NewBase(d.pos), Value: d.intVal}
		case d.isFloat:
			return &ast.FloatLit{Base: ast.NewBase(d.pos), Value: d.floatVal}
		case d.isString:
			return &ast.StringLit{Base: ast.NewBase(d.pos), Value: d.strVal}
		case d.sym == "null":
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		default:
			return &ast.Ident{Base: ast.NewBase(d.pos), Name: d.sym}
		}
	}

	head := d.head()
	args := d.args()

	if op, ok := binaryOps[head]; ok && len(args) == 2 {
		return &ast.BinaryExpr{Base: ast.NewBase(d.pos), Op: op, Left: p.transduceExpr(args[0]), Right: p.transduceExpr(args[1])}
	}
	if op, ok := unaryOps[head]; ok && len(args) == 1 {
		return &ast.UnaryExpr{Base: ast.NewBase(d.pos), Op: op, X: p.transduceExpr(args[0])}
	}

	switch head {
	case "?":
		if len(args) != 3 {
			p.errorf(d.pos, "(? cond then else) expects exactly three arguments")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.TernaryExpr{
			Base: ast.NewBase(d.pos),
			Cond: p.transduceExpr(args[0]), Then: p.transduceExpr(args[1]), Else: p.transduceExpr(args[2]),
		}

	case ".":
		if len(args) != 2 {
			p.errorf(d.pos, "(. x field) expects exactly two arguments")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.FieldExpr{Base: ast.NewBase(d.pos), X: p.transduceExpr(args[0]), Name: args[1].sym}

	case "[]":
		if len(args) != 2 {
			p.errorf(d.pos, "([] x index) expects exactly two arguments")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.IndexExpr{Base: ast.NewBase(d.pos), X: p.transduceExpr(args[0]), Index: p.transduceExpr(args[1])}

	case "as":
		if len(args) != 2 {
			p.errorf(d.pos, "(as x Type) expects exactly two arguments")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.CastExpr{Base: ast.NewBase(d.pos), X: p.transduceExpr(args[0]), Type: p.transduceType(args[1])}

	case "sz":
		if len(args) != 1 {
			p.errorf(d.pos, "(sz Type) expects exactly one argument")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.SizeofExpr{Base: ast.NewBase(d.pos), Type: p.transduceType(args[0])}

	case "ct":
		if len(args) != 1 {
			p.errorf(d.pos, "(ct expr) expects exactly one argument")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.ComptimeExpr{Base: ast.NewBase(d.pos), X: p.transduceExpr(args[0])}

	case "nw":
		if len(args) < 1 {
			p.errorf(d.pos, "(nw Type fields...) expects at least a type")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		if nt, ok := p.transduceType(args[0]).(*ast.NamedTypeExpr); ok && len(args) > 1 {
			return &ast.StructInitExpr{Base: ast.NewBase(d.pos), TypeName: nt.Name, Fields: p.transduceFields(args[1:]), Heap: true}
		}
		return &ast.NewExpr{Base: ast.NewBase(d.pos), Type: p.transduceType(args[0])}

	case "mk":
		if len(args) < 1 {
			p.errorf(d.pos, "(mk TypeName fields...) expects at least a type name")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.StructInitExpr{Base: ast.NewBase(d.pos), TypeName: args[0].sym, Fields: p.transduceFields(args[1:]), Heap: false}

	case "..", "..=":
		if len(args) != 2 {
			p.errorf(d.pos, "(%s start end) expects exactly two arguments", head)
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		return &ast.RangeExpr{Base: ast.NewBase(d.pos), Start: p.transduceExpr(args[0]), End: p.transduceExpr(args[1]), Inclusive: head == "..="}

	case "|>":
		if len(args) != 2 {
			p.errorf(d.pos, "(|> x f) expects exactly two arguments")
			return &ast.NullLit{Base: ast.NewBase(d.pos)}
		}
		x := p.transduceExpr(args[0])
		rhs := p.transduceExpr(args[1])
		if call, ok := rhs.(*ast.CallExpr); ok {
			call.Args = append([]ast.Expr{x}, call.Args...)
			return call
		}
		return &ast.CallExpr{Base: ast.NewBase(d.pos), Callee: rhs, Args: []ast.Expr{x}}
	}

	if kind, ok := reducerNames[head]; ok && len(args) == 1 {
		if rng, ok := p.transduceExpr(args[0]).(*ast.RangeExpr); ok {
			return &ast.ReducerExpr{Base: ast.NewBase(d.pos), Kind: kind, Range: rng}
		}
	}

	// anything else in head position is a function call: a bare symbol
	// names a free function, a nested list is an indirect-call callee
	// expression (e.g. a field access yielding a function pointer).
	var callee ast.Expr
	if d.list[0].isList() {
		callee = p.transduceExpr(d.list[0])
	} else {
		callee = &ast.Ident{Base: ast.NewBase(d.list[0].pos), Name: head}
	}
	call := &ast.CallExpr{Base: ast.NewBase(d.pos), Callee: callee}
	for _, a := range args {
		call.Args = append(call.Args, p.transduceExpr(a))
	}
	return call
}

func (p *parser) transduceFields(data []*datum) []ast.StructInitField {
	var fields []ast.StructInitField
	for _, f := range data {
		if !f.isList() || len(f.list) != 2 {
			p.errorf(f.pos, "expected (field value)")
			continue
		}
		fields = append(fields, ast.StructInitField{Name: f.list[0].sym, Value: p.transduceExpr(f.list[1])})
	}
	return fields
}
