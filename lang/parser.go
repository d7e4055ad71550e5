package lang

import (
	"context"
	"log/slog"

	"github.com/ardnew/botscript/log"
)

// ParseString tokenizes and parses source text.
func ParseString(
	ctx context.Context,
	src string,
	sigs ...FunctionSignature,
) (*File, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	return Parse(ctx, toks, sigs...)
}

// Parse builds a syntax tree from a token stream and validates declaration
// and control-flow shape. Every signature in sigs must be defined by the
// script with a matching shape.
func Parse(
	ctx context.Context,
	toks []Token,
	sigs ...FunctionSignature,
) (*File, error) {
	return parseWith(ctx, log.Logger{}, toks, sigs...)
}

func parseWith(
	ctx context.Context,
	logger log.Logger,
	toks []Token,
	sigs ...FunctionSignature,
) (*File, error) {
	p := newParser(logger, toks)

	file, err := p.parseFile()
	if err != nil {
		return nil, err
	}

	if err := checkEntryPoints(file, sigs); err != nil {
		return nil, err
	}

	p.logger.TraceContext(ctx, "parse complete",
		slog.Int("tokens", len(toks)),
		slog.Int("decls", len(file.Decls)))

	return file, nil
}

// parser holds the parser state.
type parser struct {
	toks   []Token
	i      int
	fn     *funcState
	logger log.Logger
}

// funcState tracks the function body being parsed.
type funcState struct {
	decl   *FuncDecl
	scopes []*localScope
	loops  int
}

// localScope records the names declared in a block and the simple names
// referenced while the block was open but not resolved to a local yet.
type localScope struct {
	names map[string]Position
	used  map[string]Position
}

func newLocalScope() *localScope {
	return &localScope{
		names: make(map[string]Position),
		used:  make(map[string]Position),
	}
}

// --- token helpers ---

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.i+n]
}

func (p *parser) advance() Token {
	t := p.toks[p.i]
	if t.Kind != TokenEOF {
		p.i++
	}

	return t
}

func (p *parser) eof() bool { return p.peek().Kind == TokenEOF }

func (p *parser) position() Position { return p.peek().Pos }

func (p *parser) atPunct(s string) bool { return p.peek().isPunct(s) }

func (p *parser) atKeyword(s string) bool { return p.peek().isKeyword(s) }

// accept consumes the punctuation s if present.
func (p *parser) accept(s string) bool {
	if p.atPunct(s) {
		p.advance()

		return true
	}

	return false
}

// expect consumes the punctuation s or fails.
func (p *parser) expect(s string) (Token, error) {
	if !p.atPunct(s) {
		return Token{}, p.unexpected("'" + s + "'")
	}

	return p.advance(), nil
}

func (p *parser) expectIdent() (Token, error) {
	if p.peek().Kind != TokenIdent {
		return Token{}, p.unexpected("identifier")
	}

	return p.advance(), nil
}

func (p *parser) unexpected(expected string) error {
	tok := p.peek()

	return ErrParse.At(tok.Pos).
		Withf("unexpected %s", tok.describe()).
		With(slog.String("expected", expected))
}

func (p *parser) errorf(pos Position, format string, args ...any) error {
	return ErrParse.At(pos).Withf(format, args...)
}

// adjacent reports whether the token n ahead starts right where the token
// before it ends, with no trivia in between.
func (p *parser) adjacent(n int) bool {
	prev, next := p.peekN(n-1), p.peekN(n)

	return next.Pos.Offset == prev.Pos.Offset+len(prev.Text)
}

// --- scopes ---

func (p *parser) pushScope() {
	if p.fn != nil {
		p.fn.scopes = append(p.fn.scopes, newLocalScope())
	}
}

func (p *parser) popScope() {
	if p.fn != nil {
		p.fn.scopes = p.fn.scopes[:len(p.fn.scopes)-1]
	}
}

// declare adds a local to the innermost scope.
func (p *parser) declare(name string, pos Position) error {
	if p.fn == nil {
		return nil
	}

	s := p.fn.scopes[len(p.fn.scopes)-1]

	if prev, ok := s.names[name]; ok {
		return p.errorf(pos, "duplicate declaration of '%s' (previous at %s)",
			name, prev)
	}

	if used, ok := s.used[name]; ok {
		return p.errorf(used, "local variable '%s' used before its declaration",
			name)
	}

	s.names[name] = pos

	return nil
}

// use records a reference to a simple name.
func (p *parser) use(name string, pos Position) {
	if p.fn == nil {
		return
	}

	for i := len(p.fn.scopes) - 1; i >= 0; i-- {
		s := p.fn.scopes[i]
		if _, ok := s.names[name]; ok {
			return
		}

		if _, ok := s.used[name]; !ok {
			s.used[name] = pos
		}
	}
}

// --- declarations ---

func (p *parser) parseFile() (*File, error) {
	file := new(File)
	seen := make(map[string]Position)

	for !p.eof() {
		decl, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}

		var name string

		switch d := decl.(type) {
		case *VarDecl:
			name = d.Name
		case *ClassDecl:
			name = d.Name
		case *FuncDecl:
			name = "" // overloads share a name
		}

		if name != "" {
			if prev, ok := seen[name]; ok {
				return nil, p.errorf(decl.Pos(),
					"duplicate declaration of '%s' (previous at %s)", name, prev)
			}

			seen[name] = decl.Pos()
		}

		file.Decls = append(file.Decls, decl)
	}

	return file, nil
}

func (p *parser) parseTopLevel() (Node, error) {
	if p.atKeyword("class") {
		return p.parseClass()
	}

	mod := ModNone

	switch {
	case p.atKeyword("global"):
		mod = ModGlobal
	case p.atKeyword("const"):
		mod = ModConst
	case p.atKeyword("extern"):
		mod = ModExtern
	}

	if mod != ModNone {
		p.advance()
	}

	pos := p.position()

	typ, err := p.parseType(true)
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if mod == ModNone && (p.atPunct("(") || p.atPunct("<")) {
		return p.parseFuncRest(pos, typ, name.Text)
	}

	if typ.Name == "void" {
		return nil, p.errorf(pos, "variable '%s' cannot have type void", name.Text)
	}

	decl := &VarDecl{At: name.Pos, Mod: mod, Type: typ, Name: name.Text}

	if p.accept("=") {
		if mod == ModExtern {
			return nil, p.errorf(name.Pos,
				"extern variable '%s' cannot have an initializer", name.Text)
		}

		if decl.Init, err = p.parseExpr(); err != nil {
			return nil, err
		}
	} else if mod == ModConst {
		return nil, p.errorf(name.Pos, "const '%s' requires an initializer",
			name.Text)
	}

	if typ.IsVar() && decl.Init == nil {
		return nil, p.errorf(name.Pos,
			"implicitly typed variable '%s' requires an initializer", name.Text)
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	return decl, nil
}

func (p *parser) parseTypeParams() ([]string, error) {
	if !p.accept("<") {
		return nil, nil
	}

	var (
		params []string
		seen   = make(map[string]bool)
	)

	for {
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}

		if seen[tok.Text] {
			return nil, p.errorf(tok.Pos, "duplicate type parameter '%s'", tok.Text)
		}

		seen[tok.Text] = true
		params = append(params, tok.Text)

		if !p.accept(",") {
			break
		}
	}

	if _, err := p.expect(">"); err != nil {
		return nil, err
	}

	return params, nil
}

// parseFuncRest parses a function after its return type and name.
func (p *parser) parseFuncRest(
	pos Position,
	ret *TypeExpr,
	name string,
) (*FuncDecl, error) {
	fn := &FuncDecl{At: pos, Ret: ret, Name: name}

	var err error

	if fn.TypeParams, err = p.parseTypeParams(); err != nil {
		return nil, err
	}

	outer := p.fn
	p.fn = &funcState{decl: fn, scopes: []*localScope{newLocalScope()}}

	defer func() { p.fn = outer }()

	if fn.Params, err = p.parseParams(); err != nil {
		return nil, err
	}

	if ret != nil && ret.IsVar() && !p.atPunct("=>") {
		return nil, p.errorf(pos,
			"only expression-bodied functions may infer their return type")
	}

	if p.accept("=>") {
		if fn.Expr, err = p.parseExpr(); err != nil {
			return nil, err
		}

		if _, err := p.expect(";"); err != nil {
			return nil, err
		}

		return fn, nil
	}

	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}

	if err := checkFunctionFlow(fn); err != nil {
		return nil, err
	}

	return fn, nil
}

func (p *parser) parseParams() ([]*Param, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var params []*Param

	for !p.atPunct(")") {
		if len(params) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}

		pos := p.position()
		mod := ByValue

		switch {
		case p.atKeyword("ref"):
			mod = ByRef

			p.advance()

		case p.atKeyword("out"):
			mod = ByOut

			p.advance()
		}

		typ, err := p.parseType(false)
		if err != nil {
			return nil, err
		}

		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}

		if err := p.declare(name.Text, name.Pos); err != nil {
			return nil, err
		}

		params = append(params, &Param{At: pos, Mod: mod, Type: typ, Name: name.Text})
	}

	p.advance() // )

	return params, nil
}

func (p *parser) parseClass() (*ClassDecl, error) {
	pos := p.advance().Pos // class

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	cls := &ClassDecl{At: pos, Name: name.Text}

	if cls.TypeParams, err = p.parseTypeParams(); err != nil {
		return nil, err
	}

	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	members := make(map[string]Position)

	for !p.accept("}") {
		if p.eof() {
			return nil, p.unexpected("'}'")
		}

		mpos := p.position()

		// Constructor: ClassName(
		if p.peek().is(TokenIdent, cls.Name) && p.peekN(1).isPunct("(") {
			p.advance()

			ctor, err := p.parseFuncRest(mpos, nil, cls.Name)
			if err != nil {
				return nil, err
			}

			cls.Ctors = append(cls.Ctors, ctor)

			continue
		}

		typ, err := p.parseType(true)
		if err != nil {
			return nil, err
		}

		mname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}

		if p.atPunct("(") || p.atPunct("<") {
			m, err := p.parseFuncRest(mpos, typ, mname.Text)
			if err != nil {
				return nil, err
			}

			if prev, ok := members[m.Name]; ok && !isMethodName(cls, m.Name) {
				return nil, p.errorf(mpos,
					"duplicate member '%s' (previous at %s)", m.Name, prev)
			}

			members[m.Name] = mpos
			cls.Methods = append(cls.Methods, m)

			continue
		}

		if prev, ok := members[mname.Text]; ok {
			return nil, p.errorf(mname.Pos,
				"duplicate member '%s' (previous at %s)", mname.Text, prev)
		}

		members[mname.Text] = mname.Pos

		field := &VarDecl{At: mname.Pos, Type: typ, Name: mname.Text}

		if p.accept("=") {
			if field.Init, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}

		if typ.IsVar() {
			return nil, p.errorf(mname.Pos, "field '%s' cannot be implicitly typed",
				mname.Text)
		}

		if _, err := p.expect(";"); err != nil {
			return nil, err
		}

		cls.Fields = append(cls.Fields, field)
	}

	return cls, nil
}

// isMethodName reports whether name already names a method of cls, in which
// case another method of the same name is an overload.
func isMethodName(cls *ClassDecl, name string) bool {
	for _, m := range cls.Methods {
		if m.Name == name {
			return true
		}
	}

	return false
}

// --- statements ---

func (p *parser) parseBlock() (*Block, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}

	p.pushScope()
	defer p.popScope()

	block := &Block{At: open.Pos}

	for !p.accept("}") {
		if p.eof() {
			return nil, p.unexpected("'}'")
		}

		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}

		block.Stmts = append(block.Stmts, s)
	}

	return block, nil
}

// parseEmbedded parses the body of if/while/for/foreach in its own scope so
// a declaration there cannot leak.
func (p *parser) parseEmbedded() (Stmt, error) {
	if p.atPunct("{") {
		return p.parseBlock()
	}

	p.pushScope()
	defer p.popScope()

	return p.parseStmt()
}

func (p *parser) parseStmt() (Stmt, error) {
	tok := p.peek()

	switch {
	case tok.isPunct("{"):
		return p.parseBlock()

	case tok.isPunct(";"):
		p.advance()

		return &EmptyStmt{At: tok.Pos}, nil

	case tok.isKeyword("if"):
		return p.parseIf()

	case tok.isKeyword("while"):
		return p.parseWhile()

	case tok.isKeyword("for"):
		return p.parseFor()

	case tok.isKeyword("foreach"):
		return p.parseForeach()

	case tok.isKeyword("break"), tok.isKeyword("continue"):
		p.advance()

		if p.fn == nil || p.fn.loops == 0 {
			return nil, p.errorf(tok.Pos, "'%s' outside of a loop", tok.Text)
		}

		if _, err := p.expect(";"); err != nil {
			return nil, err
		}

		if tok.Text == "break" {
			return &BreakStmt{At: tok.Pos}, nil
		}

		return &ContinueStmt{At: tok.Pos}, nil

	case tok.isKeyword("return"):
		return p.parseReturn()

	case tok.isKeyword("const"):
		return nil, p.errorf(tok.Pos, "const declarations are only allowed at top level")
	}

	if p.isDeclStart() {
		d, err := p.parseDeclStmt()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(";"); err != nil {
			return nil, err
		}

		return d, nil
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	return &ExprStmt{At: tok.Pos, X: x}, nil
}

func (p *parser) parseReturn() (Stmt, error) {
	tok := p.advance()
	ret := &ReturnStmt{At: tok.Pos}

	if !p.atPunct(";") {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		ret.X = x
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if p.fn != nil {
		fn := p.fn.decl

		switch {
		case ret.X == nil && !fn.IsVoid():
			return nil, p.errorf(tok.Pos,
				"function '%s' returns %s; bare 'return;' is not allowed",
				fn.Name, fn.Ret)

		case ret.X != nil && fn.IsVoid():
			return nil, p.errorf(tok.Pos,
				"function '%s' returns void; 'return' cannot carry a value",
				fn.Name)
		}
	}

	return ret, nil
}

// isDeclStart reports whether the statement at the cursor is a local
// variable declaration: a type followed by an identifier.
func (p *parser) isDeclStart() bool {
	tok := p.peek()

	if tok.Kind == TokenKeyword {
		switch tok.Text {
		case "int", "float", "double", "bool", "string", "var":
			// "int.Parse(...)" is an expression.
			return !p.peekN(1).isPunct(".")
		}

		return false
	}

	if tok.Kind != TokenIdent {
		return false
	}

	save := p.i
	defer func() { p.i = save }()

	if _, err := p.parseType(false); err != nil {
		return false
	}

	return p.peek().Kind == TokenIdent
}

func (p *parser) parseDeclStmt() (*DeclStmt, error) {
	pos := p.position()

	typ, err := p.parseType(false)
	if err != nil {
		return nil, err
	}

	stmt := &DeclStmt{At: pos}

	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}

		v := &VarDecl{At: name.Pos, Type: typ, Name: name.Text}

		if p.accept("=") {
			if v.Init, err = p.parseExpr(); err != nil {
				return nil, err
			}
		} else if typ.IsVar() {
			return nil, p.errorf(name.Pos,
				"implicitly typed variable '%s' requires an initializer", name.Text)
		}

		// Declared after the initializer: "int x = x;" refers to an outer x.
		if err := p.declare(name.Text, name.Pos); err != nil {
			return nil, err
		}

		stmt.Vars = append(stmt.Vars, v)

		if !p.accept(",") {
			return stmt, nil
		}
	}
}

func (p *parser) parseCond() (Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	return x, nil
}

func (p *parser) parseIf() (Stmt, error) {
	pos := p.advance().Pos

	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}

	then, err := p.parseEmbedded()
	if err != nil {
		return nil, err
	}

	stmt := &IfStmt{At: pos, Cond: cond, Then: then}

	if p.atKeyword("else") {
		p.advance()

		if stmt.Else, err = p.parseEmbedded(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

func (p *parser) parseLoopBody() (Stmt, error) {
	if p.fn != nil {
		p.fn.loops++
		defer func() { p.fn.loops-- }()
	}

	return p.parseEmbedded()
}

func (p *parser) parseWhile() (Stmt, error) {
	pos := p.advance().Pos

	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}

	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}

	return &WhileStmt{At: pos, Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (Stmt, error) {
	pos := p.advance().Pos

	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	p.pushScope()
	defer p.popScope()

	stmt := &ForStmt{At: pos}

	if !p.atPunct(";") {
		if p.isDeclStart() {
			d, err := p.parseDeclStmt()
			if err != nil {
				return nil, err
			}

			stmt.Init = append(stmt.Init, d)
		} else {
			xs, err := p.parseExprList(";")
			if err != nil {
				return nil, err
			}

			for _, x := range xs {
				stmt.Init = append(stmt.Init, &ExprStmt{At: x.Pos(), X: x})
			}
		}
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if !p.atPunct(";") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		stmt.Cond = cond
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if !p.atPunct(")") {
		xs, err := p.parseExprList(")")
		if err != nil {
			return nil, err
		}

		stmt.Post = xs
	}

	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	return stmt, nil
}

// parseExprList parses comma-separated expressions up to (not including)
// the terminator.
func (p *parser) parseExprList(term string) ([]Expr, error) {
	var xs []Expr

	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		xs = append(xs, x)

		if p.atPunct(term) || !p.accept(",") {
			return xs, nil
		}
	}
}

func (p *parser) parseForeach() (Stmt, error) {
	pos := p.advance().Pos

	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	typ, err := p.parseType(false)
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if !p.atKeyword("in") {
		return nil, p.unexpected("'in'")
	}

	p.advance()

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	p.pushScope()
	defer p.popScope()

	if err := p.declare(name.Text, name.Pos); err != nil {
		return nil, err
	}

	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}

	return &ForeachStmt{At: pos, Type: typ, Name: name.Text, X: x, Body: body}, nil
}

// --- standalone entry points ---

func newParser(logger log.Logger, toks []Token) *parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != TokenEOF {
		toks = append(toks, Token{Kind: TokenEOF})
	}

	return &parser{toks: toks, logger: logger}
}

func (p *parser) expectEOF() error {
	if !p.eof() {
		return p.unexpected("end of input")
	}

	return nil
}

// parseSnippet parses interactive input: one bare expression, or else a
// sequence of statements. A trailing ';' makes an expression a statement.
func parseSnippet(logger log.Logger, toks []Token) (Expr, []Stmt, error) {
	p := newParser(logger, toks)
	reset := func() {
		p.i = 0
		p.fn = &funcState{
			decl:   &FuncDecl{Name: "<eval>"},
			scopes: []*localScope{newLocalScope()},
		}
	}

	reset()

	if x, err := p.parseExpr(); err == nil {
		if p.eof() {
			return x, nil, nil
		}
	}

	reset()

	var stmts []Stmt

	for !p.eof() {
		s, err := p.parseStmt()
		if err != nil {
			return nil, nil, err
		}

		stmts = append(stmts, s)
	}

	return nil, stmts, nil
}

// parseTypeText parses a complete type such as "List<int>[]".
func parseTypeText(src string) (*TypeExpr, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := newParser(log.Logger{}, toks)

	te, err := p.parseType(true)
	if err != nil {
		return nil, err
	}

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	return te, nil
}

// parseSignatureText parses a function header such as
// "int Add(int a, ref int b)".
func parseSignatureText(src string) (*FuncDecl, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := newParser(log.Logger{}, toks)
	pos := p.position()

	ret, err := p.parseType(true)
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	fn := &FuncDecl{At: pos, Ret: ret, Name: name.Text}
	p.fn = &funcState{decl: fn, scopes: []*localScope{newLocalScope()}}

	if fn.Params, err = p.parseParams(); err != nil {
		return nil, err
	}

	p.accept(";")

	if err := p.expectEOF(); err != nil {
		return nil, err
	}

	return fn, nil
}
