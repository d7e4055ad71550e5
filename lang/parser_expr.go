package lang

// Expression grammar, lowest precedence first:
//
//	assignment  = conditional [ assignOp assignment ]
//	conditional = coalesce [ "?" expr ":" conditional ]
//	coalesce    = logicalOr [ "??" coalesce ]
//	logicalOr   = logicalAnd { "||" logicalAnd }
//	logicalAnd  = bitOr { "&&" bitOr }
//	bitOr       = bitXor { "|" bitXor }
//	bitXor      = bitAnd { "^" bitAnd }
//	bitAnd      = equality { "&" equality }
//	equality    = relational { ( "==" | "!=" ) relational }
//	relational  = shift { ( "<" | ">" | "<=" | ">=" ) shift | ( "is" | "as" ) type }
//	shift       = additive { ( "<<" | ">>" ) additive }
//	additive    = multiplicative { ( "+" | "-" ) multiplicative }
//	multiplicative = unary { ( "*" | "/" | "%" ) unary }
//	unary       = ( "+" | "-" | "!" | "~" | "++" | "--" ) unary | cast | postfix
//	postfix     = primary { "." ident [ typeArgs ] | "(" args ")" | "[" expr "]" | "++" | "--" }

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true,
}

func (p *parser) parseExpr() (Expr, error) { return p.parseAssignment() }

func (p *parser) parseAssignment() (Expr, error) {
	lhs, err := p.parseConditional()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	op := ""

	switch {
	case tok.Kind == TokenPunct && assignOps[tok.Text]:
		op = tok.Text

		p.advance()

	case tok.isPunct(">") && p.peekN(1).isPunct(">=") && p.adjacent(1):
		op = ">>="

		p.advance()
		p.advance()

	default:
		return lhs, nil
	}

	rhs, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}

	return &AssignExpr{At: tok.Pos, Op: op, Target: lhs, Value: rhs}, nil
}

func (p *parser) parseConditional() (Expr, error) {
	cond, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}

	if !p.atPunct("?") {
		return cond, nil
	}

	pos := p.advance().Pos

	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(":"); err != nil {
		return nil, err
	}

	els, err := p.parseConditional()
	if err != nil {
		return nil, err
	}

	return &CondExpr{At: pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) parseCoalesce() (Expr, error) {
	lhs, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}

	if !p.atPunct("??") {
		return lhs, nil
	}

	pos := p.advance().Pos

	rhs, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}

	return &BinaryExpr{At: pos, Op: "??", X: lhs, Y: rhs}, nil
}

// binaryLevels lists left-associative operators by increasing precedence.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="}, // plus "is" and "as"
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

const relationalLevel = 6

func (p *parser) parseBinary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}

	lhs, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		if level == relationalLevel && (tok.isKeyword("is") || tok.isKeyword("as")) {
			p.advance()

			typ, err := p.parseType(false)
			if err != nil {
				return nil, err
			}

			lhs = &TypeTestExpr{At: tok.Pos, Op: tok.Text, X: lhs, Type: typ}

			continue
		}

		op, width := p.binaryOp(level)
		if op == "" {
			return lhs, nil
		}

		for range width {
			p.advance()
		}

		rhs, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}

		lhs = &BinaryExpr{At: tok.Pos, Op: op, X: lhs, Y: rhs}
	}
}

// binaryOp returns the operator at the cursor if it belongs to level, and
// the number of tokens it spans. ">>" is spelled as two adjacent '>' tokens.
func (p *parser) binaryOp(level int) (string, int) {
	tok := p.peek()
	if tok.Kind != TokenPunct {
		return "", 0
	}

	shift := tok.Text == ">" && p.peekN(1).isPunct(">") && p.adjacent(1)
	shiftAssign := tok.Text == ">" && p.peekN(1).isPunct(">=") && p.adjacent(1)

	switch {
	case shiftAssign:
		return "", 0

	case shift:
		if level == relationalLevel+1 {
			return ">>", 2
		}

		return "", 0
	}

	for _, op := range binaryLevels[level] {
		if tok.Text == op {
			return op, 1
		}
	}

	return "", 0
}

func (p *parser) parseUnary() (Expr, error) {
	tok := p.peek()

	if tok.Kind == TokenPunct {
		switch tok.Text {
		case "+", "-", "!", "~":
			p.advance()

			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}

			// Fold negative literals so int.MinValue style constants and
			// "-1" render as literals.
			if lit, ok := x.(*Literal); ok && tok.Text == "-" {
				switch lit.Kind {
				case LitInt:
					return &Literal{At: tok.Pos, Kind: LitInt, Int: -lit.Int}, nil
				case LitFloat, LitDouble:
					return &Literal{At: tok.Pos, Kind: lit.Kind, Real: -lit.Real}, nil
				}
			}

			return &UnaryExpr{At: tok.Pos, Op: tok.Text, X: x}, nil

		case "++", "--":
			p.advance()

			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}

			return &IncDecExpr{At: tok.Pos, Op: tok.Text, Prefix: true, X: x}, nil

		case "(":
			if cast, ok, err := p.tryCast(); ok || err != nil {
				return cast, err
			}
		}
	}

	return p.parsePostfix()
}

// tryCast parses "(Type) unary" when the parenthesized tokens form a type
// and the following token can begin an operand.
func (p *parser) tryCast() (Expr, bool, error) {
	save := p.i
	open := p.advance()

	typ, err := p.parseType(false)
	if err != nil || !p.atPunct(")") {
		p.i = save

		return nil, false, nil
	}

	p.advance() // )

	if !p.castFollows(isPrimitiveName(typ.Name) && len(typ.Args) == 0) {
		p.i = save

		return nil, false, nil
	}

	x, err := p.parseUnary()
	if err != nil {
		return nil, true, err
	}

	return &CastExpr{At: open.Pos, Type: typ, X: x}, true, nil
}

// castFollows reports whether the token after ")" starts a cast operand.
// Casts to keyword types also accept a leading sign.
func (p *parser) castFollows(keywordType bool) bool {
	tok := p.peek()

	switch tok.Kind {
	case TokenIdent, TokenInt, TokenFloat, TokenDouble, TokenString, TokenInterp:
		return true

	case TokenKeyword:
		switch tok.Text {
		case "this", "new", "true", "false", "null",
			"int", "float", "double", "bool", "string":
			return true
		}

	case TokenPunct:
		switch tok.Text {
		case "(", "!", "~":
			return true
		case "+", "-", "++", "--":
			return keywordType
		}
	}

	return false
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		switch {
		case tok.isPunct("."):
			p.advance()

			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}

			m := &MemberExpr{At: name.Pos, X: x, Name: name.Text}
			m.TypeArgs = p.tryTypeArgs()
			x = m

		case tok.isPunct("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}

			x = &CallExpr{At: tok.Pos, Fun: x, Args: args}

		case tok.isPunct("["):
			p.advance()

			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect("]"); err != nil {
				return nil, err
			}

			x = &IndexExpr{At: tok.Pos, X: x, Index: idx}

		case tok.isPunct("++"), tok.isPunct("--"):
			p.advance()

			x = &IncDecExpr{At: tok.Pos, Op: tok.Text, X: x}

		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs() ([]*Arg, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var args []*Arg

	for !p.atPunct(")") {
		if len(args) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}

		arg := &Arg{}

		switch {
		case p.atKeyword("ref"):
			arg.Mod = ByRef

			p.advance()

		case p.atKeyword("out"):
			arg.Mod = ByOut

			p.advance()
		}

		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		arg.X = x
		args = append(args, arg)
	}

	p.advance() // )

	return args, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()

	switch tok.Kind {
	case TokenInt:
		p.advance()

		return &Literal{At: tok.Pos, Kind: LitInt, Int: tok.Int}, nil

	case TokenFloat:
		p.advance()

		return &Literal{At: tok.Pos, Kind: LitFloat, Real: tok.Real}, nil

	case TokenDouble:
		p.advance()

		return &Literal{At: tok.Pos, Kind: LitDouble, Real: tok.Real}, nil

	case TokenString:
		p.advance()

		return &Literal{At: tok.Pos, Kind: LitString, Str: tok.Str}, nil

	case TokenInterp:
		p.advance()

		return p.parseInterp(tok)

	case TokenIdent:
		p.advance()
		p.use(tok.Text, tok.Pos)

		return &Ident{At: tok.Pos, Name: tok.Text, TypeArgs: p.tryTypeArgs()}, nil

	case TokenKeyword:
		switch tok.Text {
		case "true", "false":
			p.advance()

			return &Literal{At: tok.Pos, Kind: LitBool, Bool: tok.Text == "true"}, nil

		case "null":
			p.advance()

			return &Literal{At: tok.Pos, Kind: LitNull}, nil

		case "this":
			p.advance()

			return &ThisExpr{At: tok.Pos}, nil

		case "new":
			return p.parseNew()

		case "int", "float", "double", "bool", "string":
			p.advance()

			return &TypeRef{At: tok.Pos, Type: &TypeExpr{At: tok.Pos, Name: tok.Text}}, nil
		}

	case TokenPunct:
		if tok.Text == "(" {
			p.advance()

			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(")"); err != nil {
				return nil, err
			}

			return x, nil
		}
	}

	return nil, p.unexpected("expression")
}

// parseInterp parses each hole of an interpolated string with a
// sub-parser sharing the current function's scopes.
func (p *parser) parseInterp(tok Token) (Expr, error) {
	x := &InterpExpr{At: tok.Pos}

	for _, part := range tok.Parts {
		if !part.IsHole() {
			x.Parts = append(x.Parts, InterpSegment{Text: part.Text})

			continue
		}

		sub := &parser{toks: part.Tokens, fn: p.fn, logger: p.logger}

		hole, err := sub.parseExpr()
		if err != nil {
			return nil, err
		}

		if !sub.eof() {
			return nil, sub.unexpected("'}'")
		}

		x.Parts = append(x.Parts, InterpSegment{X: hole, Format: part.Format})
	}

	return x, nil
}

func (p *parser) parseNew() (Expr, error) {
	pos := p.advance().Pos // new

	typ, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}

	if p.atPunct("[") {
		return p.parseNewArray(pos, typ)
	}

	x := &NewExpr{At: pos, Type: typ}

	if p.atPunct("(") {
		if x.Args, err = p.parseArgs(); err != nil {
			return nil, err
		}
	} else if !p.atPunct("{") {
		return nil, p.unexpected("'(' or '{'")
	}

	if p.atPunct("{") {
		if x.Init, err = p.parseInitializer(); err != nil {
			return nil, err
		}
	}

	return x, nil
}

// parseNewArray parses the "[n]" or "[]" suffix after "new T", followed by
// extra ranks for jagged arrays and an optional element list.
func (p *parser) parseNewArray(pos Position, elem *TypeExpr) (Expr, error) {
	p.advance() // [

	x := &NewArrayExpr{At: pos, Elem: elem}

	if !p.atPunct("]") {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		x.Len = n
	}

	if _, err := p.expect("]"); err != nil {
		return nil, err
	}

	for p.atPunct("[") && p.peekN(1).isPunct("]") {
		p.advance()
		p.advance()

		elem.Rank++
	}

	if p.accept("{") {
		for !p.accept("}") {
			if len(x.Init) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}

				if p.accept("}") {
					break
				}
			}

			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			x.Init = append(x.Init, e)
		}
	} else if x.Len == nil {
		return nil, p.unexpected("array initializer")
	}

	return x, nil
}

func (p *parser) parseInitializer() (*Initializer, error) {
	open := p.advance() // {
	init := &Initializer{At: open.Pos}

	members := p.peek().Kind == TokenIdent &&
		p.peekN(1).isPunct("=")

	for !p.accept("}") {
		if len(init.Elements)+len(init.Members) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}

			if p.accept("}") {
				break
			}
		}

		if members {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect("="); err != nil {
				return nil, err
			}

			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			init.Members = append(init.Members,
				&MemberInit{At: name.Pos, Name: name.Text, Value: v})

			continue
		}

		if p.atPunct("{") {
			lpos := p.advance().Pos

			items, err := p.parseExprList("}")
			if err != nil {
				return nil, err
			}

			if _, err := p.expect("}"); err != nil {
				return nil, err
			}

			init.Elements = append(init.Elements, &ElementList{At: lpos, Items: items})

			continue
		}

		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		init.Elements = append(init.Elements, e)
	}

	return init, nil
}

// --- types ---

func isPrimitiveName(name string) bool {
	switch name {
	case "int", "float", "double", "bool", "string", "void", "var":
		return true
	}

	return false
}

// parseType parses a type with optional array ranks. void is accepted only
// when allowVoid is set.
func (p *parser) parseType(allowVoid bool) (*TypeExpr, error) {
	if p.atKeyword("void") {
		if !allowVoid {
			return nil, p.errorf(p.position(), "void is not a valid type here")
		}

		tok := p.advance()

		return &TypeExpr{At: tok.Pos, Name: "void"}, nil
	}

	t, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}

	for p.atPunct("[") && p.peekN(1).isPunct("]") {
		p.advance()
		p.advance()

		t.Rank++
	}

	return t, nil
}

// parseTypeName parses a type name and its generic arguments, without ranks.
func (p *parser) parseTypeName() (*TypeExpr, error) {
	tok := p.peek()

	switch {
	case tok.Kind == TokenKeyword && isPrimitiveName(tok.Text) && tok.Text != "void":
		p.advance()

		return &TypeExpr{At: tok.Pos, Name: tok.Text}, nil

	case tok.Kind == TokenIdent:
		p.advance()

		t := &TypeExpr{At: tok.Pos, Name: tok.Text}

		if p.atPunct("<") {
			args, err := p.parseTypeArgs()
			if err != nil {
				return nil, err
			}

			t.Args = args
		}

		return t, nil
	}

	return nil, p.unexpected("type")
}

func (p *parser) parseTypeArgs() ([]*TypeExpr, error) {
	if _, err := p.expect("<"); err != nil {
		return nil, err
	}

	var args []*TypeExpr

	for {
		a, err := p.parseType(false)
		if err != nil {
			return nil, err
		}

		if a.IsVar() {
			return nil, p.errorf(a.At, "'var' is not a valid type argument")
		}

		args = append(args, a)

		if !p.accept(",") {
			break
		}
	}

	if _, err := p.expect(">"); err != nil {
		return nil, err
	}

	return args, nil
}

// tryTypeArgs speculatively parses "<T, ...>" after a name in expression
// position. The attempt is kept only when the closing '>' is followed by a
// token that cannot continue a comparison.
func (p *parser) tryTypeArgs() []*TypeExpr {
	if !p.atPunct("<") {
		return nil
	}

	save := p.i

	args, err := p.parseTypeArgs()
	if err == nil {
		next := p.peek()
		if next.Kind == TokenEOF || (next.Kind == TokenPunct && typeArgFollowers[next.Text]) {
			return args
		}
	}

	p.i = save

	return nil
}

var typeArgFollowers = map[string]bool{
	"(": true, ")": true, "]": true, "}": true, ".": true, ",": true,
	";": true, ":": true, "?": true, "==": true, "!=": true,
}
