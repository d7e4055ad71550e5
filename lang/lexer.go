package lang

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize converts source text into a token stream terminated by a single
// [TokenEOF] token. Comments and whitespace are discarded.
//
// Interpolated strings are returned as one [TokenInterp] token whose holes
// carry their own nested token spans.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}

	return lx.scanAll()
}

// lexer holds the scanner state.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func (lx *lexer) scanAll() ([]Token, error) {
	toks := make([]Token, 0, len(lx.src)/4+1)

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) position() Position {
	return Position{Offset: lx.pos, Line: lx.line, Column: lx.col}
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.src) }

func (lx *lexer) peek() rune { return lx.peekAt(0) }

// peekAt returns the rune n bytes ahead (ASCII lookahead only).
func (lx *lexer) peekAt(n int) rune {
	if lx.pos+n >= len(lx.src) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos+n:])

	return r
}

func (lx *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])

	lx.pos += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}

	return r
}

func (lx *lexer) errorf(pos Position, format string, args ...any) error {
	return ErrLex.At(pos).Withf(format, args...)
}

// skipTrivia skips whitespace and comments.
func (lx *lexer) skipTrivia() error {
	for !lx.eof() {
		switch r := lx.peek(); {
		case unicode.IsSpace(r):
			lx.advance()

		case r == '/' && lx.peekAt(1) == '/':
			for !lx.eof() && lx.peek() != '\n' {
				lx.advance()
			}

		case r == '/' && lx.peekAt(1) == '*':
			start := lx.position()

			lx.advance()
			lx.advance()

			for {
				if lx.eof() {
					return lx.errorf(start, "unterminated block comment")
				}

				if lx.peek() == '*' && lx.peekAt(1) == '/' {
					lx.advance()
					lx.advance()

					break
				}

				lx.advance()
			}

		default:
			return nil
		}
	}

	return nil
}

// next scans one token.
func (lx *lexer) next() (Token, error) {
	if err := lx.skipTrivia(); err != nil {
		return Token{}, err
	}

	pos := lx.position()

	if lx.eof() {
		return Token{Kind: TokenEOF, Pos: pos}, nil
	}

	r := lx.peek()

	switch {
	case isIdentifierStart(r):
		return lx.scanWord(pos), nil

	case isDigit(r) || (r == '.' && isDigit(lx.peekAt(1))):
		return lx.scanNumber(pos)

	case r == '"':
		lx.advance()

		s, err := lx.scanStringBody(pos)
		if err != nil {
			return Token{}, err
		}

		return Token{
			Kind: TokenString,
			Text: lx.src[pos.Offset:lx.pos],
			Pos:  pos,
			Str:  s,
		}, nil

	case r == '$' && lx.peekAt(1) == '"':
		return lx.scanInterpolated(pos)
	}

	for _, p := range punctuators {
		if strings.HasPrefix(lx.src[lx.pos:], p) {
			for range p {
				lx.advance()
			}

			return Token{Kind: TokenPunct, Text: p, Pos: pos}, nil
		}
	}

	return Token{}, lx.errorf(pos, "unexpected character %q", r)
}

func (lx *lexer) scanWord(pos Position) Token {
	for !lx.eof() && isIdentifierContinue(lx.peek()) {
		lx.advance()
	}

	word := lx.src[pos.Offset:lx.pos]

	kind := TokenIdent
	if _, ok := keywords[word]; ok {
		kind = TokenKeyword
	}

	return Token{Kind: kind, Text: word, Pos: pos}
}

// scanNumber scans integer and real literals. Validation of digit
// separators and range is delegated to parseIntLiteral/parseRealLiteral.
func (lx *lexer) scanNumber(pos Position) (Token, error) {
	if lx.peek() == '0' {
		switch lx.peekAt(1) {
		case 'x', 'X', 'b', 'B':
			lx.advance()
			lx.advance()

			for !lx.eof() && (isHexDigit(lx.peek()) || lx.peek() == '_') {
				lx.advance()
			}

			return lx.finishInt(pos)
		}
	}

	isReal := false

	lx.scanDigits()

	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		isReal = true

		lx.advance()
		lx.scanDigits()
	}

	if r := lx.peek(); r == 'e' || r == 'E' {
		next := lx.peekAt(1)
		if isDigit(next) ||
			((next == '+' || next == '-') && isDigit(lx.peekAt(2))) {
			isReal = true

			lx.advance()

			if next == '+' || next == '-' {
				lx.advance()
			}

			lx.scanDigits()
		}
	}

	kind := TokenDouble

	switch lx.peek() {
	case 'f', 'F':
		kind = TokenFloat
		isReal = true

		lx.advance()

	case 'd', 'D':
		isReal = true

		lx.advance()
	}

	if isIdentifierContinue(lx.peek()) {
		lx.advance()

		return Token{}, lx.errorf(pos, "malformed numeric literal %q",
			lx.src[pos.Offset:lx.pos])
	}

	if !isReal {
		return lx.finishInt(pos)
	}

	text := lx.src[pos.Offset:lx.pos]

	v, err := parseRealLiteral(strings.TrimRight(text, "fFdD"))
	if err != nil {
		return Token{}, ErrLex.At(pos).Wrap(err)
	}

	if kind == TokenFloat {
		v = float64(float32(v))
	}

	return Token{Kind: kind, Text: text, Pos: pos, Real: v}, nil
}

func (lx *lexer) scanDigits() {
	for !lx.eof() && (isDigit(lx.peek()) || lx.peek() == '_') {
		lx.advance()
	}
}

func (lx *lexer) finishInt(pos Position) (Token, error) {
	if isIdentifierContinue(lx.peek()) {
		lx.advance()

		return Token{}, lx.errorf(pos, "malformed numeric literal %q",
			lx.src[pos.Offset:lx.pos])
	}

	text := lx.src[pos.Offset:lx.pos]

	v, err := parseIntLiteral(text)
	if err != nil {
		return Token{}, ErrLex.At(pos).Wrap(err)
	}

	return Token{Kind: TokenInt, Text: text, Pos: pos, Int: v}, nil
}

// scanStringBody scans after an opening quote up to and including the
// closing quote, returning the decoded contents.
func (lx *lexer) scanStringBody(start Position) (string, error) {
	var sb strings.Builder

	for {
		if lx.eof() || lx.peek() == '\n' {
			return "", lx.errorf(start, "unterminated string literal")
		}

		r := lx.advance()

		switch r {
		case '"':
			return sb.String(), nil

		case '\\':
			if err := lx.scanEscape(&sb); err != nil {
				return "", err
			}

		default:
			sb.WriteRune(r)
		}
	}
}

func (lx *lexer) scanEscape(sb *strings.Builder) error {
	pos := lx.position()

	if lx.eof() {
		return lx.errorf(pos, "unterminated escape sequence")
	}

	switch r := lx.advance(); r {
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case '0':
		sb.WriteByte(0)
	case '\\', '"', '\'', '{', '}':
		sb.WriteRune(r)
	case 'u':
		if lx.pos+4 > len(lx.src) {
			return lx.errorf(pos, "malformed unicode escape")
		}

		n, err := strconv.ParseUint(lx.src[lx.pos:lx.pos+4], 16, 32)
		if err != nil {
			return lx.errorf(pos, "malformed unicode escape")
		}

		for range 4 {
			lx.advance()
		}

		sb.WriteRune(rune(n))
	default:
		return lx.errorf(pos, "unknown escape sequence \\%c", r)
	}

	return nil
}

// scanInterpolated scans $"...". Each {hole} is scanned by re-entering
// next() until the brace that closes the hole, which is what allows holes
// to contain strings and further interpolated strings.
func (lx *lexer) scanInterpolated(pos Position) (Token, error) {
	lx.advance() // $
	lx.advance() // "

	var (
		parts []InterpPart
		text  strings.Builder
		tpos  = lx.position()
	)

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, InterpPart{Text: text.String(), Pos: tpos})
			text.Reset()
		}
	}

	for {
		if lx.eof() || lx.peek() == '\n' {
			return Token{}, lx.errorf(pos, "unterminated interpolated string")
		}

		switch r := lx.peek(); {
		case r == '"':
			lx.advance()
			flush()

			return Token{
				Kind:  TokenInterp,
				Text:  lx.src[pos.Offset:lx.pos],
				Pos:   pos,
				Parts: parts,
			}, nil

		case r == '{' && lx.peekAt(1) == '{':
			lx.advance()
			lx.advance()
			text.WriteByte('{')

		case r == '}' && lx.peekAt(1) == '}':
			lx.advance()
			lx.advance()
			text.WriteByte('}')

		case r == '}':
			return Token{}, lx.errorf(lx.position(),
				"unmatched '}' in interpolated string")

		case r == '{':
			flush()

			hole, err := lx.scanHole()
			if err != nil {
				return Token{}, err
			}

			parts = append(parts, hole)
			tpos = lx.position()

		case r == '\\':
			lx.advance()

			if err := lx.scanEscape(&text); err != nil {
				return Token{}, err
			}

		default:
			if text.Len() == 0 {
				tpos = lx.position()
			}

			text.WriteRune(lx.advance())
		}
	}
}

// scanHole scans "{expr}" or "{expr:format}" inside an interpolated string.
func (lx *lexer) scanHole() (InterpPart, error) {
	open := lx.position()
	lx.advance() // {

	var (
		toks    []Token
		depth   int // nesting of ( [ { inside the hole
		ternary int // pending '?' awaiting their ':'
		format  string
		holePos = lx.position()
	)

	for {
		tok, err := lx.next()
		if err != nil {
			return InterpPart{}, err
		}

		if tok.Kind == TokenEOF {
			return InterpPart{}, lx.errorf(open, "unterminated interpolation hole")
		}

		if tok.Kind == TokenPunct {
			switch tok.Text {
			case "(", "[", "{":
				depth++

			case ")", "]":
				depth--

			case "}":
				if depth == 0 {
					goto done
				}

				depth--

			case "?":
				if depth == 0 {
					ternary++
				}

			case ":":
				if depth == 0 {
					if ternary > 0 {
						ternary--

						break
					}

					format, err = lx.scanFormat(open)
					if err != nil {
						return InterpPart{}, err
					}

					goto done
				}
			}
		}

		toks = append(toks, tok)
	}

done:
	if len(toks) == 0 {
		return InterpPart{}, lx.errorf(open, "empty interpolation hole")
	}

	toks = append(toks, Token{Kind: TokenEOF, Pos: lx.position()})

	return InterpPart{Tokens: toks, Format: format, Pos: holePos}, nil
}

// scanFormat reads the raw format specifier after ':' up to the closing
// brace of the hole, consuming that brace.
func (lx *lexer) scanFormat(open Position) (string, error) {
	start := lx.pos

	for {
		if lx.eof() || lx.peek() == '"' || lx.peek() == '\n' {
			return "", lx.errorf(open, "unterminated interpolation hole")
		}

		if lx.peek() == '}' {
			spec := lx.src[start:lx.pos]
			lx.advance()

			return strings.TrimSpace(spec), nil
		}

		lx.advance()
	}
}

func isIdentifierStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentifierContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
