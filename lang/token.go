package lang

// TokenKind classifies a [Token].
type TokenKind uint8

// Token kinds.
const (
	TokenEOF     TokenKind = iota // EOF
	TokenIdent                    // identifier
	TokenKeyword                  // keyword
	TokenInt                      // int
	TokenFloat                    // float
	TokenDouble                   // double
	TokenString                   // string
	TokenInterp                   // interpolation
	TokenPunct                    // punctuation
)

var tokenKindNames = [...]string{
	TokenEOF:     "EOF",
	TokenIdent:   "identifier",
	TokenKeyword: "keyword",
	TokenInt:     "int",
	TokenFloat:   "float",
	TokenDouble:  "double",
	TokenString:  "string",
	TokenInterp:  "interpolation",
	TokenPunct:   "punctuation",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}

	return "TokenKind(?)"
}

// Token is a single lexeme. Tokens are produced once by [Tokenize] and never
// modified afterwards.
type Token struct {
	Kind TokenKind `json:"kind"            yaml:"kind"`
	// Text is the lexeme as written in source.
	Text  string        `json:"text"            yaml:"text"`
	Pos   Position      `json:"pos"             yaml:"pos"`
	Int   int64         `json:"int,omitempty"   yaml:"int,omitempty"`
	Real  float64       `json:"real,omitempty"  yaml:"real,omitempty"`
	Str   string        `json:"str,omitempty"   yaml:"str,omitempty"`
	Parts []InterpPart  `json:"parts,omitempty" yaml:"parts,omitempty"`
}

// InterpPart is one segment of an interpolated string literal: either
// literal text, or a hole holding a nested token span (terminated by an EOF
// token) with an optional format specifier.
type InterpPart struct {
	Text   string   `json:"text,omitempty"   yaml:"text,omitempty"`
	Tokens []Token  `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Format string   `json:"format,omitempty" yaml:"format,omitempty"`
	Pos    Position `json:"pos"              yaml:"pos"`
}

// IsHole reports whether the part is an embedded expression.
func (p InterpPart) IsHole() bool { return p.Tokens != nil }

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) isPunct(text string) bool { return t.is(TokenPunct, text) }

func (t Token) isKeyword(text string) bool { return t.is(TokenKeyword, text) }

// describe renders the token for diagnostics.
func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenString, TokenInterp:
		return "string literal"
	default:
		return "'" + t.Text + "'"
	}
}

// keywords lists every reserved word.
var keywords = map[string]struct{}{
	"if": {}, "else": {}, "while": {}, "for": {}, "foreach": {}, "in": {},
	"break": {}, "continue": {}, "return": {}, "new": {}, "null": {},
	"true": {}, "false": {}, "global": {}, "const": {}, "extern": {},
	"class": {}, "void": {}, "var": {}, "ref": {}, "out": {}, "this": {},
	"is": {}, "as": {},
	"int": {}, "float": {}, "double": {}, "bool": {}, "string": {},
}

// Keywords returns every reserved word of the language.
func Keywords() []string {
	return sortedKeys(keywords)
}

// punctuators is ordered longest first so the scanner takes the longest
// match. A lone '>' is always scanned by itself; the parser joins adjacent
// '>' tokens into shift operators so nested generic arguments close cleanly.
var punctuators = []string{
	"<<=",
	"++", "--", "==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "<<", "??", "=>",
	"+", "-", "*", "/", "%", "<", ">", "!", "&", "|", "^", "~", "=", "?",
	":", ".", ",", ";", "(", ")", "[", "]", "{", "}",
}
