package lang

import (
	"errors"
	"testing"
)

func TestTokenize_Kinds(t *testing.T) {
	toks, err := Tokenize(`int x = 42; foo.Bar("s") <<= 1.5f`)
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	want := []struct {
		kind TokenKind
		text string
	}{
		{TokenKeyword, "int"},
		{TokenIdent, "x"},
		{TokenPunct, "="},
		{TokenInt, "42"},
		{TokenPunct, ";"},
		{TokenIdent, "foo"},
		{TokenPunct, "."},
		{TokenIdent, "Bar"},
		{TokenPunct, "("},
		{TokenString, `"s"`},
		{TokenPunct, ")"},
		{TokenPunct, "<<="},
		{TokenFloat, "1.5f"},
		{TokenEOF, ""},
	}

	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}

	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d: expected %s %q, got %s %q",
				i, w.kind, w.text, toks[i].Kind, toks[i].Text)
		}
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks, err := Tokenize("a\n  bb /* c */ d")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	want := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 4, Line: 2, Column: 3},
		{Offset: 15, Line: 2, Column: 14},
	}

	for i, w := range want {
		if toks[i].Pos != w {
			t.Errorf("token %d (%s): expected %+v, got %+v", i, toks[i].Text, w, toks[i].Pos)
		}
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		kind TokenKind
		i    int64
		r    float64
	}{
		{"1_000_000", TokenInt, 1_000_000, 0},
		{"0xFF", TokenInt, 255, 0},
		{"0b1010", TokenInt, 10, 0},
		{"0xFFFF_FFFF_FFFF_FFFF", TokenInt, -1, 0},
		{"2.5", TokenDouble, 0, 2.5},
		{"1_000.25", TokenDouble, 0, 1000.25},
		{"3d", TokenDouble, 0, 3},
		{"1e3", TokenDouble, 0, 1000},
		{"2.5E-1", TokenDouble, 0, 0.25},
		{"0.5f", TokenFloat, 0, 0.5},
		{".5", TokenDouble, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, err := Tokenize(tt.src)
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}

			tok := toks[0]
			if tok.Kind != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, tok.Kind)
			}

			if tok.Int != tt.i || tok.Real != tt.r {
				t.Errorf("expected (%d, %g), got (%d, %g)", tt.i, tt.r, tok.Int, tok.Real)
			}
		})
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"trailing separator", "1_"},
		{"double separator", "1__0"},
		{"decimal overflow", "9223372036854775808"},
		{"malformed suffix", "12abc"},
		{"unterminated string", `"abc`},
		{"unterminated comment", "/* abc"},
		{"bad escape", `"\q"`},
		{"unexpected character", "a # b"},
		{"empty hole", `$"{}"`},
		{"unmatched brace", `$"a } b"`},
		{"unterminated hole", `$"{x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			if err == nil {
				t.Fatalf("expected error for %q", tt.src)
			}

			if !errors.Is(err, ErrLex) {
				t.Errorf("expected ErrLex, got %v", err)
			}

			var e *Error
			if !errors.As(err, &e) || !e.Position().IsValid() {
				t.Errorf("expected a positioned error, got %v", err)
			}
		})
	}
}

func TestTokenize_Interpolation(t *testing.T) {
	toks, err := Tokenize(`$"a{x:F2} {{b}} {(c ? 1 : 2)}{$"in{y}"}"`)
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	if toks[0].Kind != TokenInterp {
		t.Fatalf("expected interpolation, got %s", toks[0].Kind)
	}

	parts := toks[0].Parts
	if len(parts) != 5 {
		t.Fatalf("expected 5 parts, got %d: %+v", len(parts), parts)
	}

	if parts[0].Text != "a" {
		t.Errorf("part 0: expected text 'a', got %q", parts[0].Text)
	}

	if !parts[1].IsHole() || parts[1].Format != "F2" || parts[1].Tokens[0].Text != "x" {
		t.Errorf("part 1: expected hole x:F2, got %+v", parts[1])
	}

	if parts[2].Text != " {b} " {
		t.Errorf("part 2: expected escaped braces, got %q", parts[2].Text)
	}

	if !parts[3].IsHole() || parts[3].Format != "" {
		t.Errorf("part 3: ternary colon must not start a format, got %+v", parts[3])
	}

	nested := parts[4].Tokens[0]
	if nested.Kind != TokenInterp || len(nested.Parts) != 2 {
		t.Errorf("part 4: expected nested interpolation, got %+v", nested)
	}

	last := parts[3].Tokens[len(parts[3].Tokens)-1]
	if last.Kind != TokenEOF {
		t.Errorf("hole tokens must end with EOF, got %s", last.Kind)
	}
}

func TestKeywords(t *testing.T) {
	kw := Keywords()

	for _, want := range []string{"foreach", "global", "extern", "ref", "out"} {
		found := false

		for _, k := range kw {
			if k == want {
				found = true
			}
		}

		if !found {
			t.Errorf("expected keyword %q", want)
		}
	}
}
