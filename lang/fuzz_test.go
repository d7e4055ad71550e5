package lang

import (
	"errors"
	"testing"
)

var fuzzSeeds = []string{
	``,
	`int x = 1;`,
	`int F(int n) => n < 2 ? n : F(n - 1) + F(n - 2);`,
	`$"Nes{$"te{"d S"}t"}ring"`,
	`$"{x:N0} {{ }}"`,
	`0xFF_FF 0b1010 1_000.5f 2e-3d`,
	`/* unterminated`,
	`"é\t\n"`,
	`class C<T> { T v; C(T x) { v = x; } T Get() => v; }`,
	`void F() { foreach (int x in new int[] { 1, 2 }) { if (x > 1) break; } }`,
	`List<List<int>> xs = new List<List<int>>(); int y = 1 >> 2;`,
}

func FuzzTokenize(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		toks, err := Tokenize(src)
		if err != nil {
			if !errors.Is(err, ErrLex) {
				t.Fatalf("unexpected error class: %v", err)
			}

			return
		}

		if len(toks) == 0 || toks[len(toks)-1].Kind != TokenEOF {
			t.Fatalf("token stream must end with EOF: %v", toks)
		}
	})
}

func FuzzLexAndParse(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	gc := NewGlobalContext()

	f.Fuzz(func(t *testing.T, src string) {
		s, err := LexAndParse(t.Context(), src, gc)
		if err != nil {
			if !errors.Is(err, ErrLex) && !errors.Is(err, ErrParse) && !errors.Is(err, ErrBinding) {
				t.Fatalf("unexpected error class: %v", err)
			}

			return
		}

		if s.Source() != src {
			t.Fatal("script must retain its source")
		}
	})
}
