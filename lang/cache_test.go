package lang

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestCache_Compile(t *testing.T) {
	c := NewCache(NewGlobalContext())
	src := `int Main() => 1;`

	a, err := c.Compile(t.Context(), src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	b, err := c.Compile(t.Context(), src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if a != b {
		t.Error("expected the cached script to be reused")
	}

	sig := Sig("Main", Int)

	d, err := c.Compile(t.Context(), src, sig)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if d == a {
		t.Error("expected signatures to select a separate entry")
	}

	if n := c.Len(); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}

	c.Clear()

	if n := c.Len(); n != 0 {
		t.Errorf("expected an empty cache, got %d", n)
	}
}

func TestCache_Errors(t *testing.T) {
	c := NewCache(NewGlobalContext())

	_, err1 := c.Compile(t.Context(), `int Main() { return; }`)
	_, err2 := c.Compile(t.Context(), `int Main() { return; }`)

	if !errors.Is(err1, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err1)
	}

	if err1 != err2 {
		t.Error("expected the failed compilation to be cached")
	}

	_, err := c.Compile(t.Context(), `int Main() => 1;`, Sig("Main", Int, P("x", Int)))
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected entry point mismatch, got %v", err)
	}
}

func TestCache_BindingErrorsRetry(t *testing.T) {
	gc := NewGlobalContext()
	c := NewCache(gc)
	src := `extern int hp; int Main() => hp * 2;`

	if _, err := c.Compile(t.Context(), src); !errors.Is(err, ErrBinding) {
		t.Fatalf("expected ErrBinding, got %v", err)
	}

	if n := c.Len(); n != 0 {
		t.Errorf("expected the binding failure to be dropped, got %d entries", n)
	}

	if err := gc.DeclareVariable("hp", Int, IntValue(21)); err != nil {
		t.Fatalf("declare error: %v", err)
	}

	s, err := c.Compile(t.Context(), src)
	if err != nil {
		t.Fatalf("expected the source to bind after the declaration, got %v", err)
	}

	rc, err := s.Prepare(t.Context(), gc)
	if err != nil {
		t.Fatalf("prepare error: %v", err)
	}

	if got, err := Execute[int](t.Context(), s, rc, "Main"); err != nil || got != 42 {
		t.Errorf("expected 42, got %d, %v", got, err)
	}
}

func TestCache_KeyCollision(t *testing.T) {
	c := NewCache(NewGlobalContext())
	src := `int Main() => 3;`

	other, err := c.Compile(t.Context(), `int Main() => 4;`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	// Occupy the key of src with an entry compiled from different source.
	taken := &cacheEntry{ident: other.Source(), script: other}
	taken.once.Do(func() {})
	c.entries.Store(cacheKey(cacheIdent(src, nil)), taken)

	s, err := c.Compile(t.Context(), src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if s == other || s.Source() != src {
		t.Errorf("expected a script compiled from %q, got %q", src, s.Source())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestCache_CompileReader(t *testing.T) {
	c := NewCache(NewGlobalContext())

	s, err := c.CompileReader(t.Context(), strings.NewReader(`int Main() => 2;`))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if got := s.Source(); got != `int Main() => 2;` {
		t.Errorf("unexpected source %q", got)
	}

	again, err := c.Compile(t.Context(), `int Main() => 2;`)
	if err != nil || again != s {
		t.Errorf("expected reader and string compilations to share an entry, got %v", err)
	}

	if _, err := c.CompileReader(t.Context(), failingReader{}); !errors.Is(err, ErrReadInput) {
		t.Errorf("expected ErrReadInput, got %v", err)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(NewGlobalContext())
	src := `int Main() { int n = 0; for (int i = 0; i < 10; i++) n += i; return n; }`

	var (
		wg      sync.WaitGroup
		scripts [8]*Script
	)

	for i := range scripts {
		wg.Go(func() {
			s, err := c.Compile(t.Context(), src)
			if err != nil {
				t.Errorf("compile error: %v", err)

				return
			}

			scripts[i] = s
		})
	}

	wg.Wait()

	for i, s := range scripts {
		if s != scripts[0] {
			t.Errorf("goroutine %d compiled a separate script", i)
		}
	}
}

func BenchmarkCache_Compile(b *testing.B) {
	src := `
int F() => 1;
int Fib(int n) => n < 2 ? n : Fib(n - 1) + Fib(n - 2);
`

	b.Run("cold", func(b *testing.B) {
		gc := NewGlobalContext()

		for b.Loop() {
			if _, err := LexAndParse(b.Context(), src, gc); err != nil {
				b.Fatalf("compile error: %v", err)
			}
		}
	})

	b.Run("cached", func(b *testing.B) {
		c := NewCache(NewGlobalContext())

		for b.Loop() {
			if _, err := c.Compile(b.Context(), src); err != nil {
				b.Fatalf("compile error: %v", err)
			}
		}
	})
}
