package lang

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// compile builds and prepares src against gc, failing the test on error.
func compile(t testing.TB, gc *GlobalContext, src string, sigs ...FunctionSignature) (*Script, *RuntimeContext) {
	t.Helper()

	s, err := LexAndParse(t.Context(), src, gc, sigs...)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	rc, err := s.Prepare(t.Context(), gc)
	if err != nil {
		t.Fatalf("prepare error: %v", err)
	}

	return s, rc
}

func TestEvaluate_Expressions(t *testing.T) {
	_, rc := compile(t, NewGlobalContext(), "")

	tests := []struct {
		src  string
		want string
		typ  *Type
	}{
		{"1.0 == 1", "True", Bool},
		{"(int)2.5 == 2", "True", Bool},
		{"2.5 != (int)2.5", "True", Bool},
		{"(int)-2.5", "-2", Int},
		{"7 / 2", "3", Int},
		{"-7 / 2", "-3", Int},
		{"-7 % 3", "-1", Int},
		{"7 / 2.0", "3.5", Double},
		{"1 + 2 * 3", "7", Int},
		{"1 << 4", "16", Int},
		{"256 >> 2", "64", Int},
		{"0.5f + 1", "1.5", Float},
		{"true ? 1 : 2", "1", Int},
		{`"a" + 1 + true`, "a1True", String},
		{`$"{1054.3:F1}"`, "1054.3", String},
		{`$"{1054.3:N0}"`, "1,054", String},
		{`$"{1054.3:E2}"`, "1.05E+003", String},
		{`$"{0.5:P0}"`, "50 %", String},
		{`$"{255:X4}"`, "00FF", String},
		{`$"Nes{$"te{"d S"}t"}ring"`, "Nested String", String},
		{`$"{{{1 + 1}}}"`, "{2}", String},
		{`"abc".Length`, "3", Int},
		{`int.Parse("42") + 1`, "43", Int},
		{`Math.Max(3, 9)`, "9", Int},
		{`string.Join("-", "a,b,c".Split(","))`, "a-b-c", String},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, typ, err := rc.Evaluate(t.Context(), tt.src)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if typ != tt.typ {
				t.Errorf("expected type %s, got %s", tt.typ, typ)
			}

			if got := v.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExecute_Fibonacci(t *testing.T) {
	src := `
Dictionary<int, int> memo = new Dictionary<int, int>();

int Fib(int n) {
  if (n < 0) return 0;
  if (n < 2) return 1;
  int v;
  if (memo.TryGetValue(n, out v)) return v;
  v = Fib(n - 1) + Fib(n - 2);
  memo[n] = v;
  return v;
}

int Slow(int n) => n < 0 ? 0 : n < 2 ? 1 : Slow(n - 1) + Slow(n - 2);
`

	gc := NewGlobalContext()
	s, rc := compile(t, gc, src, Sig("Fib", Int, P("n", Int)))

	got, err := Execute[int](t.Context(), s, rc, "Fib", 25)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != 121393 {
		t.Errorf("expected Fib(25) = 121393, got %d", got)
	}

	for i, want := range []int{0, 1, 1, 2, 3, 5, 8, 13} {
		n := i - 1

		slow, err := Execute[int](t.Context(), s, rc, "Slow", n)
		if err != nil {
			t.Fatalf("execute error: %v", err)
		}

		fast, err := Execute[int](t.Context(), s, rc, "Fib", n)
		if err != nil {
			t.Fatalf("execute error: %v", err)
		}

		if slow != want || fast != want {
			t.Errorf("index %d: expected %d, got slow=%d fast=%d", n, want, slow, fast)
		}
	}
}

func TestLexAndParse_Idempotent(t *testing.T) {
	src := `
global int score = 100;
List<int> seen = new List<int>();

int Roll(int seed) {
  Random r = new Random(seed);
  int total = 0;
  for (int i = 0; i < 10; i++) {
    total += r.Next(100);
  }
  seen.Add(total);
  return total;
}

string Describe(int n) => $"{n * 1.5:F1}/{seen.Count}";

int Bump(int by) {
  score += by;
  return score;
}
`

	calls := []struct {
		name string
		args []Value
	}{
		{"Roll", []Value{IntValue(7)}},
		{"Roll", []Value{IntValue(7)}},
		{"Describe", []Value{IntValue(3)}},
		{"Bump", []Value{IntValue(2)}},
		{"Bump", []Value{IntValue(5)}},
		{"Roll", []Value{IntValue(-3)}},
		{"Describe", []Value{IntValue(0)}},
	}

	run := func() []string {
		gc := NewGlobalContext()
		if err := gc.DeclareVariable("score", Int, IntValue(3)); err != nil {
			t.Fatalf("declare error: %v", err)
		}

		s, rc := compile(t, gc, src)

		out := make([]string, 0, len(calls))

		for _, c := range calls {
			v, err := s.ExecuteFunction(t.Context(), rc, c.name, c.args)
			if err != nil {
				t.Fatalf("%s: execute error: %v", c.name, err)
			}

			out = append(out, v.String())
		}

		return out
	}

	first, second := run(), run()

	for i := range calls {
		if first[i] != second[i] {
			t.Errorf("call %d (%s): first parse gave %q, second gave %q",
				i, calls[i].name, first[i], second[i])
		}
	}

	if first[0] != first[1] {
		t.Errorf("expected equal rolls for one seed, got %q and %q", first[0], first[1])
	}

	if first[4] != "10" {
		t.Errorf("expected the host score 3 to reach 10, got %q", first[4])
	}
}

func TestPrepare_GlobalSkipRule(t *testing.T) {
	gc := NewGlobalContext()
	if err := gc.DeclareVariable("g", Int, IntValue(5)); err != nil {
		t.Fatalf("declare error: %v", err)
	}

	src := `
global int g = 1000;
int h = 1000;
const int Step = 2;

int Bump() { g += Step; h++; return g; }
`

	s, rc := compile(t, gc, src)

	if v, _, _ := rc.Global("g"); v.Int() != 5 {
		t.Errorf("expected host value 5 to survive prepare, got %s", v)
	}

	if v, _, _ := rc.Global("h"); v.Int() != 1000 {
		t.Errorf("expected initializer to run for h, got %s", v)
	}

	got, err := Execute[int](t.Context(), s, rc, "Bump")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}

	if v, _, _ := gc.Variable("g"); v.Int() != 7 {
		t.Errorf("expected the host cell to be shared, got %s", v)
	}

	if err := rc.SetGlobal("Step", IntValue(3)); !errors.Is(err, ErrEntryPoint) {
		t.Errorf("expected const assignment to fail, got %v", err)
	}
}

func TestPrepare_GlobalTypeMismatch(t *testing.T) {
	gc := NewGlobalContext()
	if err := gc.DeclareVariable("g", Double, DoubleValue(1)); err != nil {
		t.Fatalf("declare error: %v", err)
	}

	_, err := LexAndParse(t.Context(), "global int g = 1;", gc)
	if !errors.Is(err, ErrBinding) {
		t.Errorf("expected ErrBinding, got %v", err)
	}

	_, err = LexAndParse(t.Context(), "extern int missing;", gc)
	if !errors.Is(err, ErrBinding) {
		t.Errorf("expected ErrBinding for undeclared extern, got %v", err)
	}
}

func TestExecute_Budget(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
void Spin() { while (true) { } }
int Deep(int n) => Deep(n + 1);
`)

	_, err := s.ExecuteFunction(t.Context(), rc, "Spin", nil, WithStepLimit(1000))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	if used := rc.StepsUsed(); used <= 1000 {
		t.Errorf("expected more than 1000 steps charged, got %d", used)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := s.ExecuteFunction(ctx, rc, "Spin", nil); !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted for a cancelled context, got %v", err)
	}

	_, err = s.ExecuteFunction(t.Context(), rc, "Deep", []Value{IntValue(0)}, WithCallDepth(50))
	if !errors.Is(err, ErrRuntime) {
		t.Errorf("expected a runtime fault for deep recursion, got %v", err)
	}
}

func TestExecute_RuntimeFaults(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
int count = 0;

int Index(int i) {
  List<int> xs = new List<int> { 1, 2, 3 };
  count++;
  return xs[i];
}

int Missing() {
  Dictionary<string, int> d = new Dictionary<string, int>();
  return d["nope"];
}

int Divide(int a, int b) => a / b;

int NullDeref() {
  List<int> xs = null;
  return xs.Count;
}
`)

	tests := []struct {
		name string
		args []Value
		want string
	}{
		{"Index", []Value{IntValue(5)}, "out of range"},
		{"Missing", nil, "key 'nope' not found"},
		{"Divide", []Value{IntValue(1), IntValue(0)}, "division by zero"},
		{"NullDeref", nil, "null reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ExecuteFunction(t.Context(), rc, tt.name, tt.args)
			if !errors.Is(err, ErrRuntime) {
				t.Fatalf("expected ErrRuntime, got %v", err)
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}

	// Mutations made before a fault persist.
	if v, _, _ := rc.Global("count"); v.Int() != 1 {
		t.Errorf("expected count 1, got %s", v)
	}

	got, err := Execute[int](t.Context(), s, rc, "Index", 1)
	if err != nil || got != 2 {
		t.Errorf("expected the context to stay usable, got %d, %v", got, err)
	}
}

func TestExecute_ListAliasing(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
int Alias() {
  List<int> a = new List<int>();
  a.Add(1);
  List<int> b = a;
  b.Add(2);
  return a.Count;
}

int Copy() {
  List<int> a = new List<int>();
  a.Add(1);
  List<int> b = new List<int>(a);
  b.Add(2);
  return a.Count;
}

int Sum() {
  int total = 0;
  foreach (int x in new int[] { 1, 2, 3, 4 }) {
    if (x == 3) continue;
    total += x;
  }
  return total;
}
`)

	tests := []struct {
		name string
		want int
	}{
		{"Alias", 2},
		{"Copy", 1},
		{"Sum", 7},
	}

	for _, tt := range tests {
		got, err := Execute[int](t.Context(), s, rc, tt.name)
		if err != nil {
			t.Fatalf("%s: execute error: %v", tt.name, err)
		}

		if got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestExecute_RefOut(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
void Swap(ref int a, ref int b) { int t = a; a = b; b = t; }

bool Split(int n, out int hi, out int lo) {
  hi = n / 10;
  lo = n % 10;
  return n >= 0;
}

int UseSwap() {
  int x = 1;
  int y = 2;
  Swap(ref x, ref y);
  return x * 10 + y;
}
`)

	got, err := Execute[int](t.Context(), s, rc, "UseSwap")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != 21 {
		t.Errorf("expected 21, got %d", got)
	}

	x, y := NewCell(IntValue(1)), NewCell(IntValue(2))
	if _, err := Execute[Value](t.Context(), s, rc, "Swap", x, y); err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if x.Get().Int() != 2 || y.Get().Int() != 1 {
		t.Errorf("expected swapped cells, got %s and %s", x.Get(), y.Get())
	}

	hi, lo := NewCell(NullValue), NewCell(NullValue)

	ok, err := Execute[bool](t.Context(), s, rc, "Split", 42, hi, lo)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if !ok || hi.Get().Int() != 4 || lo.Get().Int() != 2 {
		t.Errorf("expected (true, 4, 2), got (%t, %s, %s)", ok, hi.Get(), lo.Get())
	}

	v, err := s.ExecuteFunction(t.Context(), rc, "Split",
		[]Value{IntValue(-7), NullValue, NullValue})
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if v.Bool() {
		t.Errorf("expected false for a negative split, got %s", v)
	}

	_, err = Execute[Value](t.Context(), s, rc, "Swap", NewCell(NullValue), NewCell(IntValue(1)))
	if !errors.Is(err, ErrEntryPoint) {
		t.Errorf("expected ErrEntryPoint for a null ref argument, got %v", err)
	}
}

func TestExecute_EntryPointErrors(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `int Twice(int n) => n * 2;`)

	if _, err := Execute[int](t.Context(), s, rc, "Nope"); !errors.Is(err, ErrEntryPoint) {
		t.Errorf("expected ErrEntryPoint for a missing function, got %v", err)
	}

	if _, err := Execute[int](t.Context(), s, rc, "Twice", "x"); !errors.Is(err, ErrEntryPoint) {
		t.Errorf("expected ErrEntryPoint for a mismatched argument, got %v", err)
	}

	other, _ := compile(t, NewGlobalContext(), `int Twice(int n) => n;`)
	if _, err := Execute[int](t.Context(), other, rc, "Twice", 1); !errors.Is(err, ErrEntryPoint) {
		t.Errorf("expected ErrEntryPoint for a foreign context, got %v", err)
	}

	got, err := Execute[float64](t.Context(), s, rc, "Twice", 4)
	if err != nil || got != 8 {
		t.Errorf("expected 8, got %g, %v", got, err)
	}
}

type dog struct{ name string }

type rock struct{}

func registerPets(t *testing.T, gc *GlobalContext) {
	t.Helper()

	reg := gc.Classes()

	greeter, err := reg.Interface("IGreeter", func(d *InterfaceDef) {
		d.Method("Greet", String)
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	dogs, err := RegisterClass(reg, "Dog", func(d *ClassDef[*dog]) {
		d.Property("Name", String, func(p *dog) Value { return StringValue(p.name) }, nil)
		d.Explicit(greeter, "Greet", func(p *dog, _ *Call) (Value, error) {
			return StringValue("woof from " + p.name), nil
		})
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	if _, err := RegisterClass(reg, "Rock", func(*ClassDef[*rock]) {}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	err = gc.RegisterFunction(Sig("MakeDog", dogs.Type(), P("name", String)),
		func(c *Call) (Value, error) {
			return dogs.New(&dog{name: c.Arg(0).Str()}), nil
		})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
}

func TestExecute_HostClasses(t *testing.T) {
	gc := NewGlobalContext()
	registerPets(t, gc)

	s, rc := compile(t, gc, `
string Greet() {
  IGreeter g = MakeDog("rex");
  return g.Greet();
}

bool BadCast() {
  IGreeter g = MakeDog("rex");
  Rock r = (Rock)g;
  return r == null;
}

bool TypeTest() {
  IGreeter g = MakeDog("rex");
  return g is Dog && !(g is Rock) && (g as Dog).Name == "rex";
}
`)

	greeting, err := Execute[string](t.Context(), s, rc, "Greet")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if greeting != "woof from rex" {
		t.Errorf("unexpected greeting %q", greeting)
	}

	for _, name := range []string{"BadCast", "TypeTest"} {
		ok, err := Execute[bool](t.Context(), s, rc, name)
		if err != nil {
			t.Fatalf("%s: execute error: %v", name, err)
		}

		if !ok {
			t.Errorf("%s: expected true", name)
		}
	}

	// Explicit implementations are hidden from the class type.
	_, err = LexAndParse(t.Context(), `string F() => MakeDog("a").Greet();`, gc)
	if !errors.Is(err, ErrBinding) {
		t.Errorf("expected ErrBinding, got %v", err)
	}
}

func TestLexAndParse_BindingErrors(t *testing.T) {
	gc := NewGlobalContext()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "undefined",
			src:  `int F() => y;`,
			want: "undefined: y",
		},
		{
			name: "ambiguous",
			src: `
int H(int a, double b) => 1;
int H(double a, int b) => 2;
int F() => H(1, 1);`,
			want: "is ambiguous between",
		},
		{
			name: "ref argument",
			src: `
void G(ref int a) { a = 1; }
void F() { G(ref 3); }`,
			want: "must be an assignable variable",
		},
		{
			name: "statement expression",
			src:  `void F() { 1 + 2; }`,
			want: "can be statements",
		},
		{
			name: "bad condition",
			src:  `void F() { if (1) { } }`,
			want: "condition must be bool",
		},
		{
			name: "unknown type",
			src:  `Widget w;`,
			want: "unknown type 'Widget'",
		},
		{
			name: "generic arity",
			src:  `List<int, int> xs;`,
			want: "expects 1 type argument(s), got 2",
		},
		{
			name: "const assignment",
			src: `
const int C = 1;
void F() { C = 2; }`,
			want: "cannot assign to const 'C'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LexAndParse(t.Context(), tt.src, gc)
			if !errors.Is(err, ErrBinding) {
				t.Fatalf("expected ErrBinding, got %v", err)
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestLexAndParse_Overloads(t *testing.T) {
	gc := NewGlobalContext()

	for _, sig := range []FunctionSignature{
		Sig("Kind", String, P("x", Int)),
		Sig("Kind", String, P("x", Double)),
	} {
		name := sig.Params[0].Type.String()

		err := gc.RegisterFunction(sig, func(*Call) (Value, error) {
			return StringValue(name), nil
		})
		if err != nil {
			t.Fatalf("register error: %v", err)
		}
	}

	_, rc := compile(t, gc, "")

	tests := []struct {
		src  string
		want string
	}{
		{"Kind(1)", "int"},
		{"Kind(1.5)", "double"},
		{"Kind(1.5f)", "double"},
	}

	for _, tt := range tests {
		v, _, err := rc.Evaluate(t.Context(), tt.src)
		if err != nil {
			t.Fatalf("evaluate error: %v", err)
		}

		if v.Str() != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.src, tt.want, v.Str())
		}
	}
}

func TestExecute_ScriptClasses(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
class Counter {
  int n;
  Counter(int start) { n = start; }
  int Next() => ++n;
}

class Box<T> {
  T value;
  Box(T v) { value = v; }
  T Get() => value;
}

T Max<T>(T a, T b) => a > b ? a : b;

int Main() {
  var c = new Counter(3);
  c.Next();
  Box<string> b = new Box<string>("x");
  return Max(c.Next(), 2) + b.Get().Length + Max(1.5, 0.5) > 6 ? 1 : 0;
}
`)

	got, err := Execute[int](t.Context(), s, rc, "Main")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}

	if classes := s.Classes(); len(classes) != 2 {
		t.Errorf("expected 2 script classes, got %v", classes)
	}
}

func TestEvaluate_Statements(t *testing.T) {
	gc := NewGlobalContext()
	if err := gc.DeclareVariable("score", Int, IntValue(10)); err != nil {
		t.Fatalf("declare error: %v", err)
	}

	_, rc := compile(t, gc, `int bonus = 5;`)

	if _, typ, err := rc.Evaluate(t.Context(), "bonus += 1; score = score + bonus;"); err != nil || typ != Void {
		t.Fatalf("expected void statements, got %v, %v", typ, err)
	}

	if _, typ, err := rc.Evaluate(t.Context(), "bonus += 1;"); err != nil || typ != Void {
		t.Fatalf("expected a terminated assignment to be a void statement, got %v, %v", typ, err)
	}

	v, typ, err := rc.Evaluate(t.Context(), "bonus += 1")
	if err != nil || typ != Int || v.Int() != 8 {
		t.Fatalf("expected a bare assignment to yield 8 : int, got %s : %v, %v", v, typ, err)
	}

	v, _, err = rc.Evaluate(t.Context(), "score")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	if v.Int() != 16 {
		t.Errorf("expected 16, got %s", v)
	}

	if _, _, err := rc.Evaluate(t.Context(), "nope + 1"); !errors.Is(err, ErrBinding) {
		t.Errorf("expected ErrBinding, got %v", err)
	}
}

func BenchmarkExecute(b *testing.B) {
	gc := NewGlobalContext()
	s, rc := compile(b, gc, `
int Loop(int n) {
  int total = 0;
  for (int i = 0; i < n; i++) {
    total += i % 7;
  }
  return total;
}
`)

	for _, n := range []int{10, 1000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for b.Loop() {
				if _, err := Execute[int](b.Context(), s, rc, "Loop", n); err != nil {
					b.Fatalf("execute error: %v", err)
				}
			}
		})
	}
}
