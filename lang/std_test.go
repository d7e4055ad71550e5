package lang

import (
	"errors"
	"strings"
	"testing"
)

func TestStdlib_RingBuffer(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
string Run() {
  RingBuffer<int> r = new RingBuffer<int>(10);
  for (int i = 0; i < 13; i++) {
    r.PushBack(i);
  }

  string res = $"{r.Count} {r.HeadIndex} {r.TailIndex} {r[0]} {r.IsFull}";

  int back = r.PopBack();
  int head = r.PeekHead();
  r.RemoveAt(1);

  res += $" | {back} {head} {r.Count}:";
  foreach (int x in r) {
    res += " " + x;
  }

  return res;
}

int Empty() {
  RingBuffer<int> r = new RingBuffer<int>(2);
  return r.PopBack();
}
`)

	got, err := Execute[string](t.Context(), s, rc, "Run")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	want := "10 3 2 3 True | 12 3 8: 3 5 6 7 8 9 10 11"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if _, err := Execute[int](t.Context(), s, rc, "Empty"); !errors.Is(err, ErrRuntime) {
		t.Errorf("expected ErrRuntime, got %v", err)
	}
}

func TestStdlib_RandomDeterminism(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
bool Same(int seed) {
  Random a = new Random(seed);
  Random b = new Random(seed);
  for (int i = 0; i < 100; i++) {
    if (a.Next(1000) != b.Next(1000)) return false;
    if (a.NextDouble() != b.NextDouble()) return false;
  }
  return true;
}

bool InRange() {
  Random r = new Random(7);
  for (int i = 0; i < 1000; i++) {
    int n = r.Next(-5, 5);
    if (n < -5 || n >= 5) return false;
    double d = r.NextDouble();
    if (d < 0 || d >= 1) return false;
  }
  return r.Next(0) == 0;
}
`)

	for _, seed := range []int{0, 42, -1} {
		ok, err := Execute[bool](t.Context(), s, rc, "Same", seed)
		if err != nil {
			t.Fatalf("execute error: %v", err)
		}

		if !ok {
			t.Errorf("seed %d: sequences differ", seed)
		}
	}

	ok, err := Execute[bool](t.Context(), s, rc, "InRange")
	if err != nil || !ok {
		t.Errorf("expected values in range, got %t, %v", ok, err)
	}

	a, b := newRandom(99), newRandom(99)
	for range 10 {
		if x, y := a.intn(1<<40), b.intn(1<<40); x != y {
			t.Fatalf("expected identical draws, got %d and %d", x, y)
		}
	}
}

func TestStdlib_Collections(t *testing.T) {
	gc := NewGlobalContext()
	_, rc := compile(t, gc, `
string Show(List<int> xs) {
  string res = "";
  foreach (int x in xs) res += x + ",";
  return res;
}
`)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "list sort and range",
			src: `Show(new List<int>(new List<int> { 5, 3, 9, 1 }.GetRange(1, 3)))`,
			want: "3,9,1,",
		},
		{
			name: "list insert remove",
			src: `(new List<int> { 1, 2, 3 }).IndexOf(3)`,
			want: "2",
		},
		{
			name: "dictionary order",
			src: `Show(new Dictionary<string, int> { { "b", 2 }, { "a", 1 }, { "c", 3 } }.Values)`,
			want: "2,1,3,",
		},
		{
			name: "dictionary keys",
			src:  `string.Join("|", new Dictionary<string, int> { { "x", 1 }, { "y", 2 } }.Keys.ToArray())`,
			want: "x|y",
		},
		{
			name: "hash set",
			src:  `new HashSet<int>(new int[] { 1, 2, 2, 3 }).Count`,
			want: "3",
		},
		{
			name: "key value pair",
			src:  `$"{new KeyValuePair<string, int>("k", 7)}"`,
			want: "[k, 7]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, err := rc.Evaluate(t.Context(), tt.src)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if got := v.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStdlib_CollectionScripts(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
string Dict() {
  Dictionary<string, int> d = new Dictionary<string, int>();
  d["one"] = 1;
  d.Add("two", 2);
  d["three"] = 3;
  d["one"] = 10;
  d.Remove("two");
  bool added = d.TryAdd("three", 99);
  int v;
  bool found = d.TryGetValue("three", out v);
  string res = $"{d.Count} {added} {found} {v}:";
  foreach (KeyValuePair<string, int> kv in d) {
    res += " " + kv.Key + "=" + kv.Value;
  }
  return res;
}

string Sets() {
  HashSet<int> a = new HashSet<int>(new int[] { 1, 2, 3, 4 });
  HashSet<int> b = new HashSet<int>(new int[] { 3, 4, 5 });
  HashSet<int> u = new HashSet<int>(a);
  u.UnionWith(b);
  a.IntersectWith(b);
  b.ExceptWith(a);
  return $"{u.Count} {a.Count} {b.Count} {a.Contains(3)} {b.Contains(3)}";
}

string QueueStack() {
  Queue<int> q = new Queue<int>();
  Stack<int> s = new Stack<int>();
  for (int i = 1; i <= 3; i++) {
    q.Enqueue(i);
    s.Push(i);
  }
  string res = $"{q.Dequeue()}{q.Peek()} {s.Pop()}{s.Peek()} ";
  foreach (int x in s) res += x;
  return res;
}

string Sorted() {
  List<string> xs = new List<string> { "pear", "apple", "fig" };
  xs.Sort();
  xs.Reverse();
  xs.Insert(0, "kiwi");
  xs.RemoveAt(1);
  return string.Join(",", xs.ToArray());
}

int Duplicate() {
  Dictionary<string, int> d = new Dictionary<string, int>();
  d.Add("k", 1);
  d.Add("k", 2);
  return d.Count;
}
`)

	tests := []struct {
		name string
		want string
	}{
		{"Dict", "2 False True 3: one=10 three=3"},
		{"Sets", "5 2 1 True False"},
		{"QueueStack", "12 32 21"},
		{"Sorted", "kiwi,fig,apple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Execute[string](t.Context(), s, rc, tt.name)
			if err != nil {
				t.Fatalf("execute error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	_, err := Execute[int](t.Context(), s, rc, "Duplicate")
	if !errors.Is(err, ErrRuntime) || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected duplicate key fault, got %v", err)
	}
}

func TestStdlib_Depletable(t *testing.T) {
	s, rc := compile(t, NewGlobalContext(), `
string Ordered() {
  DepletableList<int> d = new DepletableList<int>(new int[] { 1, 2, 3 });
  string res = "";
  for (int i = 0; i < 4; i++) res += d.Next();
  return res + " " + d.Remaining;
}

int Exhaust() {
  DepletableList<int> d = new DepletableList<int>(new int[] { 1 });
  d.AutoReset = false;
  d.Next();
  return d.Next();
}

bool Bag(int seed) {
  DepletableBag<int> b = new DepletableBag<int>(seed);
  b.Add(1);
  b.Add(2);
  b.Add(3);
  int sum = b.Draw() + b.Draw() + b.Draw();
  return sum == 6 && b.IsDepleted;
}
`)

	got, err := Execute[string](t.Context(), s, rc, "Ordered")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != "1231 2" {
		t.Errorf("expected %q, got %q", "1231 2", got)
	}

	_, err = Execute[int](t.Context(), s, rc, "Exhaust")
	if !errors.Is(err, ErrRuntime) || !strings.Contains(err.Error(), "is depleted") {
		t.Errorf("expected depleted fault, got %v", err)
	}

	for seed := range 20 {
		ok, err := Execute[bool](t.Context(), s, rc, "Bag", seed)
		if err != nil {
			t.Fatalf("execute error: %v", err)
		}

		if !ok {
			t.Errorf("seed %d: expected every item drawn exactly once", seed)
		}
	}
}

func TestStdlib_Strings(t *testing.T) {
	_, rc := compile(t, NewGlobalContext(), "")

	tests := []struct {
		src  string
		want string
	}{
		{`"héllo".Length`, "5"},
		{`"héllo".Substring(1, 3)`, "éll"},
		{`"héllo".IndexOf("l")`, "2"},
		{`"héllo".LastIndexOf("l")`, "3"},
		{`"  pad ".Trim().PadLeft(5) + "|"`, "  pad|"},
		{`"a-b-c".Replace("-", "+")`, "a+b+c"},
		{`"Bot".ToUpper() + "Bot".ToLower()`, "BOTbot"},
		{`"abc".StartsWith("ab") && "abc".EndsWith("bc")`, "True"},
		{`string.IsNullOrWhiteSpace("  ")`, "True"},
		{`string.Repeat("ab", 3)`, "ababab"},
		{`"b".CompareTo("a")`, "1"},
		{`1054.3.ToString("F1")`, "1054.3"},
		{`(1234567).ToString("N0")`, "1,234,567"},
		{`(0.126).ToString("E1")`, "1.3E-001"},
		{`int.MaxValue`, "9223372036854775807"},
		{`double.IsNaN(double.NaN)`, "True"},
		{`bool.Parse("true")`, "True"},
		{`Math.Round(2.5) + Math.Round(3.5)`, "6"},
		{`Math.Clamp(15, 0, 10)`, "10"},
		{`Math.Abs(-3.5)`, "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, _, err := rc.Evaluate(t.Context(), tt.src)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if got := v.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	failures := []string{
		`"abc".Substring(5)`,
		`int.Parse("x")`,
		`"abc".Replace("", "x")`,
		`(12).ToString("Q")`,
	}

	for _, src := range failures {
		if _, _, err := rc.Evaluate(t.Context(), src); !errors.Is(err, ErrRuntime) {
			t.Errorf("%s: expected ErrRuntime, got %v", src, err)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		v    Value
		spec string
		want string
	}{
		{DoubleValue(1054.3), "F1", "1054.3"},
		{DoubleValue(1054.3), "N0", "1,054"},
		{DoubleValue(1054.3), "N", "1,054.30"},
		{DoubleValue(1054.3), "E", "1.054300E+003"},
		{DoubleValue(-0.00012), "E2", "-1.20E-004"},
		{IntValue(42), "F", "42.00"},
		{IntValue(42), "D5", "00042"},
		{IntValue(-42), "D4", "-0042"},
		{IntValue(255), "x", "ff"},
		{DoubleValue(0.256), "P1", "25.6 %"},
		{DoubleValue(1e20), "", "1E+20"},
		{DoubleValue(0.1), "", "0.1"},
		{FloatValue(0.1), "", "0.1"},
		{DoubleValue(123456.789), "G4", "1.235E+05"},
	}

	for _, tt := range tests {
		t.Run(tt.spec+"/"+tt.want, func(t *testing.T) {
			got, err := formatNumber(tt.v, nil, tt.spec)
			if err != nil {
				t.Fatalf("format error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	for _, spec := range []string{"Q", "F100", "Dx"} {
		if _, err := formatNumber(IntValue(1), nil, spec); err == nil {
			t.Errorf("%s: expected error", spec)
		}
	}

	if _, err := formatNumber(DoubleValue(1.5), nil, "D"); err == nil {
		t.Error("expected D to reject a double")
	}
}
