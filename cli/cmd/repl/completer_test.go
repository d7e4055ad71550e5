package repl

import (
	"slices"
	"testing"
)

func TestWordBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"dot_separated", "bar.baz", 7, "baz", 4, 7},
		{"after_plus", "a + fo", 6, "fo", 4, 6},
		{"after_minus", "a-fo", 4, "fo", 2, 4},
		{"after_paren", "Twice(fo", 8, "fo", 6, 8},
		{"after_comma", "Add(a, fo", 9, "fo", 7, 9},
		{"in_ternary", "x ? fo", 6, "fo", 4, 6},
		{"after_brace", `$"{fo`, 5, "fo", 3, 5},
		{"after_quote", `"fo`, 3, "fo", 1, 3},
		{"after_semicolon", "x = 1; fo", 9, "fo", 7, 9},
		{"empty_at_boundary", "a + ", 4, "", 4, 4},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"between_operators", "a+b", 2, "b", 2, 3},
		{"underscore", "my_var", 6, "my_var", 0, 6},
		{"empty_after_dot", "items.", 6, "", 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParentPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"top_level", "cou", ""},
		{"after_operator", "x + cou", ""},
		{"single", "items.Co", "items"},
		{"empty_word", "items.", "items"},
		{"chain", "a.b.c", "a.b"},
		{"after_operator_chain", "x + Math.P", "Math"},
		{"in_call", "Twice(items.C", "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, start, _ := wordBounds(tt.input, len(tt.input))
			if got := parentPath(tt.input, start); got != tt.want {
				t.Errorf("parentPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScope_TopLevel(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	names, funcs := m.scope().topLevel()

	for _, want := range []string{"count", "items", "Twice", "Print", "Math", "List", "while"} {
		if !slices.Contains(names, want) {
			t.Errorf("topLevel() missing %q", want)
		}
	}

	if !funcs["Twice"] || !funcs["Print"] {
		t.Errorf("funcs = %v, want Twice and Print callable", funcs)
	}

	if funcs["count"] {
		t.Error("count reported callable")
	}

	if !slices.IsSorted(names) {
		t.Error("topLevel() not sorted")
	}
}

func TestScope_Members(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	sc := m.scope()

	tests := []struct {
		name     string
		parent   string
		want     string
		callable bool
	}{
		{"static_method", "Math", "Pow", true},
		{"static_property", "Math", "PI", false},
		{"instance_method", "items", "Add", true},
		{"instance_property", "items", "Count", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			names, funcs := sc.members(tt.parent)
			if !slices.Contains(names, tt.want) {
				t.Fatalf("members(%q) = %v, want %q", tt.parent, names, tt.want)
			}

			if funcs[tt.want] != tt.callable {
				t.Errorf("members(%q): %s callable = %v, want %v",
					tt.parent, tt.want, funcs[tt.want], tt.callable)
			}
		})
	}

	if names, _ := sc.members("nope"); names != nil {
		t.Errorf("members(nope) = %v, want nil", names)
	}

	if names, _ := sc.members("items.Count"); names != nil {
		t.Errorf("members(items.Count) = %v, want nil", names)
	}
}

func TestComputeMatches(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m.input.SetValue("Twi")
	m.input.SetCursor(3)

	matches, _, funcs, start, end := m.computeMatches()
	if len(matches) == 0 || matches[0].Str != "Twice" {
		t.Fatalf("matches = %v, want Twice first", matches)
	}

	if !funcs["Twice"] || start != 0 || end != 3 {
		t.Errorf("funcs = %v, bounds = (%d, %d)", funcs, start, end)
	}

	m.input.SetValue("")

	if matches, _, _, _, _ := m.computeMatches(); matches != nil {
		t.Errorf("empty input matches = %v, want nil", matches)
	}

	m.mode = modeCtrl
	m.input.SetValue("res")
	m.input.SetCursor(3)

	matches, _, _, _, _ = m.computeMatches()
	if len(matches) == 0 || matches[0].Str != "reset" {
		t.Errorf("ctrl matches = %v, want reset first", matches)
	}
}
