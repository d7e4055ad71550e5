package repl

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestHistory_WriteLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), HistoryFile)
	h := NewHistory(path)

	for _, e := range []HistoryEntry{
		{"Twice(2)", modeEval},
		{"list", modeCtrl},
		{"  ", modeEval},
		{"count += 1;", modeEval},
		{"count += 1;", modeEval},
	} {
		if err := h.Add(e.Line, e.Mode); err != nil {
			t.Fatalf("Add(%q): %v", e.Line, err)
		}
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	want := "E:Twice(2)\nC:list\nE:count += 1;\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}

	loaded := NewHistory(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	entry, err := loaded.GetEntry(1)
	if err != nil {
		t.Fatalf("GetEntry(1): %v", err)
	}

	if entry.Line != "list" || entry.Mode != modeCtrl {
		t.Errorf("GetEntry(1) = %+v, want list in command mode", entry)
	}
}

func TestHistory_DuplicateMovesToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), HistoryFile)
	h := NewHistory(path)

	for _, line := range []string{"a", "b", "a"} {
		if err := h.Add(line, modeEval); err != nil {
			t.Fatalf("Add(%q): %v", line, err)
		}
	}

	entries := h.Entries()
	if len(entries) != 2 || entries[0].Line != "b" || entries[1].Line != "a" {
		t.Fatalf("Entries() = %+v, want [b a]", entries)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(data) != "E:b\nE:a\n" {
		t.Errorf("file = %q, want rewritten history", data)
	}
}

func TestHistory_Bounded(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), HistoryFile))

	for i := range maxHistory + 5 {
		if err := h.Add(strconv.Itoa(i), modeEval); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}

	if h.Len() != maxHistory {
		t.Fatalf("Len() = %d, want %d", h.Len(), maxHistory)
	}

	if e, _ := h.GetEntry(0); e.Line != "5" {
		t.Errorf("oldest entry = %q, want 5", e.Line)
	}

	loaded := NewHistory(h.path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Len() != maxHistory {
		t.Errorf("loaded Len() = %d, want %d", loaded.Len(), maxHistory)
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), "missing"))
	if err := h.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := h.GetEntry(0); err != ErrOutOfBounds {
		t.Errorf("GetEntry(0) error = %v, want %v", err, ErrOutOfBounds)
	}
}
