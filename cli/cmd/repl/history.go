package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
)

// maxHistory bounds the number of entries kept in memory and on disk.
const maxHistory = 1000

// HistoryEntry is one line of input and the mode it was entered in.
type HistoryEntry struct {
	Line string
	Mode inputMode
}

// History is the input history of both modes. The file holds one entry per
// line, prefixed "E:" for evaluations and "C:" for commands.
type History struct {
	mu      sync.RWMutex
	path    string
	entries []HistoryEntry
}

func (m inputMode) prefix() string {
	if m == modeCtrl {
		return "C:"
	}

	return "E:"
}

func (e HistoryEntry) encode() string { return e.Mode.prefix() + e.Line + "\n" }

// decodeEntry parses one history line. Lines without a mode prefix are
// evaluations.
func decodeEntry(line string) HistoryEntry {
	if s, ok := strings.CutPrefix(line, modeCtrl.prefix()); ok {
		return HistoryEntry{Line: s, Mode: modeCtrl}
	}

	return HistoryEntry{Line: strings.TrimPrefix(line, modeEval.prefix()), Mode: modeEval}
}

// NewHistory returns an empty history persisted at path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load replaces the entries with the contents of the history file. A
// missing file is an empty history.
func (h *History) Load() error {
	f, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}
	defer f.Close()

	var entries []HistoryEntry

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, decodeEntry(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = entries

	return nil
}

// Add records line in mode. Repeating the latest entry is a no-op; an older
// duplicate moves to the end. The file is appended to when nothing else
// changed, and rewritten otherwise.
func (h *History) Add(line string, mode inputMode) error {
	entry := HistoryEntry{Line: strings.TrimSpace(line), Mode: mode}
	if entry.Line == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return nil
	}

	rewrite := false

	if i := slices.Index(h.entries, entry); i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
		rewrite = true
	}

	h.entries = append(h.entries, entry)

	if over := len(h.entries) - maxHistory; over > 0 {
		h.entries = slices.Delete(h.entries, 0, over)
		rewrite = true
	}

	if rewrite {
		return h.persist(os.O_TRUNC, h.entries...)
	}

	return h.persist(os.O_APPEND, entry)
}

// persist writes entries to the history file opened with flag.
func (h *History) persist(flag int, entries ...HistoryEntry) error {
	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|flag, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, e := range entries {
		_, _ = w.WriteString(e.encode())
	}

	if err := w.Flush(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// GetEntry returns entry i, oldest first.
func (h *History) GetEntry(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns a copy of every entry, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.entries)
}
