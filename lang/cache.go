package lang

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// Cache memoizes compiled scripts by source text and entry-point
// signatures. Every script in a Cache is compiled against the same
// GlobalContext. Lex and parse failures are cached; binding failures are
// not, since later DeclareVariable or RegisterFunction calls on the context
// may let the same source bind.
type Cache struct {
	gc      *GlobalContext
	entries sync.Map // key -> *cacheEntry
}

type cacheEntry struct {
	ident  string
	once   sync.Once
	script *Script
	err    error
}

// NewCache returns an empty cache compiling against gc.
func NewCache(gc *GlobalContext) *Cache {
	return &Cache{gc: gc}
}

// cacheIdent is the full identity of a compilation: source followed by the
// canonical text of sigs.
func cacheIdent(source string, sigs []FunctionSignature) string {
	if len(sigs) == 0 {
		return source
	}

	var sb strings.Builder

	sb.WriteString(source)
	sb.WriteByte(0)

	for _, sig := range sigs {
		sb.WriteString(sig.String())
		sb.WriteByte('\n')
	}

	return sb.String()
}

// cacheKey hashes the identity of a compilation.
func cacheKey(ident string) string {
	return strconv.FormatUint(xxh3.HashString(ident), 36)
}

// Compile returns the script compiled from source, compiling it on first
// request.
func (c *Cache) Compile(
	ctx context.Context,
	source string,
	sigs ...FunctionSignature,
) (*Script, error) {
	ident := cacheIdent(source, sigs)
	key := cacheKey(ident)

	v, hit := c.entries.LoadOrStore(key, &cacheEntry{ident: ident})
	entry := v.(*cacheEntry)

	if entry.ident != ident {
		c.gc.opts.logger.DebugContext(ctx, "cache collision", slog.String("key", key))

		return LexAndParse(ctx, source, c.gc, sigs...)
	}

	c.gc.opts.logger.TraceContext(ctx, "cache lookup",
		slog.String("key", key),
		slog.Bool("cache_hit", hit))

	entry.once.Do(func() {
		entry.script, entry.err = LexAndParse(ctx, source, c.gc, sigs...)
	})

	if errors.Is(entry.err, ErrBinding) {
		c.entries.CompareAndDelete(key, entry)
	}

	return entry.script, entry.err
}

// CompileReader reads all of r and compiles it through [Cache.Compile].
func (c *Cache) CompileReader(
	ctx context.Context,
	r io.Reader,
	sigs ...FunctionSignature,
) (*Script, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	c.gc.opts.logger.TraceContext(ctx, "read input", slog.Int("source_bytes", len(data)))

	return c.Compile(ctx, string(data), sigs...)
}

// Len returns the number of cached compilations.
func (c *Cache) Len() int {
	n := 0

	c.entries.Range(func(any, any) bool {
		n++

		return true
	})

	return n
}

// Clear drops every cached compilation.
func (c *Cache) Clear() {
	c.entries.Clear()
}
