package lang

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/ardnew/botscript/log"
)

func sortedKeys[T any](m map[string]T) []string {
	if len(m) == 0 {
		return nil
	}

	return slices.Sorted(maps.Keys(m))
}

// Option configures a [GlobalContext].
type Option func(*options)

type options struct {
	logger   log.Logger
	maxDepth int
}

const defaultMaxDepth = 10_000

func makeOptions(opts []Option) options {
	o := options{maxDepth: defaultMaxDepth}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger that traces compilation, preparation, and
// entry-point calls.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxDepth bounds the script call depth. Exceeding it is a runtime
// fault.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

func durationAttr(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
