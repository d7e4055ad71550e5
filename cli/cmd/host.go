package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/ardnew/botscript/host"
	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/log"
)

// Host holds the flags shared by commands that compile scripts.
type Host struct {
	Profile  string `help:"Host profile declaring variables, entry points, and limits." placeholder:"FILE" short:"P" type:"existingfile"`
	MaxSteps int64  `help:"Abort a call after this many steps (0 disables the limit)."                               default:"0"`
	MaxDepth int    `help:"Maximum call depth (0 keeps the engine default)."                                        default:"0"`
}

// session is a global context configured for one command.
type session struct {
	gc     *lang.GlobalContext
	cache  *lang.Cache
	sigs   []lang.FunctionSignature
	exec   []lang.ExecOption
	logger log.Logger
}

// open builds the global context: host functions bound to out, then the
// profile's variables and entry points. args are exposed both to profile
// expressions and to scripts through Args().
func (h *Host) open(ctx context.Context, out io.Writer, args []string) (*session, error) {
	logger := log.Default().With(slog.String("component", "engine"))

	opts := []lang.Option{lang.WithLogger(logger)}
	if h.MaxDepth > 0 {
		opts = append(opts, lang.WithMaxDepth(h.MaxDepth))
	}

	s := &session{gc: lang.NewGlobalContext(opts...), logger: logger}
	s.cache = lang.NewCache(s.gc)

	err := registerHostFunctions(s.gc, out, logger, args)
	if err != nil {
		return nil, err
	}

	if h.Profile != "" {
		p, err := host.LoadFile(h.Profile)
		if err != nil {
			return nil, err
		}

		p.Args = args

		err = p.Apply(s.gc)
		if err != nil {
			return nil, err
		}

		s.sigs, err = p.Signatures(s.gc)
		if err != nil {
			return nil, err
		}

		s.exec = p.ExecOptions()

		logger.DebugContext(ctx, "profile loaded",
			slog.String("path", h.Profile),
			slog.Int("variables", len(p.Variables)),
			slog.Int("entries", len(s.sigs)))
	}

	// Flags override the profile's limits.
	if h.MaxSteps > 0 {
		s.exec = append(s.exec, lang.WithStepLimit(h.MaxSteps))
	}

	if h.MaxDepth > 0 {
		s.exec = append(s.exec, lang.WithCallDepth(h.MaxDepth))
	}

	return s, nil
}

// registerHostFunctions exposes the command-line host to scripts:
//
//	void Print(string text)   writes text and a newline to out
//	void Log(string message)  logs message at info level
//	string[] Args()           the extra command-line arguments
func registerHostFunctions(
	gc *lang.GlobalContext,
	out io.Writer,
	logger log.Logger,
	args []string,
) error {
	argv := make([]lang.Value, len(args))
	for i, a := range args {
		argv[i] = lang.StringValue(a)
	}

	for _, fn := range []struct {
		sig  lang.FunctionSignature
		impl lang.NativeFunc
	}{
		{
			lang.Sig("Print", lang.Void, lang.P("text", lang.String)),
			func(c *lang.Call) (lang.Value, error) {
				_, err := fmt.Fprintln(out, c.Arg(0).Str())
				if err != nil {
					return lang.NullValue, c.Fault("print: %v", err)
				}

				return lang.NullValue, nil
			},
		},
		{
			lang.Sig("Log", lang.Void, lang.P("message", lang.String)),
			func(c *lang.Call) (lang.Value, error) {
				logger.InfoContext(c.Context, c.Arg(0).Str(),
					slog.String("source", "script"),
					slog.String("at", c.At.String()))

				return lang.NullValue, nil
			},
		},
		{
			lang.Sig("Args", lang.ArrayOf(lang.String)),
			func(*lang.Call) (lang.Value, error) {
				return lang.ArrayValue(lang.NewArray(lang.String, argv...)), nil
			},
		},
	} {
		err := gc.RegisterFunction(fn.sig, fn.impl)
		if err != nil {
			return err
		}
	}

	return nil
}

// parseArgs converts command-line text to the parameter types of sig.
func parseArgs(sig lang.FunctionSignature, args []string) ([]lang.Value, error) {
	if len(args) != len(sig.Params) {
		return nil, ErrArguments.Wrap(fmt.Errorf("%s takes %d argument(s), got %d",
			sig, len(sig.Params), len(args)))
	}

	vals := make([]lang.Value, len(args))

	for i, p := range sig.Params {
		v, err := parseArg(p.Type, args[i])
		if err != nil {
			return nil, ErrArguments.
				With(slog.String("parameter", p.Name)).
				Wrap(err)
		}

		vals[i] = v
	}

	return vals, nil
}

func parseArg(t *lang.Type, text string) (lang.Value, error) {
	switch t.Kind() {
	case lang.KindString:
		return lang.StringValue(text), nil

	case lang.KindInt:
		n, err := strconv.ParseInt(text, 0, 64)

		return lang.IntValue(n), err

	case lang.KindFloat:
		f, err := strconv.ParseFloat(text, 32)

		return lang.FloatValue(float32(f)), err

	case lang.KindDouble:
		f, err := strconv.ParseFloat(text, 64)

		return lang.DoubleValue(f), err

	case lang.KindBool:
		b, err := strconv.ParseBool(text)

		return lang.BoolValue(b), err

	default:
		return lang.NullValue, fmt.Errorf("type %s cannot be given on the command line", t)
	}
}
