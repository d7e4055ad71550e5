package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// displayString renders v as string concatenation and interpolation do.
// t is the static type of v when known; it selects enum member names.
func displayString(v Value, t *Type) string {
	switch v.kind {
	case vNull:
		return "null"

	case vBool:
		if v.Bool() {
			return "True"
		}

		return "False"

	case vInt:
		if t != nil && t.kind == KindEnum {
			if name, ok := t.class.enumName(v.n); ok {
				return name
			}
		}

		return strconv.FormatInt(v.n, 10)

	case vFloat:
		return formatReal(v.f, 32)

	case vDouble:
		return formatReal(v.f, 64)

	case vString:
		return v.s

	case vArray:
		return v.Array().elem.String() + "[]"

	case vObject:
		o := v.Object()
		if str := o.class.stringer(); str != nil {
			return str(v)
		}

		return o.class.name
	}

	return ""
}

// formatReal renders the shortest representation that round-trips,
// switching to exponent notation for very large or small magnitudes.
func formatReal(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	s := strconv.FormatFloat(f, 'e', -1, bits)
	mant, exp, _ := strings.Cut(s, "e")

	e, _ := strconv.Atoi(exp)
	if e > -5 && e < 15 {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}

	return mant + exponent("E", e, 2)
}

// exponent renders "E+05" style suffixes with at least digits digits.
func exponent(letter string, e, digits int) string {
	sign := "+"
	if e < 0 {
		sign, e = "-", -e
	}

	n := strconv.Itoa(e)
	if pad := digits - len(n); pad > 0 {
		n = strings.Repeat("0", pad) + n
	}

	return letter + sign + n
}

var groupingPrinter = message.NewPrinter(language.English)

// formatNumber implements the standard numeric format strings E, F, N, D,
// X, P, and G, each with an optional precision ("F2", "N0", "X8").
func formatNumber(v Value, t *Type, spec string) (string, error) {
	if spec == "" {
		return displayString(v, t), nil
	}

	letter := spec[0]

	prec := -1

	if len(spec) > 1 {
		n, err := strconv.Atoi(spec[1:])
		if err != nil || n < 0 || n > 99 {
			return "", fmt.Errorf("invalid format string %q", spec)
		}

		prec = n
	}

	integral := v.kind == vInt
	f := v.Double()

	bits := 64
	if v.kind == vFloat {
		bits = 32
	}

	switch letter {
	case 'D', 'd':
		if !integral {
			return "", fmt.Errorf("format %q requires an integer", spec)
		}

		digits := strconv.FormatUint(absInt(v.n), 10)
		if pad := prec - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}

		if v.n < 0 {
			digits = "-" + digits
		}

		return digits, nil

	case 'X', 'x':
		if !integral {
			return "", fmt.Errorf("format %q requires an integer", spec)
		}

		digits := strconv.FormatUint(uint64(v.n), 16)
		if letter == 'X' {
			digits = strings.ToUpper(digits)
		}

		if pad := prec - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}

		return digits, nil

	case 'F', 'f':
		if integral {
			return strconv.FormatFloat(f, 'f', defaultPrec(prec, 2), 64), nil
		}

		return strconv.FormatFloat(f, 'f', defaultPrec(prec, 2), bits), nil

	case 'N', 'n':
		return grouped(f, defaultPrec(prec, 2)), nil

	case 'P', 'p':
		return grouped(f*100, defaultPrec(prec, 2)) + " %", nil

	case 'E', 'e':
		s := strconv.FormatFloat(f, 'e', defaultPrec(prec, 6), bits)
		mant, exp, _ := strings.Cut(s, "e")
		e, _ := strconv.Atoi(exp)

		return mant + exponent(string(letter), e, 3), nil

	case 'G', 'g':
		if prec <= 0 {
			return displayString(v, t), nil
		}

		s := strconv.FormatFloat(f, 'g', prec, bits)

		mant, exp, ok := strings.Cut(s, "e")
		if !ok {
			return s, nil
		}

		e, _ := strconv.Atoi(exp)

		mark := "E"
		if letter == 'g' {
			mark = "e"
		}

		return mant + exponent(mark, e, 2), nil
	}

	return "", fmt.Errorf("invalid format string %q", spec)
}

func defaultPrec(prec, def int) int {
	if prec < 0 {
		return def
	}

	return prec
}

func absInt(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}

	return uint64(n)
}

// grouped renders f with prec decimals and thousands separators.
func grouped(f float64, prec int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return formatReal(f, 64)
	}

	return groupingPrinter.Sprintf("%."+strconv.Itoa(prec)+"f", f)
}

// FormatJSON writes the syntax tree of f as JSON.
func (f *File) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	return writeJSON(w, f.ToMap(), indent)
}

// FormatYAML writes the syntax tree of f as YAML.
func (f *File) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	return writeYAML(ctx, w, f.ToMap(), indent)
}

// FormatTokensJSON writes a token stream as JSON.
func FormatTokensJSON(_ context.Context, w io.Writer, toks []Token, indent int) error {
	return writeJSON(w, TokensToMap(toks), indent)
}

// FormatTokensYAML writes a token stream as YAML.
func FormatTokensYAML(ctx context.Context, w io.Writer, toks []Token, indent int) error {
	return writeYAML(ctx, w, TokensToMap(toks), indent)
}

func writeJSON(w io.Writer, v any, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

func writeYAML(ctx context.Context, w io.Writer, v any, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, v, opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}
