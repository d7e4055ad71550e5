// Package host loads host profiles: YAML documents that describe how a
// command-line host embeds a script.
//
// A profile declares host variables whose initial values are expr-lang
// expressions, the entry-point signatures a script must define, and the
// execution limits applied to every entry-point call:
//
//	variables:
//	  - name: points
//	    type: int
//	    value: "10 * 3"
//	  - name: greeting
//	    type: string
//	    value: '"hello " + env.USER'
//	entries:
//	  - "int Main()"
//	limits:
//	  steps: 1000000
//	  depth: 2000
//
// Non-string values are taken literally, so "value: 30" and "value: [1, 2]"
// need no quoting. See [Environment] for the names visible to expressions.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/pkg"
)

// Profile is a decoded host profile.
type Profile struct {
	Variables []Variable `yaml:"variables"`
	Entries   []string   `yaml:"entries"`
	Limits    Limits     `yaml:"limits"`

	// Args is exposed to value expressions as "args". It is not read from
	// the document; hosts set it before calling Apply.
	Args []string `yaml:"-"`
}

// Variable declares one host variable.
type Variable struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// Limits bounds each entry-point call. Zero values keep the engine defaults.
type Limits struct {
	Steps int64 `yaml:"steps"`
	Depth int   `yaml:"depth"`
}

// Load decodes a profile from r. An empty document yields an empty profile.
func Load(r io.Reader) (*Profile, error) {
	var p Profile

	err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&p)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, pkg.ErrProfile.Wrapf("%s", yaml.FormatError(err, false, true))
	}

	for i, v := range p.Variables {
		if v.Name == "" || v.Type == "" {
			return nil, pkg.ErrProfile.Wrapf("variable %d: name and type are required", i+1)
		}
	}

	if p.Limits.Steps < 0 || p.Limits.Depth < 0 {
		return nil, pkg.ErrProfile.Wrapf("limits must not be negative")
	}

	return &p, nil
}

// LoadFile decodes the profile stored at path.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}
	defer f.Close()

	return Load(f)
}

// Apply evaluates every variable's initial value and declares it in gc.
// Variables are applied in document order; the first failure stops the walk.
func (p *Profile) Apply(gc *lang.GlobalContext) error {
	env := Environment(p.Args)
	logger := gc.Logger()

	for _, v := range p.Variables {
		typ, err := gc.ParseType(v.Type)
		if err != nil {
			return pkg.ErrProfile.Wrapf("variable %q", v.Name).Wrap(err)
		}

		val, err := evaluate(v.Value, typ, env)
		if err != nil {
			return pkg.ErrProfile.Wrapf("variable %q", v.Name).Wrap(err)
		}

		err = gc.DeclareVariable(v.Name, typ, val)
		if err != nil {
			return pkg.ErrProfile.Wrap(err)
		}

		logger.Debug("profile variable",
			slog.String("name", v.Name),
			slog.String("type", typ.String()),
			slog.String("value", val.String()))
	}

	return nil
}

// Signatures parses the declared entry points against gc.
func (p *Profile) Signatures(gc *lang.GlobalContext) ([]lang.FunctionSignature, error) {
	sigs := make([]lang.FunctionSignature, 0, len(p.Entries))

	for _, src := range p.Entries {
		sig, err := gc.ParseSignature(src)
		if err != nil {
			return nil, pkg.ErrProfile.Wrapf("entry %q", src).Wrap(err)
		}

		sigs = append(sigs, sig)
	}

	return sigs, nil
}

// ExecOptions returns the execution options implied by the profile's limits.
func (p *Profile) ExecOptions() []lang.ExecOption {
	var opts []lang.ExecOption

	if p.Limits.Steps > 0 {
		opts = append(opts, lang.WithStepLimit(p.Limits.Steps))
	}

	if p.Limits.Depth > 0 {
		opts = append(opts, lang.WithCallDepth(p.Limits.Depth))
	}

	return opts
}

// source returns the expression text for a variable value.
func source(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}

	buf, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

func expectOption(t *lang.Type) (expr.Option, error) {
	switch t.Kind() {
	case lang.KindBool:
		return expr.AsBool(), nil
	case lang.KindInt, lang.KindEnum:
		return expr.AsInt64(), nil
	case lang.KindFloat, lang.KindDouble:
		return expr.AsFloat64(), nil
	case lang.KindString:
		return expr.AsKind(reflect.String), nil
	case lang.KindArray:
		return expr.AsKind(reflect.Slice), nil
	default:
		return nil, fmt.Errorf("type %s cannot be initialized by a host profile", t)
	}
}

// evaluate computes the initial value of a variable of type t. A missing
// value yields null, which declares the type's zero value.
func evaluate(v any, t *lang.Type, env map[string]any) (lang.Value, error) {
	if v == nil {
		return lang.NullValue, nil
	}

	src, err := source(v)
	if err != nil {
		return lang.NullValue, err
	}

	as, err := expectOption(t)
	if err != nil {
		return lang.NullValue, err
	}

	program, err := expr.Compile(src, expr.Env(env), as)
	if err != nil {
		return lang.NullValue, err
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return lang.NullValue, err
	}

	return convert(out, t)
}

// convert maps an expr-lang result onto a script value of type t.
func convert(x any, t *lang.Type) (lang.Value, error) {
	switch t.Kind() {
	case lang.KindFloat:
		if f, ok := x.(float64); ok {
			return lang.FloatValue(float32(f)), nil
		}

	case lang.KindDouble:
		if f, ok := x.(float64); ok {
			return lang.DoubleValue(f), nil
		}

	case lang.KindInt, lang.KindEnum:
		if n, ok := x.(int64); ok {
			return lang.IntValue(n), nil
		}

		if n, ok := x.(int); ok {
			return lang.IntValue(int64(n)), nil
		}

	case lang.KindArray:
		rv := reflect.ValueOf(x)
		if rv.Kind() != reflect.Slice {
			break
		}

		elem := t.Elem()
		items := make([]lang.Value, rv.Len())

		for i := range items {
			item, err := convertElem(rv.Index(i).Interface(), elem)
			if err != nil {
				return lang.NullValue, err
			}

			items[i] = item
		}

		return lang.ArrayValue(lang.NewArray(elem, items...)), nil

	default:
		return lang.ToValue(x)
	}

	return lang.NullValue, fmt.Errorf("cannot convert %T to %s", x, t)
}

// convertElem converts an array element, which expr-lang leaves untyped.
func convertElem(x any, t *lang.Type) (lang.Value, error) {
	switch t.Kind() {
	case lang.KindFloat, lang.KindDouble:
		switch n := x.(type) {
		case int:
			x = float64(n)
		case int64:
			x = float64(n)
		}

	case lang.KindInt, lang.KindEnum:
		if f, ok := x.(float64); ok && f == float64(int64(f)) {
			x = int64(f)
		}
	}

	return convert(x, t)
}
