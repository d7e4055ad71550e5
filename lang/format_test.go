package lang

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestFile_FormatJSON(t *testing.T) {
	file, err := ParseString(t.Context(), `global int g = 1; int Add(int a, ref int b) => a + b;`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var buf bytes.Buffer
	if err := file.FormatJSON(t.Context(), &buf, 2); err != nil {
		t.Fatalf("format error: %v", err)
	}

	var got struct {
		Decls []map[string]any `json:"decls"`
	}

	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if len(got.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(got.Decls))
	}

	if got.Decls[0]["node"] != "var" || got.Decls[0]["mod"] != "global" {
		t.Errorf("unexpected global: %v", got.Decls[0])
	}

	fn := got.Decls[1]
	if fn["node"] != "func" || fn["name"] != "Add" || fn["pos"] != "1:19" {
		t.Errorf("unexpected function: %v", fn)
	}

	params, _ := fn["params"].([]any)
	if len(params) != 2 || params[1].(map[string]any)["mod"] != "ref" {
		t.Errorf("unexpected params: %v", fn["params"])
	}

	if _, ok := fn["body"]; ok {
		t.Error("expression-bodied function must not carry a body")
	}
}

func TestFile_FormatYAML(t *testing.T) {
	file, err := ParseString(t.Context(), `void F() { while (true) { break; } }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	for _, indent := range []int{0, 2} {
		var buf bytes.Buffer
		if err := file.FormatYAML(t.Context(), &buf, indent); err != nil {
			t.Fatalf("format error: %v", err)
		}

		out := buf.String()
		for _, want := range []string{"node: func", "node: while", "node: break"} {
			if !strings.Contains(out, want) {
				t.Errorf("indent %d: expected %q in:\n%s", indent, want, out)
			}
		}
	}
}

func TestFormatTokens(t *testing.T) {
	toks, err := Tokenize(`x = 0x10 + $"v{y:F2}";`)
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	var buf bytes.Buffer
	if err := FormatTokensJSON(t.Context(), &buf, toks, 0); err != nil {
		t.Fatalf("format error: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if len(got) != len(toks) {
		t.Fatalf("expected %d tokens, got %d", len(toks), len(got))
	}

	if got[2]["kind"] != "int" || got[2]["value"] != float64(16) {
		t.Errorf("unexpected int token: %v", got[2])
	}

	parts, _ := got[4]["parts"].([]any)
	if len(parts) != 2 || parts[1].(map[string]any)["format"] != "F2" {
		t.Errorf("unexpected interpolation parts: %v", got[4]["parts"])
	}

	buf.Reset()

	if err := FormatTokensYAML(t.Context(), &buf, toks, 2); err != nil {
		t.Fatalf("format error: %v", err)
	}

	if !strings.Contains(buf.String(), "kind: interpolation") {
		t.Errorf("expected interpolation token in:\n%s", buf.String())
	}
}
