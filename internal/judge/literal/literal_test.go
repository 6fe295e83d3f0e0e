package literal

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

func TestEncodeInputsPreservesOrder(t *testing.T) {
	cases := []model.TestCase{
		{Input: "[2,7,11,15],9"},
		{Input: `"abc"`},
		{Input: ""},
		{Input: "  [[1,2],[3]] , true "},
	}
	got, err := EncodeInputs(cases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(cases) {
		t.Fatalf("expected %d argument lists, got %d", len(cases), len(got))
	}

	want := []Arguments{
		{[]interface{}{json.Number("2"), json.Number("7"), json.Number("11"), json.Number("15")}, json.Number("9")},
		{"abc"},
		{},
		{[]interface{}{[]interface{}{json.Number("1"), json.Number("2")}, []interface{}{json.Number("3")}}, true},
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("case %d: got %#v, want %#v", i+1, got[i], want[i])
		}
	}
}

func TestEncodeInputsRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unterminated", input: "[1,2"},
		{name: "bare word", input: "hello"},
		{name: "trailing bracket", input: "1],[2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeInputs([]model.TestCase{{Input: "1"}, {Input: tt.input}})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !appErr.Is(err, appErr.TestCaseInvalid) {
				t.Fatalf("expected TestCaseInvalid, got %v", appErr.GetCode(err))
			}
			if !appErr.IsConfigError(err) {
				t.Fatalf("expected config error")
			}
			if got := appErr.GetError(err).Details["case"]; got != 2 {
				t.Fatalf("expected case detail 2, got %v", got)
			}
		})
	}
}

func TestRenderBrace(t *testing.T) {
	args, err := Decode(`[[1,2],[3,4]], "ab", true, -1.5, null`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	tests := []struct {
		value interface{}
		want  string
	}{
		{args[0], "{{1, 2}, {3, 4}}"},
		{args[1], `"ab"`},
		{args[2], "true"},
		{args[3], "-1.5"},
		{args[4], "null"},
		{[]interface{}{}, "{}"},
	}
	for _, tt := range tests {
		got, err := RenderBrace(tt.value)
		if err != nil {
			t.Fatalf("render %v failed: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("RenderBrace() = %q, want %q", got, tt.want)
		}
	}
}

func TestRenderBraceDoesNotEscapeStrings(t *testing.T) {
	got, err := RenderBrace(`say "hi"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"say "hi""` {
		t.Fatalf("unexpected render: %s", got)
	}
}

func TestRenderBraceRejectsObjects(t *testing.T) {
	args, err := Decode(`{"a":1}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, err := RenderBrace(args[0]); !appErr.Is(err, appErr.LiteralUnsupported) {
		t.Fatalf("expected LiteralUnsupported, got %v", err)
	}
}

func TestRenderBraceRoundTrip(t *testing.T) {
	inputs := []string{
		`[1,2,3]`,
		`[["a","b"],["c"]]`,
		`[true,false,[0.25,-7]]`,
		`[]`,
		`[[[]]]`,
	}
	for _, in := range inputs {
		args, err := Decode(in)
		if err != nil {
			t.Fatalf("decode %s failed: %v", in, err)
		}
		rendered, err := RenderBrace(args[0])
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		reparsed, err := Decode(braceToJSON(rendered))
		if err != nil {
			t.Fatalf("reparse %s failed: %v", rendered, err)
		}
		if !reflect.DeepEqual(reparsed[0], args[0]) {
			t.Errorf("round trip mismatch for %s: got %#v", in, reparsed[0])
		}
	}
}

func TestRenderJSONMatchesLanguages(t *testing.T) {
	args, err := Decode(`[2,7],"<a&b>"`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	js, err := Render([]interface{}(args), model.LangJavaScript)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if js != `[[2,7],"<a&b>"]` {
		t.Fatalf("unexpected json render: %s", js)
	}
	cpp, err := Render([]interface{}(args), model.LangCPP)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if cpp != `{{2, 7}, "<a&b>"}` {
		t.Fatalf("unexpected brace render: %s", cpp)
	}
}

// braceToJSON converts brace literals back into JSON arrays. It is only valid
// for strings that contain no braces themselves.
func braceToJSON(s string) string {
	return strings.NewReplacer("{", "[", "}", "]").Replace(s)
}

func TestCanonicalNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{"1.0", "1"},
		{"2.50", "2.5"},
		{"1e3", "1000"},
		{"1E3", "1000"},
		{"-0", "0"},
		{"-0.0", "0"},
		{"0.1", "0.1"},
		{"-1.50e1", "-15"},
		{"1e21", "1e+21"},
		{"1.5e-7", "1.5e-7"},
		{"0.000001", "0.000001"},
		{"9223372036854775807", "9223372036854775807"},
	}
	for _, tt := range tests {
		if got := CanonicalNumber(tt.in); got != tt.want {
			t.Errorf("CanonicalNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeRendersCanonicalNumbers(t *testing.T) {
	args, err := Decode(`[1.0,2.50,1e3],-0,{"k":[4.00]}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	brace, err := RenderBraceList(args[:2])
	if err != nil {
		t.Fatalf("render brace failed: %v", err)
	}
	if brace != "{1, 2.5, 1000}, 0" {
		t.Fatalf("unexpected brace render: %s", brace)
	}
	js, err := RenderJSON([]interface{}(args))
	if err != nil {
		t.Fatalf("render json failed: %v", err)
	}
	if js != `[[1,2.5,1000],0,{"k":[4]}]` {
		t.Fatalf("unexpected json render: %s", js)
	}
}
