// Package literal decodes stored test case inputs and renders them as
// language-native literal syntax.
package literal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

// Arguments is the decoded argument list of one test case. Elements are
// json.Number, string, bool, nil, []interface{} or map[string]interface{}.
// Numbers hold their canonical text: `1.0` becomes `1`, `1e3` becomes `1000`.
type Arguments []interface{}

// EncodeInputs decodes every test case input into an argument list.
// The result has one entry per test case, in test case order.
func EncodeInputs(cases []model.TestCase) ([]Arguments, error) {
	out := make([]Arguments, 0, len(cases))
	for i, tc := range cases {
		args, err := Decode(tc.Input)
		if err != nil {
			return nil, appErr.ConfigError(appErr.TestCaseInvalid, "invalid input format for case %d", i+1).
				WithDetail("case", i+1).
				WithDetail("reason", err.Error())
		}
		out = append(out, args)
	}
	return out, nil
}

// Decode parses a bracket-less argument fragment such as `[1,2],"x"`.
func Decode(input string) (Arguments, error) {
	dec := json.NewDecoder(strings.NewReader("[" + strings.TrimSpace(input) + "]"))
	dec.UseNumber()

	var args []interface{}
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after arguments")
	}
	if args == nil {
		args = []interface{}{}
	}
	for i := range args {
		args[i] = canonicalize(args[i])
	}
	return Arguments(args), nil
}

func canonicalize(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		return json.Number(CanonicalNumber(string(v)))
	case []interface{}:
		for i := range v {
			v[i] = canonicalize(v[i])
		}
	case map[string]interface{}:
		for k := range v {
			v[k] = canonicalize(v[k])
		}
	}
	return value
}

// CanonicalNumber formats a JSON number the way JavaScript prints the parsed
// value. Plain integer literals keep their digits so values past 2^53 stay exact.
func CanonicalNumber(text string) string {
	if isPlainInteger(text) {
		if strings.Trim(strings.TrimPrefix(text, "-"), "0") == "" {
			return "0"
		}
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		n, _ := strconv.Atoi(exp)
		sign := "+"
		if n < 0 {
			sign = "-"
			n = -n
		}
		return mantissa + "e" + sign + strconv.Itoa(n)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isPlainInteger(text string) bool {
	digits := strings.TrimPrefix(text, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Render renders a decoded value for the target language.
func Render(value interface{}, lang model.Language) (string, error) {
	switch lang {
	case model.LangCPP, model.LangJava:
		return RenderBrace(value)
	default:
		return RenderJSON(value)
	}
}

// RenderJSON re-serializes a value as compact JSON text.
func RenderJSON(value interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", appErr.Wrapf(err, appErr.LiteralUnsupported, "encode literal failed")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// RenderBrace renders a value using brace-initializer syntax shared by C++ and Java.
// Strings are wrapped in double quotes as-is; no escaping is applied.
func RenderBrace(value interface{}) (string, error) {
	var sb strings.Builder
	if err := writeBrace(&sb, value); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderBraceList renders values as comma separated brace literals without an
// enclosing pair of braces.
func RenderBraceList(values []interface{}) (string, error) {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := writeBrace(&sb, v); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func writeBrace(sb *strings.Builder, value interface{}) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case json.Number:
		sb.WriteString(v.String())
	case string:
		sb.WriteByte('"')
		sb.WriteString(v)
		sb.WriteByte('"')
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case float64:
		sb.WriteString(fmt.Sprint(v))
	case int:
		sb.WriteString(fmt.Sprint(v))
	case int64:
		sb.WriteString(fmt.Sprint(v))
	case []interface{}:
		sb.WriteByte('{')
		for i, elem := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeBrace(sb, elem); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case Arguments:
		return writeBrace(sb, []interface{}(v))
	default:
		return appErr.ConfigError(appErr.LiteralUnsupported, "value of type %T has no brace literal form", value)
	}
	return nil
}
