package composer

import (
	"strings"

	"codearena/internal/judge/literal"
)

// Python composes CPython sources. Inputs travel as a single-quoted JSON
// string that the driver decodes with json.loads.
type Python struct{}

func (Python) RenderInputs(args []literal.Arguments) (string, error) {
	return renderJSONInputs(args)
}

func (Python) Compose(userCode, template, inputs string) (string, error) {
	const header = "import json"
	quoted := "'" + inputs + "'"
	binding := "inputs = json.loads(" + quoted + ")"

	if !strings.Contains(template, UserCodeMarker) {
		return header + "\n" + userCode + "\n" + binding + "\n" + fill(template, map[string]string{InputsMarker: quoted}) + "\n", nil
	}
	if strings.Contains(template, InputsMarker) {
		return header + "\n" + fill(template, map[string]string{UserCodeMarker: userCode, InputsMarker: quoted}) + "\n", nil
	}
	return header + "\n" + binding + "\n" + fill(template, map[string]string{UserCodeMarker: userCode}) + "\n", nil
}
