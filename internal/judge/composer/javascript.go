package composer

import (
	"strings"

	"codearena/internal/judge/literal"
)

// JavaScript composes Node.js sources. Inputs are a JSON array literal.
type JavaScript struct{}

func (JavaScript) RenderInputs(args []literal.Arguments) (string, error) {
	return renderJSONInputs(args)
}

func (JavaScript) Compose(userCode, template, inputs string) (string, error) {
	binding := "const inputs = " + inputs + ";"

	if !strings.Contains(template, UserCodeMarker) {
		return userCode + "\n" + binding + "\n" + fill(template, map[string]string{InputsMarker: inputs}) + "\n", nil
	}
	if strings.Contains(template, InputsMarker) {
		return fill(template, map[string]string{UserCodeMarker: userCode, InputsMarker: inputs}) + "\n", nil
	}
	return binding + "\n" + fill(template, map[string]string{UserCodeMarker: userCode}) + "\n", nil
}
