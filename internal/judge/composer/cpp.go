package composer

import (
	"strings"

	"codearena/internal/judge/literal"
	"codearena/internal/judge/model"
)

// CPP composes C++ sources. Inputs are brace initializers and must be placed
// at the template's inputs marker.
type CPP struct{}

func (CPP) RenderInputs(args []literal.Arguments) (string, error) {
	return renderBraceInputs(args)
}

func (CPP) Compose(userCode, template, inputs string) (string, error) {
	if !strings.Contains(template, InputsMarker) {
		return "", missingInputsMarker(model.LangCPP)
	}
	if strings.Contains(template, UserCodeMarker) {
		return fill(template, map[string]string{UserCodeMarker: userCode, InputsMarker: inputs}), nil
	}
	return userCode + "\n" + fill(template, map[string]string{InputsMarker: inputs}), nil
}
