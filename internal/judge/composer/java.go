package composer

import (
	"strings"

	"codearena/internal/judge/literal"
	"codearena/internal/judge/model"
)

// Java composes a single Main.java unit. Imports from the driver and the user
// code are merged and hoisted above both bodies.
type Java struct{}

func (Java) RenderInputs(args []literal.Arguments) (string, error) {
	return renderBraceInputs(args)
}

func (Java) Compose(userCode, template, inputs string) (string, error) {
	driverImports, driverBody := SplitImports(template)
	userImports, userBody := SplitImports(userCode)

	if !strings.Contains(driverBody, InputsMarker) {
		return "", missingInputsMarker(model.LangJava)
	}

	header := strings.Join(MergeImports(driverImports, userImports), "\n")
	if strings.Contains(driverBody, UserCodeMarker) {
		body := fill(driverBody, map[string]string{UserCodeMarker: userBody, InputsMarker: inputs})
		return header + "\n" + body + "\n", nil
	}
	body := fill(driverBody, map[string]string{InputsMarker: inputs})
	return header + "\n" + body + "\n" + userBody + "\n", nil
}
