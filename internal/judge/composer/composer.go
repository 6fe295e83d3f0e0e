// Package composer merges user code with per-problem driver templates into a
// single runnable source unit.
package composer

import (
	"sort"
	"strings"
	"sync"

	"codearena/internal/judge/literal"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

// Injection markers recognised in driver templates.
const (
	UserCodeMarker = "##USER_CODE##"
	InputsMarker   = "##INPUTS##"
)

// Strategy composes source for one language.
type Strategy interface {
	// RenderInputs renders all test case argument lists as a single literal.
	RenderInputs(args []literal.Arguments) (string, error)
	// Compose merges user code and rendered inputs into the driver template.
	Compose(userCode, template, renderedInputs string) (string, error)
}

// Composer selects a strategy by language.
type Composer struct {
	mu         sync.RWMutex
	strategies map[model.Language]Strategy
}

// New creates an empty composer.
func New() *Composer {
	return &Composer{strategies: make(map[model.Language]Strategy)}
}

// NewDefault creates a composer with the built-in languages registered.
func NewDefault() *Composer {
	c := New()
	c.Register(model.LangJavaScript, JavaScript{})
	c.Register(model.LangPython, Python{})
	c.Register(model.LangCPP, CPP{})
	c.Register(model.LangJava, Java{})
	return c
}

// Register adds or replaces the strategy for a language.
func (c *Composer) Register(lang model.Language, s Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[lang] = s
}

// Lookup returns the strategy registered for a language.
func (c *Composer) Lookup(lang model.Language) (Strategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.strategies[lang]
	return s, ok
}

// Supports reports whether a strategy exists for the language.
func (c *Composer) Supports(lang model.Language) bool {
	_, ok := c.Lookup(lang)
	return ok
}

// Languages lists registered languages in lexical order.
func (c *Composer) Languages() []model.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]model.Language, 0, len(c.strategies))
	for lang := range c.strategies {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Compose builds the source unit for a problem in the given language.
// All failures are configuration errors; nothing should be dispatched when one is returned.
func (c *Composer) Compose(problem *model.Problem, lang model.Language, userCode string) (string, error) {
	if problem == nil {
		return "", appErr.New(appErr.ProblemNotFound)
	}
	strategy, ok := c.Lookup(lang)
	if !ok {
		return "", appErr.ConfigError(appErr.LanguageNotSupported, "language %s not supported", lang).
			WithDetail("language", string(lang))
	}
	template, ok := problem.DriverTemplate(lang)
	if !ok || strings.TrimSpace(template) == "" {
		return "", appErr.ConfigError(appErr.LanguageNotSupported, "language %s not supported", lang).
			WithDetail("language", string(lang)).
			WithDetail("problem", problem.Slug)
	}

	args, err := literal.EncodeInputs(problem.TestCases)
	if err != nil {
		return "", withProblem(err, problem.Slug)
	}
	rendered, err := strategy.RenderInputs(args)
	if err != nil {
		return "", withProblem(withLanguage(err, lang), problem.Slug)
	}
	source, err := strategy.Compose(userCode, template, rendered)
	if err != nil {
		return "", withProblem(withLanguage(err, lang), problem.Slug)
	}
	return source, nil
}

func withProblem(err error, slug string) error {
	if e := appErr.GetError(err); e != nil {
		return e.WithDetail("problem", slug)
	}
	return err
}

func withLanguage(err error, lang model.Language) error {
	if e := appErr.GetError(err); e != nil {
		return e.WithDetail("language", string(lang))
	}
	return err
}

// fill substitutes the first occurrence of each marker found in template.
// Positions are taken from the template alone, so marker text inside a
// substituted value is left untouched.
func fill(template string, values map[string]string) string {
	type hit struct {
		at     int
		marker string
	}
	hits := make([]hit, 0, len(values))
	for marker := range values {
		if at := strings.Index(template, marker); at >= 0 {
			hits = append(hits, hit{at: at, marker: marker})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	var sb strings.Builder
	last := 0
	for _, h := range hits {
		sb.WriteString(template[last:h.at])
		sb.WriteString(values[h.marker])
		last = h.at + len(h.marker)
	}
	sb.WriteString(template[last:])
	return sb.String()
}

// renderJSONInputs renders argument lists as one JSON array.
func renderJSONInputs(args []literal.Arguments) (string, error) {
	values := make([]interface{}, len(args))
	for i, a := range args {
		values[i] = []interface{}(a)
	}
	return literal.RenderJSON(values)
}

// renderBraceInputs renders argument lists as `{{a, b}, {c, d}}`.
func renderBraceInputs(args []literal.Arguments) (string, error) {
	cases := make([]string, len(args))
	for i, a := range args {
		list, err := literal.RenderBraceList(a)
		if err != nil {
			return "", err
		}
		cases[i] = "{" + list + "}"
	}
	return "{" + strings.Join(cases, ", ") + "}", nil
}

func missingInputsMarker(lang model.Language) error {
	return appErr.ConfigError(appErr.DriverTemplateInvalid, "%s driver template has no %s marker", lang, InputsMarker).
		WithDetail("marker", InputsMarker)
}
