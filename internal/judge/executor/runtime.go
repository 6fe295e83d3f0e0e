package executor

import (
	"codearena/internal/judge/model"
)

// Runtime pins a language to a backend language name and version.
type Runtime struct {
	Language string `yaml:"language"`
	Version  string `yaml:"version"`
	// FileName is sent as the file name when set. Java needs Main.java.
	FileName string `yaml:"fileName"`
}

// DefaultRuntimes returns the built-in version pins.
func DefaultRuntimes() map[model.Language]Runtime {
	return map[model.Language]Runtime{
		model.LangJavaScript: {Language: "javascript", Version: "18.15.0"},
		model.LangPython:     {Language: "python", Version: "3.10.0"},
		model.LangCPP:        {Language: "cpp", Version: "10.2.0"},
		model.LangJava:       {Language: "java", Version: "15.0.2", FileName: "Main.java"},
	}
}

// RuntimeTable is an immutable language to runtime mapping built once at startup.
type RuntimeTable struct {
	runtimes map[model.Language]Runtime
}

// NewRuntimeTable merges overrides on top of the defaults. Entries with an
// empty version in overrides are ignored.
func NewRuntimeTable(overrides map[string]Runtime) RuntimeTable {
	runtimes := DefaultRuntimes()
	for name, rt := range overrides {
		lang := model.ParseLanguage(name)
		if rt.Version == "" {
			continue
		}
		base := runtimes[lang]
		if rt.Language == "" {
			rt.Language = base.Language
			if rt.Language == "" {
				rt.Language = string(lang)
			}
		}
		if rt.FileName == "" {
			rt.FileName = base.FileName
		}
		runtimes[lang] = rt
	}
	return RuntimeTable{runtimes: runtimes}
}

// Lookup returns the runtime pinned for a language.
func (t RuntimeTable) Lookup(lang model.Language) (Runtime, bool) {
	rt, ok := t.runtimes[lang]
	return rt, ok
}

// Len returns the number of pinned languages.
func (t RuntimeTable) Len() int {
	return len(t.runtimes)
}
