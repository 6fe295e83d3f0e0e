package model

import "strings"

// Language identifies a target language for composition and execution.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangCPP        Language = "cpp"
	LangJava       Language = "java"
)

// ParseLanguage normalizes a client supplied language identifier.
func ParseLanguage(s string) Language {
	return Language(strings.ToLower(strings.TrimSpace(s)))
}
