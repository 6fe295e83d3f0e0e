package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FileMarker is the placeholder value for a field whose content comes from a file.
const FileMarker = "_file_"

func codeFields() []Field {
	return []Field{
		{Name: "slug", Aliases: []string{"problem"}, Prompt: "problem slug", Type: FieldString, Required: true},
		{Name: "language", Aliases: []string{"lang"}, Prompt: "language (javascript|python|cpp|java)", Type: FieldString, Required: true},
		{Name: "code", Prompt: "code", Type: FieldString, Required: true},
		{Name: "code_file", Aliases: []string{"file"}, Prompt: "code_file", Type: FieldFile, Required: false},
	}
}

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "submission",
			Action:       "run",
			Method:       "POST",
			PathTemplate: "/api/v1/submissions/run",
			RequiresAuth: false,
			Fields:       codeFields(),
		},
		{
			Service:      "submission",
			Action:       "submit",
			Method:       "POST",
			PathTemplate: "/api/v1/submissions/submit",
			RequiresAuth: true,
			Fields:       codeFields(),
		},
		{
			Service:      "submission",
			Action:       "list",
			Method:       "GET",
			PathTemplate: "/api/v1/submissions",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "slug", Aliases: []string{"problem"}, Prompt: "problem slug", Type: FieldString, Required: true, Query: true},
			},
		},
		{
			Service:      "submission",
			Action:       "composed",
			Method:       "GET",
			PathTemplate: "/api/v1/submissions/:id/composed",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Prompt: "submission_id", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "problem",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/problems/:slug",
			RequiresAuth: false,
			Fields: []Field{
				{Name: "slug", Aliases: []string{"problem"}, Prompt: "problem slug", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "user",
			Action:       "solved",
			Method:       "GET",
			PathTemplate: "/api/v1/users/me/solved",
			RequiresAuth: true,
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// Shortcuts maps top-level verbs to registry keys.
var Shortcuts = map[string]string{
	"run":         "submission run",
	"submit":      "submission submit",
	"submissions": "submission list",
	"composed":    "submission composed",
	"problem":     "problem get",
	"solved":      "user solved",
}

// ApplyFileShortcuts marks code as file-backed and infers the language from
// the file extension when they were not given.
func ApplyFileShortcuts(params Params) {
	file := params.Get("code_file")
	if file == "" {
		return
	}
	if params.Get("code") == "" {
		params.Set("code", FileMarker)
	}
	if params.Get("language") == "" {
		if lang := LanguageFromPath(file); lang != "" {
			params.Set("language", lang)
		}
	}
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method == "GET" {
		path = appendQuery(path, cmd.Fields, params)
	} else {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	for _, key := range []string{"id", "slug"} {
		placeholder := ":" + key
		if strings.Contains(path, placeholder) {
			value := params.Get(key)
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", key)
			}
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
		}
	}
	return path, nil
}

func appendQuery(path string, fields []Field, params Params) string {
	values := url.Values{}
	for _, field := range fields {
		if field.Query && params.Get(field.Name) != "" {
			values.Set(field.Name, params.Get(field.Name))
		}
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	if cmd.Service == "submission" && (cmd.Action == "run" || cmd.Action == "submit") {
		return buildCodePayload(params)
	}
	return nil, nil
}

func buildCodePayload(params Params) (interface{}, error) {
	code := params.Get("code")
	if (code == "" || code == FileMarker) && params.Get("code_file") != "" {
		var err error
		code, err = ReadFile(params.Get("code_file"))
		if err != nil {
			return nil, err
		}
	}
	if code == "" || code == FileMarker {
		return nil, fmt.Errorf("code is required")
	}
	return map[string]string{
		"slug":     params.Get("slug"),
		"language": params.Get("language"),
		"code":     code,
	}, nil
}
