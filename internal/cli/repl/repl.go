package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"codearena/internal/cli/command"
	httpclient "codearena/internal/cli/http"
	"codearena/internal/cli/state"
	"codearena/internal/judge/model"
	pkgerrors "codearena/pkg/errors"

	"github.com/google/shlex"
)

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	tokenState *state.TokenState
	statePath  string
	prettyJSON bool
	in         *bufio.Reader
	out        *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool, in io.Reader, out io.Writer) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		tokenState: tokenState,
		statePath:  statePath,
		prettyJSON: prettyJSON,
		in:         bufio.NewReader(in),
		out:        bufio.NewWriter(out),
	}
}

// Run reads commands until exit or end of input.
func (s *Session) Run(ctx context.Context) {
	for {
		_, _ = s.out.WriteString("codearena> ")
		_ = s.out.Flush()
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			if err != io.EOF {
				s.printLine("read input failed: %v", err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.printLine("bye")
			return
		}
		if s.handleSystemCommand(line) {
			continue
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	if line == "help" {
		s.printHelp()
		return true
	}
	if line == "logout" {
		s.tokenState.AccessToken = ""
		if err := state.Clear(s.statePath); err != nil {
			s.printLine("clear token failed: %v", err)
			return true
		}
		s.printLine("token cleared")
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|token|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8086")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 30s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		if len(parts) < 2 {
			s.printLine("usage: set token <access_token>")
			return
		}
		s.tokenState.AccessToken = parts[1]
		s.tokenState.UpdatedAt = time.Now()
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save token failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "token":
		if s.tokenState.AccessToken == "" {
			s.printLine("token: <empty>")
			return
		}
		token := s.tokenState.AccessToken
		if len(token) > 12 {
			token = token[:6] + "..." + token[len(token)-4:]
		}
		s.printLine("token: %s", token)
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	key, args, err := s.resolveCommand(tokens)
	if err != nil {
		return err
	}
	cmd := s.commands[key]
	params := command.Params{}
	for _, token := range args {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)
	command.ApplyFileShortcuts(params)

	if cmd.RequiresAuth && s.tokenState.AccessToken == "" {
		return fmt.Errorf("%s requires a token, use: set token <access_token>", key)
	}
	if err := s.promptMissing(&cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(cmd, resp)
	return nil
}

// resolveCommand accepts both "<service> <action>" and the shortcut verbs.
func (s *Session) resolveCommand(tokens []string) (string, []string, error) {
	if len(tokens) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	if len(tokens) >= 2 {
		key := tokens[0] + " " + tokens[1]
		if _, ok := s.commands[key]; ok {
			return key, tokens[2:], nil
		}
	}
	if key, ok := command.Shortcuts[tokens[0]]; ok {
		return key, tokens[1:], nil
	}
	if len(tokens) < 2 {
		return "", nil, fmt.Errorf("invalid command, use: <service> <action> key=value ... or help")
	}
	return "", nil, fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
}

func (s *Session) promptMissing(cmd *command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Get(field.Name) != "" {
			continue
		}
		value, err := s.promptValue(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResponse(cmd command.Command, resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}
	if cmd.Action == "run" || cmd.Action == "submit" {
		if s.renderOutcome(resp) {
			return
		}
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

type outcomeView struct {
	SubmissionID string `json:"submissionId"`
	model.Outcome
}

// renderOutcome prints a verdict summary and per-case lines. It reports false
// when the body is not a successful outcome.
func (s *Session) renderOutcome(resp httpclient.ResponseInfo) bool {
	env, err := resp.Envelope()
	if err != nil {
		return false
	}
	if env.Code != int(pkgerrors.Success) {
		s.printLine("error %d: %s", env.Code, env.Message)
		for k, v := range env.Details {
			s.printLine("  %s: %v", k, v)
		}
		return true
	}
	var view outcomeView
	if err := json.Unmarshal(env.Data, &view); err != nil || view.Status == "" {
		return false
	}
	passed := 0
	for _, r := range view.Results {
		if r.Passed {
			passed++
		}
	}
	summary := fmt.Sprintf("%s  %d/%d passed  %dms", view.Status, passed, len(view.Results), view.RuntimeMs)
	if view.SubmissionID != "" {
		summary += "  id=" + view.SubmissionID
	}
	s.printLine("%s", summary)
	for _, r := range view.Results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
		}
		s.printLine("  [%s] case %d: input=%s expected=%s actual=%s", mark, r.CaseID, r.Input, r.Expected, r.Actual)
	}
	if view.Error != "" {
		if view.Failure == model.FailureTransport {
			s.printLine("execution backend unavailable: %s", view.Error)
		} else {
			s.printLine("stderr:\n%s", view.Error)
		}
	}
	return true
}

func (s *Session) printHelp() {
	s.printLine("usage: <command> key=value ...")
	s.printLine("commands:")
	s.printLine("  run slug=<slug> language=<lang> code=... | code_file=<path>")
	s.printLine("  submit slug=<slug> language=<lang> code_file=<path>")
	s.printLine("  submissions slug=<slug>")
	s.printLine("  composed id=<submission_id>")
	s.printLine("  problem slug=<slug>")
	s.printLine("  solved")
	s.printLine("system: help | exit | logout | set base|timeout|token | show token|config")
	s.printLine("examples:")
	s.printLine("  run slug=two-sum file=./two_sum.py")
	s.printLine("  submit slug=two-sum language=cpp file=./main.cpp")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
	_ = s.out.Flush()
}
