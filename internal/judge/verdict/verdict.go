// Package verdict compares program output against expected output.
package verdict

import (
	"strings"
	"unicode"

	"codearena/internal/judge/model"
)

// NoOutput is the actual value recorded for a test case without an output line.
const NoOutput = "No Output"

// Normalize removes every whitespace rune. Outputs differing only in spacing compare equal.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Evaluate matches the Nth stdout line to the Nth test case.
// It always returns exactly one result per test case.
func Evaluate(cases []model.TestCase, stdout string) []model.CaseResult {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	results := make([]model.CaseResult, len(cases))
	for i, tc := range cases {
		line := ""
		if i < len(lines) {
			line = strings.TrimSpace(lines[i])
		}
		// A missing line never passes, whatever the expected text is.
		if line == "" {
			results[i] = model.CaseResult{CaseID: i + 1, Input: tc.Input, Expected: tc.Output, Actual: NoOutput}
			continue
		}
		results[i] = model.CaseResult{
			CaseID:   i + 1,
			Input:    tc.Input,
			Expected: tc.Output,
			Actual:   line,
			Passed:   Normalize(line) == Normalize(tc.Output),
		}
	}
	return results
}

// Aggregate returns Accepted iff every result passed.
func Aggregate(results []model.CaseResult) model.Verdict {
	for _, r := range results {
		if !r.Passed {
			return model.VerdictWrongAnswer
		}
	}
	return model.VerdictAccepted
}

// Judge produces the outcome for one execution. Any stderr output fails the
// whole batch as a runtime error without per-case results.
func Judge(cases []model.TestCase, stdout, stderr string) model.Outcome {
	if stderr != "" {
		return model.Outcome{
			Status:  model.VerdictRuntimeError,
			Results: []model.CaseResult{},
			Error:   stderr,
			Failure: model.FailureStderr,
		}
	}
	results := Evaluate(cases, stdout)
	return model.Outcome{
		Status:  Aggregate(results),
		Results: results,
	}
}

// TransportFailure builds the outcome for a dispatch that never produced output.
func TransportFailure(err error) model.Outcome {
	msg := "execution backend unavailable"
	if err != nil {
		msg = err.Error()
	}
	return model.Outcome{
		Status:  model.VerdictRuntimeError,
		Results: []model.CaseResult{},
		Error:   msg,
		Failure: model.FailureTransport,
	}
}
