package model

// Verdict is the categorical outcome of a run or submission.
type Verdict string

const (
	VerdictAccepted     Verdict = "Accepted"
	VerdictWrongAnswer  Verdict = "Wrong Answer"
	VerdictRuntimeError Verdict = "Runtime Error"
	// VerdictTimeLimitExceeded is accepted by the submission store but never
	// produced by the engine: the backend reports no distinct timeout signal.
	VerdictTimeLimitExceeded Verdict = "Time Limit Exceeded"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictAccepted, VerdictWrongAnswer, VerdictRuntimeError, VerdictTimeLimitExceeded:
		return true
	}
	return false
}

// FailureKind tells apart the two causes of a Runtime Error outcome.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureStderr    FailureKind = "stderr"
	FailureTransport FailureKind = "transport"
)

// CaseResult is the evaluation of one test case.
type CaseResult struct {
	CaseID   int    `json:"caseId"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Outcome is the engine result for one execution.
type Outcome struct {
	Status    Verdict      `json:"status"`
	Results   []CaseResult `json:"results"`
	Error     string       `json:"error,omitempty"`
	Failure   FailureKind  `json:"failure,omitempty"`
	RuntimeMs int64        `json:"runtimeMs"`
}
