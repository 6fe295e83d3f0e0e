package model

// SubmissionJudgedEvent is the message payload published after a submission is persisted.
type SubmissionJudgedEvent struct {
	SubmissionID string  `json:"submission_id"`
	ProblemID    int64   `json:"problem_id"`
	ProblemSlug  string  `json:"problem_slug"`
	UserID       int64   `json:"user_id"`
	Language     string  `json:"language"`
	Status       Verdict `json:"status"`
	RuntimeMs    int64   `json:"runtime_ms"`
	SourceKey    string  `json:"source_key,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}
