package model

// Problem is the read-only problem record consumed by the judge engine.
type Problem struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	DriverCode  map[string]string `json:"driverCode"`
	StarterCode map[string]string `json:"starterCode"`
	TestCases   []TestCase        `json:"testCases"`
	Settings    Settings          `json:"settings"`
}

// TestCase is one hidden test. Input holds the call arguments as a JSON fragment
// without the enclosing brackets, e.g. `[2,7,11,15],9`.
type TestCase struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Settings carries per-problem execution limits passed through to the backend.
type Settings struct {
	TimeLimitMs   int64 `json:"timeLimitMs"`
	MemoryLimitMB int64 `json:"memoryLimitMb"`
}

// DriverTemplate returns the driver template for a language.
func (p *Problem) DriverTemplate(lang Language) (string, bool) {
	if p == nil || p.DriverCode == nil {
		return "", false
	}
	tpl, ok := p.DriverCode[string(lang)]
	return tpl, ok
}
