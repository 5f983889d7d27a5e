package domain

import "encoding/json"

// Job is a single execution request received from the dispatcher.
// TestCases is kept as a raw JSON value: the agent never interprets the
// shape of a test case, only serialises it once into the harness.
type Job struct {
	ID        string          `json:"id"`
	Language  string          `json:"language"`
	Code      string          `json:"code"`
	TestCases json.RawMessage `json:"testCases"`
}

// CaseError describes a runtime failure for a single test case. Harnesses
// disagree on the stack-trace key: the Python harness emits "trace",
// the JS harness emits "stack". UnmarshalJSON accepts either.
type CaseError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

func (e *CaseError) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Trace   string `json:"trace"`
		Stack   string `json:"stack"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.Message = raw.Message
	e.Trace = raw.Trace
	if e.Trace == "" {
		e.Trace = raw.Stack
	}
	return nil
}

// CaseResult is one entry of a Summary's case list.
type CaseResult struct {
	ID       int             `json:"id"`
	Status   string          `json:"status"`
	Input    json.RawMessage `json:"input,omitempty"`
	Expected json.RawMessage `json:"expected,omitempty"`
	Actual   json.RawMessage `json:"actual,omitempty"`
	Time     float64         `json:"time"`
	Reason   string          `json:"reason,omitempty"`
	Error    *CaseError      `json:"error,omitempty"`
}

const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// Summary is the harness's final_result.data payload, the authoritative
// outcome of a job.
type Summary struct {
	Total         int          `json:"total"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	ExecutionTime float64      `json:"execution_time"`
	Cases         []CaseResult `json:"cases"`
}

// ResultEvent is a single line of JSON emitted by the harness.
type ResultEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	EventTestResult  = "test_result"
	EventFinalResult = "final_result"
)

// JobOutcome is what JobExecutor returns for a job that ran to completion.
type JobOutcome struct {
	Success bool `json:"success"`
	Summary
}

// NewJobOutcome derives Success from the Summary's failed count.
func NewJobOutcome(s Summary) JobOutcome {
	return JobOutcome{Success: s.Failed == 0, Summary: s}
}
