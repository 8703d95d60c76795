package trace

import "time"

// Source identifies what produced the answer to a request.
type Source string

const (
	SourceDynamic     Source = "dynamic"
	SourceStatic      Source = "static"
	SourceNotFound    Source = "not_found"
	SourcePassthrough Source = "passthrough"
	SourceRecorded    Source = "recorded"
)

// Entry represents how a single request was handled.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Source    Source    `json:"source"`
	// File is the scenario file that answered or was recorded to.
	File       string            `json:"file,omitempty"`
	Code       int               `json:"code,omitempty"`
	DelayMs    int64             `json:"delay_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Candidates []CandidateResult `json:"candidates,omitempty"`
}

// CandidateResult records the evaluation of one matcher in a scenario file.
type CandidateResult struct {
	File         string `json:"file,omitempty"`
	Index        int    `json:"index"`
	Matched      bool   `json:"matched"`
	FailedField  string `json:"failed_field,omitempty"`
	FailedReason string `json:"failed_reason,omitempty"`
}
