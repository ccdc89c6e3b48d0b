package api

import "time"

// GenerationRecord summarizes one finished generation session.
type GenerationRecord struct {
	RequestID    string       `json:"request_id"`
	ConnectionID string       `json:"connection_id,omitempty"`
	Transport    string       `json:"transport"`
	Prompt       string       `json:"prompt"`
	State        SessionState `json:"state"`
	Chunks       int          `json:"chunks"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// Duration returns how long the session ran.
func (r *GenerationRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordList holds a page of generation records, newest first.
type RecordList struct {
	Object string              `json:"object"`
	Data   []*GenerationRecord `json:"data"`
}
