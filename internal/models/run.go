package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Run records one mutating command applied to a dataset.
type Run struct {
	ID                string          `json:"id"`
	Seq               uint64          `json:"seq"`
	Operation         string          `json:"operation"`
	Args              []string        `json:"args,omitempty"`
	Input             string          `json:"input,omitempty"`
	Output            string          `json:"output,omitempty"`
	FingerprintBefore string          `json:"fingerprint_before,omitempty"`
	FingerprintAfter  string          `json:"fingerprint_after,omitempty"`
	Report            json.RawMessage `json:"report,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ShortID returns a shortened run ID (first 8 characters)
func (r *Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Changed reports whether the run produced a different dataset.
func (r *Run) Changed() bool {
	return r.FingerprintBefore != r.FingerprintAfter
}
