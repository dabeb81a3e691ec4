package room

import (
	"errors"
	"fmt"
)

// NoSubmitter is the submitter id of feed entries that carry no user.
const NoSubmitter = ""

// Entry is one open room. Number is the dedup key of the live set.
type Entry struct {
	Number          string  `json:"number"`
	RawMessage      string  `json:"raw_message"`
	SourceName      string  `json:"source_name"`
	SourceKind      string  `json:"source_kind"`
	SubmittedAt     int64   `json:"submitted_at"` // unix ms
	SubmitterID     string  `json:"submitter_id"`
	SubmitterName   string  `json:"submitter_name,omitempty"`
	SubmitterAvatar *string `json:"submitter_avatar,omitempty"`
}

// Submission is what a local relay hands to Submit.
type Submission struct {
	Number        string
	SubmitterID   string
	SubmitterName string
	RawMessage    string
	Source        string
}

var ErrEmptyNumber = errors.New("room number is empty")

// FeedError reports a failed external feed fetch; Query returns it unchanged to the caller.
type FeedError struct {
	Cause error
}

func (e *FeedError) Error() string { return fmt.Sprintf("room feed unavailable: %v", e.Cause) }
func (e *FeedError) Unwrap() error { return e.Cause }
