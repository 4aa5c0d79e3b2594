// Package watch holds the types and ports shared by the page monitor,
// the archiver, and the notifier.
package watch

import (
	"net/http"
	"time"
)

// FetchRequest describes one outbound HTTP call.
type FetchRequest struct {
	URL     string
	Method  string
	Headers http.Header
	Body    []byte
	Timeout time.Duration
}

// FetchResponse captures the result of a fetch.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// ChangeEvent is emitted once per detected content change.
type ChangeEvent struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	PreviousDigest string    `json:"previous_digest"`
	Digest         string    `json:"digest"`
	DetectedAt     time.Time `json:"detected_at"`
	// CaptureURI locates the stored copy of the changed page, if any.
	CaptureURI string `json:"capture_uri,omitempty"`
}
