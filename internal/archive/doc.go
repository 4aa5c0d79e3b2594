// Package archive submits URLs to the Wayback Machine and verifies that a
// fresh snapshot was recorded.
//
// Submissions are gated by a Gate: once the archive service answers 429 or
// 503, or a submission times out or fails in transport, every submission is
// skipped until the cooldown deadline passes. The gate holds no timers; the
// cooling state is derived from the current time on every check.
package archive
