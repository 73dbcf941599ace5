package model

import "time"

// CodeSession is one recorded interaction with the code runner in a course.
//
// Two kinds of rows share this table:
//   - executions: Output, Success, FailureKind and DurationMs are filled in
//   - timed sessions: created ahead of time with a TimeLimitSeconds and no result
//
// Output holds stdout when the run succeeded and the error text otherwise,
// so the history view can show "what the student saw" in one column.
type CodeSession struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	CourseID         string    `json:"course_id"`
	Language         string    `json:"language"`
	Code             string    `json:"code"`
	Output           *string   `json:"output"`
	Success          *bool     `json:"success"`
	FailureKind      string    `json:"failure_kind,omitempty"`
	DurationMs       *int64    `json:"duration_ms"`
	TimeLimitSeconds *int      `json:"time_limit_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}
