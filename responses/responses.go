package responses

import (
	"time"

	"github.com/foomo/funnelstore/pkg/snapshot"
)

// TimestampLayout ISO-8601 in UTC with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Error describes an error for humans, the status travels as the HTTP status code
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

// NewError - a brand new error
func NewError(status int, message string) *Error {
	return &Error{
		Status:  status,
		Message: message,
	}
}

// Commit - acknowledges a save or import
type Commit struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

func NewCommit(c snapshot.Commit) *Commit {
	return &Commit{
		Success:   true,
		Timestamp: FormatTimestamp(c.Timestamp),
	}
}

// Backups - the backup listing, newest first
type Backups struct {
	Backups []snapshot.Backup `json:"backups"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
