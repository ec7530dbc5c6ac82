// Package feedback records thumbs up/down ratings of answers.
//
// Two sinks exist: JSONLSink appends one JSON object per line to a file,
// SQLiteSink inserts into a table and can list recent ratings. Records are
// append-only in both.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRating is returned for rating values other than up and down.
var ErrInvalidRating = errors.New("feedback: rating must be up or down")

// Value is a rating verdict.
type Value string

const (
	Up   Value = "up"
	Down Value = "down"
)

// ParseValue validates a user-supplied rating.
func ParseValue(s string) (Value, error) {
	switch v := Value(s); v {
	case Up, Down:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// Rating is one feedback record. Timestamp is set by the sink at append time.
type Rating struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Rating    Value  `json:"rating"`
	Role      string `json:"role"`
	Mode      string `json:"mode"`
	Question  string `json:"question"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"` // TimestampLayout, UTC
}

// Sink persists ratings.
type Sink interface {
	Append(ctx context.Context, r Rating) error
	Close() error
}

// Lister is implemented by sinks that can read ratings back.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]Rating, error)
}

// TimestampLayout is RFC 3339 in UTC with fixed microseconds, so stored
// timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

func stamp(r *Rating) error {
	if _, err := ParseValue(string(r.Rating)); err != nil {
		return err
	}
	r.Timestamp = now().Format(TimestampLayout)
	return nil
}
