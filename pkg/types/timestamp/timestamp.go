package timestamp

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"
)

// LogLayout is the layout of timestamps written to dataset status logs. It is
// fixed-width and zero-padded, so comparing two formatted timestamps as strings
// gives the same answer as comparing the times they represent.
const LogLayout = "20060102150405"

// LogWidth is the number of characters in a timestamp formatted with
// [LogLayout].
const LogWidth = len(LogLayout)

type innerTime = time.Time

// Timestamp represents a UTC time with second precision. It can be stored in a
// database as an integer (Unix time in seconds) and written to a status log as
// a 14-digit string. For convenience, it embeds an underlying `time.Time`
// value; note that all the `time.Time` methods which return "times" will still
// return a `time.Time` value.
type Timestamp struct {
	innerTime
}

var _ driver.Valuer = (*Timestamp)(nil)
var _ sql.Scanner = (*Timestamp)(nil)

func New(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{innerTime: t.UTC().Truncate(time.Second)}
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return New(time.Now())
}

// LogString formats the timestamp for a status log record.
func (t Timestamp) LogString() string {
	return t.innerTime.UTC().Format(LogLayout)
}

// ParseLog parses a 14-digit status log timestamp.
func ParseLog(s string) (Timestamp, error) {
	if len(s) != LogWidth {
		return Timestamp{}, fmt.Errorf("status log timestamp %q must be %d digits", s, LogWidth)
	}
	t, err := time.ParseInLocation(LogLayout, s, time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parsing status log timestamp %q: %w", s, err)
	}
	return New(t), nil
}

// Value stores the zero Timestamp as NULL.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.innerTime.Unix(), nil
}

func (t *Timestamp) Scan(src any) error {
	if src == nil {
		*t = Timestamp{}
		return nil
	}
	switch v := src.(type) {
	case int64:
		*t = Timestamp{innerTime: time.Unix(v, 0).UTC()}
	default:
		return fmt.Errorf("unsupported type for timestamp scanning: %T (%v)", v, v)
	}
	return nil
}
