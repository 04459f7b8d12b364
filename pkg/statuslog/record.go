package statuslog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

// ErrInvalidRecord is wrapped by every [Record.Validate] failure.
var ErrInvalidRecord = errors.New("invalid status record")

// Record is a STAT line to be written.
type Record struct {
	Timestamp timestamp.Timestamp
	Major     string
	Minor     string
	Status    string
	Args      []string
}

// NewRecord returns a record stamped with the current time.
func NewRecord(major, minor, status string, args ...string) Record {
	return Record{Timestamp: timestamp.Now(), Major: major, Minor: minor, Status: status, Args: args}
}

// Validate checks that the record would parse back to the same fields.
func (r Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	fields := []struct{ name, value string }{
		{"major", r.Major},
		{"minor", r.Minor},
		{"status", r.Status},
	}
	for i, a := range r.Args {
		fields = append(fields, struct{ name, value string }{fmt.Sprintf("arg %d", i), a})
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: empty %s", ErrInvalidRecord, f.name)
		}
		if strings.ContainsAny(f.value, ":\r\n") {
			return fmt.Errorf("%w: %s %q contains a separator", ErrInvalidRecord, f.name, f.value)
		}
	}
	return nil
}

func (r Record) String() string {
	parts := append([]string{kindStat, r.Timestamp.LogString(), r.Major, r.Minor, r.Status}, r.Args...)
	return strings.Join(parts, ":")
}

// Comment returns a COMM line carrying text, with line breaks flattened.
func Comment(text string) string {
	return kindComm + ":" + strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
}
