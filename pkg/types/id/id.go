package id

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is a random identifier for check runs and the results recorded in them.
type ID uuid.UUID

type (
	RunID    = ID
	ResultID = ID
)

// Nil is the zero ID, used to mean "no ID".
var Nil = ID(uuid.Nil)

// New returns a fresh random ID.
func New() ID {
	return ID(uuid.New())
}

// Parse parses the canonical string form of an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("parsing id %q: %w", s, err)
	}
	return ID(u), nil
}

func (i ID) String() string {
	return uuid.UUID(i).String()
}

// Value stores the ID as its canonical string, so the same schema works for
// SQLite and PostgreSQL.
func (i ID) Value() (driver.Value, error) {
	if i == Nil {
		return nil, nil
	}
	return i.String(), nil
}

func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*i = parsed
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*i = parsed
	default:
		return fmt.Errorf("unsupported type for id scanning: %T (%v)", v, v)
	}
	return nil
}
