package poll

import (
	"fmt"
	"regexp"

	"github.com/jaevor/go-nanoid"
)

// ID identifies a poll. IDs are 24 hex characters, matching the identifier
// format validated at the HTTP boundary.
type ID string

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ParseID validates raw as a poll identifier.
func ParseID(raw string) (ID, error) {
	if !idPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: poll id must be 24 hex characters", ErrValidation)
	}

	return ID(raw), nil
}

func (id ID) String() string {
	return string(id)
}

// NewIDGenerator returns a generator producing random poll ids.
func NewIDGenerator() (func() ID, error) {
	gen, err := nanoid.CustomASCII("0123456789abcdef", 24)
	if err != nil {
		return nil, err
	}

	return func() ID { return ID(gen()) }, nil
}
