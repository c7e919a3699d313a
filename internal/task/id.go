package task

import (
	"strings"

	"github.com/google/uuid"

	tferrors "github.com/abatilo/taskflow/internal/errors"
)

const minIDLength = 4

// NewID returns a random UUID for a task, session or history entry.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the shortest prefix of id, at least minIDLength characters,
// that no other id in ids shares. It grows one character at a time.
func ShortID(id string, ids []string) string {
	for length := minIDLength; length < len(id); length++ {
		candidate := id[:length]
		unique := true
		for _, other := range ids {
			if other != id && strings.HasPrefix(other, candidate) {
				unique = false
				break
			}
		}
		if unique {
			return candidate
		}
	}
	return id
}

// ResolveID finds the single id in ids that starts with prefix.
// An exact match always wins over prefix matches.
func ResolveID(prefix string, ids []string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", tferrors.TaskNotFoundError{ID: prefix}
	}
	var matches []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", tferrors.TaskNotFoundError{ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", tferrors.AmbiguousIDError{Prefix: prefix, Matches: matches}
	}
}
