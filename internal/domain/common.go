package domain

import (
	"errors"
	"math"
)

// Sentinel errors shared across services and handlers.
var (
	// ErrNotFound covers both "does not exist" and "exists but is not
	// owned by the caller". The two cases must stay indistinguishable so
	// unauthorized callers cannot probe for existence.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a requested meeting status
	// change is not on the transition graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAgentInUse is returned when deleting an agent still referenced
	// by meetings.
	ErrAgentInUse = errors.New("agent is referenced by existing meetings")
)

// AuthUser is the authenticated identity attached to a request by the
// session middleware. It mirrors the identity provider's user record.
type AuthUser struct {
	ID    string
	Name  string
	Email string
	Image string
}

// Page is a uniform list result: one page of items plus the exact total
// computed from the same filter predicate.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// TotalPages returns ceil(total/pageSize), with 0 for an empty result set
// so pagination controls can disable "next" correctly.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
