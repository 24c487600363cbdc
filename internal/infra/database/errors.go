package database

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique-constraint
// violation.
const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally narrowed to one named constraint. The repositories map those to
// their duplicate sentinels instead of string-matching error text.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
