package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrUniqueViolation signals that an insert lost a race against the
// database's uniqueness constraint. Services map it to a domain error.
var ErrUniqueViolation = errors.New("unique constraint violation")

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}
