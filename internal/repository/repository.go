package repository

import (
	"database/sql"
	"errors"
)

// errNoRowsAffected marks writes that matched no row so services can map them
// to a not-found error. It wraps sql.ErrNoRows for errors.Is checks.
var errNoRowsAffected = sql.ErrNoRows

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
