// Package repository holds the data access layer.  Every repository wraps a
// *sql.DB and issues parameterized statements only.  The sentinel values
// below let handlers and services tell failure scenarios apart: ErrNotFound
// for missing rows, ErrForbidden when the caller does not own a resource and
// ErrConflict when a unique constraint or state rule blocks the operation.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert hits a unique key or the current
// state of a row does not allow the update. Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a MySQL duplicate key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isMissingParent reports whether err is a MySQL foreign key violation on
// insert (1452), i.e. a referenced row does not exist.
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1452
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func strArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
