package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Dump renders the full causal chain of err for logging, including
// driver-level detail that Error() alone hides.
func Dump(err error) string {
	if err == nil {
		return "<nil>"
	}

	var sb strings.Builder
	depth := 0
	for err != nil {
		if depth > 0 {
			sb.WriteString(" <- ")
		}
		sb.WriteString(describe(err))
		err = stdErrors.Unwrap(err)
		depth++
		if depth > 16 {
			sb.WriteString(" <- ...")
			break
		}
	}
	return sb.String()
}

func describe(err error) string {
	switch typed := err.(type) {
	case *pgconn.PgError:
		return fmt.Sprintf("pgconn(code=%s, constraint=%s, detail=%s, message=%s)",
			typed.Code, typed.ConstraintName, typed.Detail, typed.Message)
	case *pq.Error:
		return fmt.Sprintf("pq(code=%s, constraint=%s, detail=%s, message=%s)",
			typed.Code, typed.Constraint, typed.Detail, typed.Message)
	case *Error:
		return fmt.Sprintf("%s(%s)", typed.code, typed.message)
	default:
		return err.Error()
	}
}
