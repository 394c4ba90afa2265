package db

import "strings"

// IsUniqueViolation reports whether err is a unique-constraint violation,
// such as two concurrent adds racing to insert the same cart line. With a
// constraintName the check is scoped to that named constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
