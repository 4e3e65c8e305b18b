package db

import "strings"

var (
	uniqueMarkers = []string{"duplicate key value", "UNIQUE constraint failed"}
	checkMarkers  = []string{"violates check constraint", "CHECK constraint failed"}
)

// IsUniqueViolation reports whether err is a unique constraint failure on
// Postgres or SQLite. A non-empty constraintName narrows the match to that
// constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchViolation(err, constraintName, uniqueMarkers)
}

// IsCheckViolation reports whether err is a CHECK constraint failure, such as
// on_hand_quantity dropping below zero.
func IsCheckViolation(err error, constraintName string) bool {
	return matchViolation(err, constraintName, checkMarkers)
}

func matchViolation(err error, constraintName string, markers []string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	found := false
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
