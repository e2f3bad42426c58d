package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "authcore/internal/errors"
)

// isUniqueViolation matches unique-constraint failures from MySQL, PostgreSQL and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "Error 1062")
}

// isForeignKeyViolation matches foreign-key failures from MySQL, PostgreSQL and SQLite.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "violates foreign key constraint") ||
		strings.Contains(msg, "a foreign key constraint fails") ||
		strings.Contains(msg, "23503")
}

// lastMatch returns the label whose marker appears last in msg. Constraint
// names trail the message in every driver, while MySQL echoes the offending
// value earlier in the text.
func lastMatch(msg string, markers map[string][]string) string {
	best, bestPos := "", -1
	for label, needles := range markers {
		for _, n := range needles {
			if pos := strings.LastIndex(msg, n); pos > bestPos {
				best, bestPos = label, pos
			}
		}
	}
	return best
}

var userUniqueMarkers = map[string][]string{
	"email": {"idx_user_email", "user.email"},
	"login": {"idx_user_login", "user.login"},
}

// translateUserWriteError converts a user insert/update failure into a DuplicateIdentityError.
// The field is empty when the driver message does not name the constraint.
func translateUserWriteError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	return apperrors.NewDuplicateIdentity(lastMatch(err.Error(), userUniqueMarkers))
}

var fkKindMarkers = map[string][]string{
	apperrors.KindRole: {"fk_user_service_role"},
	apperrors.KindUser: {"fk_user_service_user", "fk_login_history_user"},
}

// translateReferenceError converts a foreign-key failure into a ReferentialIntegrityError.
func translateReferenceError(err error) error {
	if !isForeignKeyViolation(err) {
		return err
	}
	return &apperrors.ReferentialIntegrityError{Kind: lastMatch(err.Error(), fkKindMarkers)}
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound(kind, id)
	}
	return err
}
