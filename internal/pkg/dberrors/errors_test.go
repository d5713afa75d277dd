package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "score_records_offering_student_key"}
	wrapped := fmt.Errorf("inserting: %w", pgErr)

	assert.True(t, IsDuplicateConstraintError(wrapped, "score_records_offering_student_key"))
	assert.False(t, IsDuplicateConstraintError(wrapped, "other_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("plain"), "score_records_offering_student_key"))
}

func TestCodeHelpers(t *testing.T) {
	assert.True(t, IsForeignKeyError(&pgconn.PgError{Code: CodeForeignKeyViolation}))
	assert.False(t, IsForeignKeyError(&pgconn.PgError{Code: CodeUniqueViolation}))
	assert.True(t, IsSerializationFailure(fmt.Errorf("tx: %w", &pgconn.PgError{Code: CodeSerializationFailure})))
	assert.False(t, IsSerializationFailure(nil))
}
