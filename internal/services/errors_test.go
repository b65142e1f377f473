package services

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestStoreErrorMapsUniqueViolationToConflict(t *testing.T) {
	err := storeError(&pgconn.PgError{Code: "23505"}, "insert asset", "Asset code already exists")
	expectStatus(t, err, 409)
}

func TestStoreErrorWrapsOtherFailures(t *testing.T) {
	cause := &pgconn.PgError{Code: "23503"}
	err := storeError(cause, "insert asset", "unused")
	var svcErr ServiceError
	if errors.As(err, &svcErr) {
		t.Fatalf("foreign key failure surfaced as %v", svcErr)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Errors: []FieldError{{Field: "title", Message: "is required"}}}
	if err.Error() != "validation failed: title is required" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
