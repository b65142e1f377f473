package services

import (
	"errors"
	"testing"
	"time"

	"siaf-backend/internal/codes"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func fixedGenerator() *codes.Generator {
	return &codes.Generator{
		Now:      func() time.Time { return fixedNow },
		Intn:     func(int) int { return 7 },
		Attempts: 3,
	}
}

func existsRows(v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(v)
}

func idRows(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func expectStatus(t *testing.T, err error, status int) {
	t.Helper()
	var svcErr ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want ServiceError %d", err, status)
	}
	if svcErr.Status != status {
		t.Fatalf("status = %d (%s), want %d", svcErr.Status, svcErr.Message, status)
	}
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
