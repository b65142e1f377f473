package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestCompleteMaintenanceTwiceIsConflict(t *testing.T) {
	database, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE maintenances\s+SET status = 'completed'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT m\.id`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_code", "asset_id", "type", "title", "status", "completed_date", "cost"}).
			AddRow(int64(4), "MNT-240309-007", int64(3), "preventive", "Clean fans", "completed", fixedNow, "80.00"))

	in := CompleteMaintenanceInput{Cost: decimal.NewNullDecimal(decimal.NewFromInt(80))}
	first, err := CompleteMaintenance(ctx, database, 4, in)
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if first.Status != "completed" || first.CompletedDate == nil {
		t.Fatalf("maintenance = %+v", first)
	}

	mock.ExpectExec(`UPDATE maintenances\s+SET status = 'completed'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM maintenances WHERE id = $1)`)).
		WithArgs(int64(4)).
		WillReturnRows(existsRows(true))

	_, err = CompleteMaintenance(ctx, database, 4, in)
	expectStatus(t, err, 409)
	checkExpectations(t, mock)
}

func TestStartMaintenanceOnlyFromScheduled(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectExec(`UPDATE maintenances SET status = 'in_progress'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM maintenances WHERE id = $1)`)).
		WillReturnRows(existsRows(true))

	_, err := StartMaintenance(context.Background(), database, 4)
	expectStatus(t, err, 409)
	checkExpectations(t, mock)
}

func TestDeleteMaintenanceMissingIsNotFound(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM maintenances`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM maintenances WHERE id = $1)`)).
		WillReturnRows(existsRows(false))

	err := DeleteMaintenance(context.Background(), database, 77)
	expectStatus(t, err, 404)
	checkExpectations(t, mock)
}

func TestCreateMaintenanceForMissingAssetIsNotFound(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM assets WHERE id = $1)`)).
		WithArgs(int64(3)).
		WillReturnRows(existsRows(false))

	_, err := CreateMaintenance(context.Background(), database, fixedGenerator(), 1, MaintenanceInput{
		AssetID:       3,
		Type:          "preventive",
		Title:         "Clean fans",
		ScheduledDate: &Date{Time: fixedNow},
	})
	expectStatus(t, err, 404)
	checkExpectations(t, mock)
}

func TestTransitionRowsAffectedFailureIsStoreError(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectExec(`UPDATE maintenances SET status = 'in_progress'`).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver does not report rows")))

	_, err := StartMaintenance(context.Background(), database, 4)
	if err == nil {
		t.Fatal("expected error")
	}
	var svcErr ServiceError
	if errors.As(err, &svcErr) {
		t.Fatalf("rows-affected failure reported as %d %q", svcErr.Status, svcErr.Message)
	}
	checkExpectations(t, mock)
}
