package services

import (
	"context"
	"math"
	"testing"
	"time"

	"siaf-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestResolutionHoursSkipsUnresolved(t *testing.T) {
	resolvedAfter := func(h int) *time.Time {
		at := fixedNow.Add(time.Duration(h) * time.Hour)
		return &at
	}
	incidents := []models.Incident{
		{ReportedDate: fixedNow, ResolvedDate: resolvedAfter(2)},
		{ReportedDate: fixedNow, ResolvedDate: resolvedAfter(6)},
		{ReportedDate: fixedNow},
	}
	if got := ResolutionHours(incidents); math.Abs(got-4) > 1e-9 {
		t.Fatalf("ResolutionHours = %v, want 4", got)
	}
	if got := ResolutionHours(incidents[2:]); got != 0 {
		t.Fatalf("ResolutionHours with none resolved = %v", got)
	}
}

func TestIncidentReportSummarizesFetchedPage(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM incidents`).WithArgs("high").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT i\.id`).WithArgs("high", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "priority", "reported_date", "resolved_date"}).
			AddRow(int64(1), "resolved", "high", fixedNow, fixedNow.Add(90*time.Minute)).
			AddRow(int64(2), "open", "high", fixedNow, nil))

	report, err := IncidentReport(context.Background(), database, mapValues{"priority": "high"})
	if err != nil {
		t.Fatalf("IncidentReport: %v", err)
	}
	if report.Pagination.Total != 2 || report.Pagination.TotalPages != 1 {
		t.Fatalf("pagination = %+v", report.Pagination)
	}
	byStatus := report.Summary["byStatus"].(map[string]int)
	if byStatus["resolved"] != 1 || byStatus["open"] != 1 {
		t.Fatalf("byStatus = %v", byStatus)
	}
	if report.Summary["avgResolutionHours"].(float64) != 1.5 {
		t.Fatalf("avgResolutionHours = %v", report.Summary["avgResolutionHours"])
	}
	checkExpectations(t, mock)
}
