package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"siaf-backend/internal/config"
	"siaf-backend/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

type testServer struct {
	*Server
	mock    sqlmock.Sqlmock
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	cfg := config.Config{
		JWTSecret:         "test-secret",
		JWTIssuer:         "siaf",
		AccessTTLSeconds:  3600,
		RefreshTTLSeconds: 7200,
		SystemDiskPath:    "/",
	}
	server := NewServer(sqlx.NewDb(raw, "sqlmock"), cfg, services.NewEventHub())
	return &testServer{Server: server, mock: mock, handler: server.Router()}
}

func (ts *testServer) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, _, err := ts.Tokens.CreateAccessToken(services.Identity{UserID: userID, Username: "u", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestProtectedRouteWithoutTokenIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/assets", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] == "" {
		t.Fatal("missing message")
	}
}

func TestRefreshTokenCannotCallApi(t *testing.T) {
	ts := newTestServer(t)
	refresh, err := ts.Tokens.CreateRefreshToken(1)
	if err != nil {
		t.Fatal(err)
	}
	rec := ts.do(t, http.MethodGet, "/api/assets", refresh, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminOnlyRouteRejectsUsers(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/assets", ts.token(t, 2, "user"), map[string]string{"asset_code": "PC-1", "name": "PC"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestValidationFailuresAreListedPerField(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/incidents", ts.token(t, 2, "user"), map[string]string{"priority": "urgent"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ValidationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	fields := map[string]string{}
	for _, fe := range body.Errors {
		fields[fe.Field] = fe.Message
	}
	if fields["title"] != "is required" || fields["description"] != "is required" {
		t.Fatalf("errors = %+v", body.Errors)
	}
	if !strings.HasPrefix(fields["priority"], "must be one of") {
		t.Fatalf("priority error = %q", fields["priority"])
	}
}

func TestNestedItemErrorsCarryTheirIndex(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/requisitions", ts.token(t, 2, "user"), map[string]interface{}{
		"title": "Toner",
		"items": []map[string]interface{}{{"description": "Toner", "quantity": 0}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"items[0].quantity"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestListAssetsReturnsRowsAndPagination(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectQuery(`SELECT count\(\*\) FROM assets a`).WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	ts.mock.ExpectQuery(`SELECT a\.id`).WithArgs("active", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_code", "name", "status", "created_at", "updated_at"}).
			AddRow(int64(21), "PC-021", "Laptop", "active", time.Now(), time.Now()))

	rec := ts.do(t, http.MethodGet, "/api/assets?status=active&page=3&limit=10", ts.token(t, 2, "user"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 25 || pagination["totalPages"].(float64) != 3 || pagination["page"].(float64) != 3 {
		t.Fatalf("pagination = %v", pagination)
	}
	if len(body["assets"].([]interface{})) != 1 {
		t.Fatalf("assets = %v", body["assets"])
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDuplicateAssetCodeIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM assets WHERE asset_code = $1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	rec := ts.do(t, http.MethodPost, "/api/assets", ts.token(t, 1, "admin"), map[string]string{"asset_code": "PC-1", "name": "PC"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "Asset code already exists" {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreFailureIsGenericServerError(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectQuery(`SELECT count\(\*\) FROM incidents`).
		WillReturnError(errors.New(`pq: relation "incidents" does not exist`))

	rec := ts.do(t, http.MethodGet, "/api/incidents", ts.token(t, 2, "user"), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "relation") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestStatsBatchFailureReturnsNoPartialResults(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.MatchExpectationsInOrder(false)
	count := func(n int) *sqlmock.Rows { return sqlmock.NewRows([]string{"count"}).AddRow(n) }
	ts.mock.ExpectQuery(`^SELECT count\(\*\) FROM assets$`).WillReturnRows(count(10))
	ts.mock.ExpectQuery(`SELECT status AS key`).WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("active", 10))
	ts.mock.ExpectQuery(`SELECT c\.name AS key`).WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("Laptops", 10))
	ts.mock.ExpectQuery(`responsible_user_id IS NULL`).WillReturnError(errors.New("statement timeout"))
	ts.mock.ExpectQuery(`warranty_expiry IS NOT NULL`).WillReturnRows(count(1))
	ts.mock.ExpectQuery(`SUM\(purchase_price\)`).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("100.00"))

	rec := ts.do(t, http.MethodGet, "/api/assets/stats/overview", ts.token(t, 2, "user"), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if len(body) != 1 || body["message"] != "Internal server error" {
		t.Fatalf("body = %v", body)
	}
}

func TestApproveFormAsAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectBegin()
	ts.mock.ExpectQuery(`UPDATE responsive_forms`).
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "new_responsible_id"}).AddRow(int64(3), int64(7)))
	ts.mock.ExpectExec(`UPDATE assets SET responsible_user_id`).WithArgs(int64(3), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectCommit()
	ts.mock.ExpectQuery(`SELECT f\.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_code", "asset_id", "new_responsible_id", "status"}).
			AddRow(int64(2), "RF-240309-007", int64(3), int64(7), "approved"))

	rec := ts.do(t, http.MethodPut, "/api/responsive-forms/2/approve", ts.token(t, 1, "admin"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	form := body["form"].(map[string]interface{})
	if form["status"] != "approved" || body["message"] == "" {
		t.Fatalf("body = %v", body)
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidPathIDIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/incidents/abc", ts.token(t, 2, "user"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	ts := newTestServer(t)
	hash, err := ts.Tokens.HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	ts.mock.ExpectQuery(`SELECT id, username`).WithArgs("ana").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "full_name", "role", "active", "created_at", "updated_at"}).
			AddRow(int64(4), "ana", "ana@example.com", hash, "Ana", "user", true, time.Now(), time.Now()))
	ts.mock.ExpectExec(`UPDATE users SET last_login_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ana", "password": "s3cret!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	identity, err := ts.Tokens.ParseAccessToken(body.Token)
	if err != nil || identity.UserID != 4 || identity.Role != "user" {
		t.Fatalf("identity = %+v, err = %v", identity, err)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Fatal("password hash leaked")
	}
}

func TestLoginWithWrongPasswordIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := ts.Tokens.HashPassword("s3cret!")
	ts.mock.ExpectQuery(`SELECT id, username`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "active"}).
			AddRow(int64(4), "ana", hash, "user", true))

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ana", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEventsSocketRequiresAdminToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/ws/events", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/ws/events?token="+ts.token(t, 2, "user"), "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user token: status = %d", rec.Code)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.Events.Run(ctx)
	sub := &recordingSubscriber{events: make(chan services.Event, 1)}
	ts.Events.Add(sub)

	ts.mock.ExpectExec(`UPDATE assets SET status`).WillReturnResult(sqlmock.NewResult(0, 1))
	rec := ts.do(t, http.MethodDelete, "/api/assets/5", ts.token(t, 1, "admin"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	select {
	case event := <-sub.events:
		if event.Type != "asset.deactivated" || event.EntityID != 5 || event.ActorID != 1 {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

type recordingSubscriber struct {
	events chan services.Event
}

func (r *recordingSubscriber) WriteJSON(v interface{}) error {
	r.events <- v.(services.Event)
	return nil
}

func TestAdminCannotDisableOrDemoteSelf(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, 1, "admin")
	inactive := false
	bodies := []map[string]interface{}{
		{"full_name": "Root", "email": "root@siaf.local", "role": "admin", "active": &inactive},
		{"full_name": "Root", "email": "root@siaf.local", "role": "user"},
	}
	for _, body := range bodies {
		rec := ts.do(t, http.MethodPut, "/api/users/1", admin, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d", body, rec.Code)
		}
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestIncidentEditCannotChangeStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectExec(`UPDATE incidents\s+SET title`).
		WithArgs(int64(5), "Printer jam", "Paper stuck", nil, "high", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectQuery(`SELECT i\.id`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "incident_code", "title", "status"}).
			AddRow(int64(5), "INC-240309-007", "Printer jam", "in_progress"))

	rec := ts.do(t, http.MethodPut, "/api/incidents/5", ts.token(t, 9, "user"), map[string]string{
		"title": "Printer jam", "description": "Paper stuck", "priority": "high", "status": "closed", "solution": "done",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	incident := decodeBody(t, rec)["incident"].(map[string]interface{})
	if incident["status"] != "in_progress" {
		t.Fatalf("incident = %v", incident)
	}
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}

	rec = ts.do(t, http.MethodPut, "/api/incidents/5/close", ts.token(t, 9, "user"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("close as user: status = %d", rec.Code)
	}
}
