package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, full_name, role, department, active, last_login_at, created_at, updated_at`

var userList = query.Spec{
	Select: userColumns,
	From:   "users",
	Filters: []query.Filter{
		{Param: "role", Column: "role"},
		{Param: "department", Column: "department", Style: query.Like},
		{Param: "active", Column: "active", Kind: query.Bool},
		{Param: "search", Column: "username", Style: query.Like, Also: []string{"full_name", "email"}},
	},
	OrderBy: "created_at DESC, id DESC",
}

type RegisterInput struct {
	Username   string  `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email      string  `json:"email" validate:"required,email,max=120"`
	Password   string  `json:"password" validate:"required,min=6,max=128"`
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Role       string  `json:"role" validate:"omitempty,oneof=admin user"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

type ProfileInput struct {
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Email      string  `json:"email" validate:"required,email,max=120"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

type UserUpdateInput struct {
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Email      string  `json:"email" validate:"required,email,max=120"`
	Role       string  `json:"role" validate:"required,oneof=admin user"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Active     *bool   `json:"active"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128"`
}

// Authenticate checks username and password. Unknown users and wrong
// passwords get the same message.
func Authenticate(ctx context.Context, db *sqlx.DB, tokens TokenService, username, password string) (models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if err != nil {
		return models.User{}, WrapError(err, "load user for login")
	}
	if !tokens.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if !user.Active {
		return models.User{}, ErrForbidden("User account is disabled")
	}
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, now, user.ID); err != nil {
		log.Printf("last login for user %d: %v", user.ID, err)
	} else {
		user.LastLoginAt = &now
	}
	return user, nil
}

func GetUser(ctx context.Context, db sqlx.QueryerContext, id int64) (models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, db, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("User not found")
	}
	if err != nil {
		return models.User{}, WrapError(err, "get user")
	}
	return user, nil
}

func ListUsers(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.User, query.Pagination, error) {
	built, err := userList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	users := []models.User{}
	pagination, err := query.Fetch(ctx, db, built, &users)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list users")
	}
	return users, pagination, nil
}

// RegisterUser creates a user after checking that neither username nor email
// is taken.
func RegisterUser(ctx context.Context, db *sqlx.DB, tokens TokenService, in RegisterInput) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR lower(email) = $2)`, username, email); err != nil {
		return models.User{}, WrapError(err, "check user exists")
	}
	if exists {
		return models.User{}, ErrConflict("Username or email already registered")
	}
	hash, err := tokens.HashPassword(in.Password)
	if err != nil {
		return models.User{}, WrapError(err, "hash password")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	now := time.Now().UTC()
	var id int64
	err = db.GetContext(ctx, &id, `
INSERT INTO users (username, email, password_hash, full_name, role, department, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7,$7)
RETURNING id
`, username, email, hash, strings.TrimSpace(in.FullName), role, trimmed(in.Department), now)
	if err != nil {
		return models.User{}, storeError(err, "insert user", "Username or email already registered")
	}
	return GetUser(ctx, db, id)
}

func UpdateProfile(ctx context.Context, db *sqlx.DB, userID int64, in ProfileInput) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var taken bool
	if err := db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1 AND id <> $2)`, email, userID); err != nil {
		return models.User{}, WrapError(err, "check email")
	}
	if taken {
		return models.User{}, ErrConflict("Email already registered")
	}
	res, err := db.ExecContext(ctx, `
UPDATE users SET full_name = $2, email = $3, department = $4, updated_at = $5
WHERE id = $1
`, userID, strings.TrimSpace(in.FullName), email, trimmed(in.Department), time.Now().UTC())
	if err != nil {
		return models.User{}, storeError(err, "update profile", "Email already registered")
	}
	if err := requireAffected(res, "User not found"); err != nil {
		return models.User{}, err
	}
	return GetUser(ctx, db, userID)
}

func UpdateUser(ctx context.Context, db *sqlx.DB, userID int64, in UserUpdateInput) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	res, err := db.ExecContext(ctx, `
UPDATE users
SET full_name = $2, email = $3, role = $4, department = $5, active = COALESCE($6, active), updated_at = $7
WHERE id = $1
`, userID, strings.TrimSpace(in.FullName), email, in.Role, trimmed(in.Department), in.Active, time.Now().UTC())
	if err != nil {
		return models.User{}, storeError(err, "update user", "Email already registered")
	}
	if err := requireAffected(res, "User not found"); err != nil {
		return models.User{}, err
	}
	return GetUser(ctx, db, userID)
}

// DeactivateUser is the only way users leave; rows are never deleted.
func DeactivateUser(ctx context.Context, db *sqlx.DB, userID int64) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`, userID, time.Now().UTC())
	if err != nil {
		return WrapError(err, "deactivate user")
	}
	return requireAffected(res, "User not found")
}

func ChangePassword(ctx context.Context, db *sqlx.DB, tokens TokenService, userID int64, in ChangePasswordInput) error {
	var hash string
	err := db.GetContext(ctx, &hash, `SELECT password_hash FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound("User not found")
	}
	if err != nil {
		return WrapError(err, "load password")
	}
	if !tokens.VerifyPassword(in.CurrentPassword, hash) {
		return ErrBadRequest("Current password is incorrect")
	}
	newHash, err := tokens.HashPassword(in.NewPassword)
	if err != nil {
		return WrapError(err, "hash password")
	}
	res, err := db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, userID, newHash, time.Now().UTC())
	if err != nil {
		return WrapError(err, "update password")
	}
	return requireAffected(res, "User not found")
}

// EnsureAdmin creates the bootstrap administrator when no admin exists yet.
// Registration is admin-only, so a fresh database needs one.
func EnsureAdmin(db *sqlx.DB, tokens TokenService, username, email, password string) error {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM users WHERE role = 'admin')`); err != nil {
		return err
	}
	if exists {
		return nil
	}
	if strings.TrimSpace(password) == "" {
		log.Printf("no admin user exists and ADMIN_PASSWORD is empty; skipping bootstrap")
		return nil
	}
	hash, err := tokens.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`
INSERT INTO users (username, email, password_hash, full_name, role, active, created_at, updated_at)
VALUES ($1,$2,$3,'Administrator','admin',TRUE,$4,$4)
ON CONFLICT (username) DO NOTHING
`, username, strings.ToLower(email), hash, now)
	if err == nil {
		log.Printf("bootstrap admin %q created", username)
	}
	return err
}
