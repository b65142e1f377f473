package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testTokens() TokenService {
	return TokenService{
		Secret:     []byte("test-secret"),
		Issuer:     "siaf",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := testTokens()
	token, exp, err := tokens.CreateAccessToken(Identity{UserID: 42, Username: "ana", Role: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if exp <= time.Now().Unix() {
		t.Fatalf("exp %d is not in the future", exp)
	}
	id, err := tokens.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if id.UserID != 42 || id.Username != "ana" || !id.IsAdmin() {
		t.Fatalf("identity = %+v", id)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	tokens := testTokens()
	refresh, err := tokens.CreateRefreshToken(42)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.ParseAccessToken(refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
	userID, err := tokens.ParseRefreshToken(refresh)
	if err != nil || userID != 42 {
		t.Fatalf("ParseRefreshToken = %d, %v", userID, err)
	}
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	other := testTokens()
	other.Secret = []byte("someone-else")
	token, _, err := other.CreateAccessToken(Identity{UserID: 1, Role: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := testTokens().ParseAccessToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	tokens := testTokens()
	tokens.AccessTTL = -time.Minute
	token, _, err := tokens.CreateAccessToken(Identity{UserID: 1, Role: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.ParseAccessToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	tokens := testTokens()
	hash, err := tokens.HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	if !tokens.VerifyPassword("s3cret!", hash) {
		t.Fatal("argon2id hash did not verify")
	}
	if tokens.VerifyPassword("wrong", hash) {
		t.Fatal("wrong password verified")
	}

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !tokens.VerifyPassword("old-pass", string(legacy)) {
		t.Fatal("bcrypt hash did not verify")
	}
}
