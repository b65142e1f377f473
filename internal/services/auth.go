package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"siaf-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errInvalidToken = errors.New("invalid token")

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

type TokenService struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (t TokenService) HashPassword(raw string) (string, error) {
	return hashArgon2id(raw)
}

// VerifyPassword accepts argon2id hashes and legacy bcrypt hashes.
func (t TokenService) VerifyPassword(raw, hashed string) bool {
	if strings.HasPrefix(hashed, "$argon2") {
		return verifyArgon2id(raw, hashed)
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

func (t TokenService) CreateAccessToken(id Identity) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(t.AccessTTL)
	claims := jwt.MapClaims{
		"iss":      t.Issuer,
		"sub":      strconv.FormatInt(id.UserID, 10),
		"typ":      tokenAccess,
		"username": id.Username,
		"role":     id.Role,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) CreateRefreshToken(userID int64) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"sub": strconv.FormatInt(userID, 10),
		"typ": tokenRefresh,
		"iat": now.Unix(),
		"exp": now.Add(t.RefreshTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

func (t TokenService) parse(tokenStr, typ string) (jwt.MapClaims, int64, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, 0, err
	}
	if !token.Valid || claims["typ"] != typ {
		return nil, 0, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, 0, err
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID < 1 {
		return nil, 0, errInvalidToken
	}
	return claims, userID, nil
}

// ParseAccessToken verifies signature, issuer, expiry and token type.
func (t TokenService) ParseAccessToken(tokenStr string) (Identity, error) {
	claims, userID, err := t.parse(tokenStr, tokenAccess)
	if err != nil {
		return Identity{}, err
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		return Identity{}, errInvalidToken
	}
	return Identity{UserID: userID, Username: username, Role: role}, nil
}

func (t TokenService) ParseRefreshToken(tokenStr string) (int64, error) {
	_, userID, err := t.parse(tokenStr, tokenRefresh)
	return userID, err
}

// argon2Cost is the work factor for new hashes. Verification reads the cost
// back from the stored PHC string, so raising it only affects new hashes.
type argon2Cost struct {
	Memory  uint32
	Time    uint32
	Threads uint8
}

var hashCost = argon2Cost{Memory: 64 * 1024, Time: 3, Threads: 1}

const (
	saltBytes = 16
	keyBytes  = 32
)

var errMalformedHash = errors.New("malformed argon2id hash")

func hashArgon2id(raw string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, hashCost.Time, hashCost.Memory, hashCost.Threads, keyBytes)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version,
		hashCost.Memory, hashCost.Time, hashCost.Threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

func verifyArgon2id(raw, encoded string) bool {
	cost, salt, want, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(raw), salt, cost.Time, cost.Memory, cost.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// decodeArgon2id parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon2id(encoded string) (argon2Cost, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	var cost argon2Cost
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &cost.Memory, &cost.Time, &cost.Threads); err != nil {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	if cost.Memory == 0 || cost.Time == 0 || cost.Threads == 0 {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argon2Cost{}, nil, nil, errMalformedHash
	}
	return cost, salt, key, nil
}
