// Package adminauth issues and validates the JWT used to gate tvargenta's
// admin endpoints (video/tag/VCR/WiFi CRUD). There is exactly one role —
// there is no subscriber tier, no Hasura claim set, no refresh-token
// rotation — just a short-lived signed token handed out after an admin
// password check.
package adminauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// maxClockSkew is the maximum allowed difference between iat and now.
const maxClockSkew = 5 * time.Minute

const issuer = "tvargenta"

// Claims is the JWT claim set for the admin session token.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// Issuer validates and mints admin tokens. Mint always signs with the
// active secret; Validate also accepts prevSecret when set, so tokens
// minted just before a secret rotation keep validating until they expire.
// Construct with New; the secrets come from config.Config.AdminJWTSecret
// and AdminJWTPrevSecret.
type Issuer struct {
	secret     []byte
	prevSecret []byte
	ttl        time.Duration
}

// New creates an Issuer. secret must be at least 32 bytes (config.Load
// enforces this at startup).
func New(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// WithPrevSecret returns a copy of i that also accepts tokens signed with
// prevSecret during Validate. Pass the operator's previous
// AdminJWTPrevSecret while rotating; drop it once every token minted
// under the old secret has expired.
func (i *Issuer) WithPrevSecret(prevSecret string) *Issuer {
	cp := *i
	if prevSecret != "" {
		cp.prevSecret = []byte(prevSecret)
	}
	return &cp
}

// Mint creates a signed admin-scope JWT.
func (i *Issuer) Mint() (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%d", now.UnixNano()),
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    issuer,
		},
		Scope: "admin",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses and validates an admin-scope JWT: no alg:none, exp and
// iat required, iat not in the future beyond clock skew, and a matching
// issuer. Tries the active secret first, then prevSecret when configured.
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	claims, err := i.validateWithSecret(tokenStr, i.secret)
	if err == nil {
		return claims, nil
	}
	if i.prevSecret != nil {
		if claims, prevErr := i.validateWithSecret(tokenStr, i.prevSecret); prevErr == nil {
			return claims, nil
		}
	}
	return nil, err
}

func (i *Issuer) validateWithSecret(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("adminauth: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("adminauth: parse failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("adminauth: invalid claims")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("adminauth: missing exp claim")
	}
	if claims.IssuedAt == nil {
		return nil, errors.New("adminauth: missing iat claim")
	}
	if time.Until(claims.IssuedAt.Time) > maxClockSkew {
		return nil, fmt.Errorf("adminauth: iat is %v in the future", time.Until(claims.IssuedAt.Time))
	}
	if claims.Scope != "admin" {
		return nil, errors.New("adminauth: missing admin scope")
	}
	return claims, nil
}

// HashPassword hashes an admin password for storage in config.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
