package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries unexpected claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is well-formed and correctly
	// signed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims holds the identity and role snapshot embedded in a bearer token.
// The snapshot is advisory: every request re-checks the session store and the
// user's current role, so a stale snapshot never grants access on its own.
type SessionClaims struct {
	jwt.RegisteredClaims
	RoleID       int64  `json:"role_id"`
	RoleName     string `json:"role"`
	SiteID       int64  `json:"site_id"`
	DepartmentID int64  `json:"department_id"`
}

// UserID returns the subject claim as a numeric user id, or 0 if malformed.
func (c *SessionClaims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TokenProvider issues and validates HS256-signed bearer tokens using a
// server-held secret.
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with secret. issuer is
// set on claims and validated on every parse. ttl is the absolute token
// lifetime from issuance.
func NewTokenProvider(secret []byte, issuer string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue signs a token binding the user id and its role/site/department
// snapshot. Returns the token string and its absolute expiry.
func (p *TokenProvider) Issue(userID, roleID int64, roleName string, siteID, departmentID int64) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		RoleID:       roleID,
		RoleName:     roleName,
		SiteID:       siteID,
		DepartmentID: departmentID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and validates the token (signature, structure, iss, exp).
// Fails closed: any defect yields ErrInvalidToken, except elapsed expiry on an
// otherwise valid token which yields ErrTokenExpired so callers can record the
// termination reason.
func (p *TokenProvider) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	if claims.UserID() == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
