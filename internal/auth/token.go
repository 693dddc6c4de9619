package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrInvalidToken is returned for every validation failure; causes are not distinguished.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. ttl is the default lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock swaps the time source used for issuing and validating.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Claims describes JWT payload: {sub, type, exp, iat}.
type Claims struct {
	Type domain.PrincipalKind `json:"type"`
	jwt.RegisteredClaims
}

// Identity is what a valid token asserts.
type Identity struct {
	Subject string
	Kind    domain.PrincipalKind
}

// Issue signs a token for subject. A non-positive ttl uses the default.
func (tm *TokenManager) Issue(subject string, kind domain.PrincipalKind, ttl time.Duration) (string, time.Time, error) {
	if subject == "" || !kind.Valid() {
		return "", time.Time{}, errors.New("token subject and kind required")
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}
	// NumericDate has whole-second precision; exp must stay iat+ttl on the wire
	now := tm.now().Truncate(time.Second)
	claims := &Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Validate checks signature, shape and expiry. Valid only while now < exp.
func (tm *TokenManager) Validate(tokenStr string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Type.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Subject: claims.Subject, Kind: claims.Type}, nil
}
