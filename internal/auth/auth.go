// Package auth validates client access tokens for WebSocket handshakes.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pscheid92/chatrelay/internal/domain"
)

const accessTokenType = "access"

// Claims is the JWT payload carried by client access tokens.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Authenticator verifies HMAC-signed access tokens and extracts the user
// identity. It never touches the transport; the accepting layer extracts the
// raw credential and passes it in.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate validates the raw token and returns the owning user id.
// All failures wrap domain.ErrInvalidToken.
func (a *Authenticator) Authenticate(rawToken string) (uuid.UUID, error) {
	if rawToken == "" {
		return uuid.Nil, fmt.Errorf("%w: no token provided", domain.ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if claims.TokenType != accessTokenType {
		return uuid.Nil, fmt.Errorf("%w: token type %q is not an access token", domain.ErrInvalidToken, claims.TokenType)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", domain.ErrInvalidToken)
	}

	return userID, nil
}

// IssueToken mints a signed access token for the user. Used by tooling and
// tests; production tokens come from the identity service sharing the secret.
func (a *Authenticator) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest extracts the raw token from the "token" query parameter
// or the Authorization Bearer header, in that order of precedence.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}

	return ""
}
