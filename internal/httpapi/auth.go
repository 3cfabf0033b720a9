package httpapi

import (
	"errors"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"cellarpos/backend/internal/domain"
)

// SessionVerifier checks session tokens minted by the platform's session
// service. It only verifies; issuing tokens is not this backend's job.
type SessionVerifier struct {
	secret []byte
	issuer string
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewSessionVerifier(secret string, issuer string) *SessionVerifier {
	return &SessionVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}
}

func (v *SessionVerifier) ParseToken(tokenStr string) (domain.Actor, error) {
	if len(v.secret) == 0 {
		return domain.Actor{}, errors.New("session verification is not configured")
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.issuer))
	}

	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}
