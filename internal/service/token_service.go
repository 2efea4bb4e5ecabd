package service

import (
	"errors"
	"fmt"
	"time"

	"edu-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// JWTTokenService issues the HS256 session tokens handed out at login.
// The subject is the user id; the username rides along so handlers can log
// it without a lookup.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewJWTTokenService(secret string, ttl time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

func (s *JWTTokenService) Generate(userID uuid.UUID, username string) (string, time.Time, error) {
	issued := time.Now()
	expires := issued.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.New("session token: subject is not a user id")
	}
	return &ports.TokenClaims{UserID: userID, Username: claims.Username}, nil
}
