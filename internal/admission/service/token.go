package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "dustledger/pkg/errors"
)

// IssueCallerToken mints a signed token identifying an internal caller.
// Tokens are short-lived; callers re-mint rather than refresh.
func (s *Service) IssueCallerToken(caller string, ttl time.Duration) (string, error) {
	if _, ok := s.allowedCallers[caller]; !ok {
		return "", dErrors.Newf(dErrors.CodeUnauthorizedCaller, "caller %q is not authorized", caller)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   caller,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "dustledger",
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSigningKey))
	if err != nil {
		return "", fmt.Errorf("sign caller token: %w", err)
	}
	return signed, nil
}

// VerifyCallerToken validates a caller token and returns the caller name.
func (s *Service) VerifyCallerToken(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSigningKey), nil
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorizedCaller, "invalid caller token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorizedCaller, "caller token missing subject")
	}
	if _, allowed := s.allowedCallers[claims.Subject]; !allowed {
		return "", dErrors.Newf(dErrors.CodeUnauthorizedCaller, "caller %q is not authorized", claims.Subject)
	}
	return claims.Subject, nil
}
