package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-tasklist/internal/model"
)

// Claims is the payload carried inside a signed token. Refresh tokens carry
// no roles; a refreshed access token picks up the user's roles at refresh
// time, not the roles from when the refresh token was minted.
type Claims struct {
	Subject   string
	UserID    int64
	Roles     []model.Role
	ExpiresAt time.Time
}

// Expired reports whether the claims are no longer valid at the given
// instant. Expiry is checked here rather than during Parse so that the
// caller decides how an expired token is treated.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// TokenService turns claims into tamper-evident HS256 JWTs and back. It
// holds the process-wide signing secret, set once at startup and read
// concurrently by every request after that.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func (s *TokenService) Sign(claims Claims) (string, error) {
	payload := jwt.MapClaims{
		"sub": claims.Subject,
		"id":  claims.UserID,
		"exp": claims.ExpiresAt.Unix(),
	}
	if len(claims.Roles) > 0 {
		payload["roles"] = roleStrings(claims.Roles)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(s.secret)
}

// Parse verifies the signature and shape of a token string. It does NOT
// check expiry; callers must consult Claims.Expired before trusting the
// identity inside.
func (s *TokenService) Parse(tokenString string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.Parse(tokenString, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, model.ErrTokenSignature
		}
		return Claims{}, model.ErrTokenMalformed
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, model.ErrTokenMalformed
	}

	claims := Claims{}
	claims.Subject, _ = payload["sub"].(string)
	if id, ok := payload["id"].(float64); ok {
		claims.UserID = int64(id)
	}

	exp, ok := payload["exp"].(float64)
	if !ok || claims.Subject == "" || claims.UserID == 0 {
		return Claims{}, model.ErrTokenMalformed
	}
	claims.ExpiresAt = time.Unix(int64(exp), 0)

	if rawRoles, ok := payload["roles"].([]any); ok {
		for _, raw := range rawRoles {
			if name, ok := raw.(string); ok {
				claims.Roles = append(claims.Roles, model.Role(name))
			}
		}
	}

	return claims, nil
}

func roleStrings(roles []model.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return names
}
