package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-tasklist/internal/model"
	"go-tasklist/pkg/apierror"
)

type authUserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

// AuthService issues access/refresh token pairs and resolves bearer tokens
// into principals. It keeps no per-token state: a token is valid until its
// own expiry, and refreshing does not invalidate the presented token.
type AuthService struct {
	tokens     *TokenService
	users      authUserStore
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(tokens *TokenService, users authUserStore, accessTTL time.Duration, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		tokens:     tokens,
		users:      users,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login verifies credentials and returns a fresh token pair. Unknown user
// and wrong password produce the identical failure.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.TokenResponse{}, apierror.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenResponse{}, apierror.Unauthorized("invalid credentials")
	}

	return s.issuePair(user)
}

// Refresh validates a refresh token and reissues both tokens. The user is
// re-read so the new access token carries the roles the user has NOW, not
// the roles at the time the refresh token was issued. Every failure mode
// collapses into the same access-denied answer; callers learn nothing about
// why validation failed, and no lookup happens for an invalid token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenResponse, error) {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil || claims.Expired(time.Now()) {
		return model.TokenResponse{}, apierror.Forbidden("access denied")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return model.TokenResponse{}, apierror.Forbidden("access denied")
	}

	return s.issuePair(user)
}

// Authenticate resolves a bearer token into a request principal. Any
// failure (bad signature, malformed, expired, user gone) is returned as an
// error; the middleware decides whether that degrades to anonymous.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.Principal, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Expired(time.Now()) {
		return nil, model.ErrTokenExpired
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return &model.Principal{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Roles:    user.Roles,
	}, nil
}

func (s *AuthService) IssueAccessToken(user model.User) (string, error) {
	return s.tokens.Sign(Claims{
		Subject:   user.Username,
		UserID:    user.ID,
		Roles:     user.Roles,
		ExpiresAt: time.Now().Add(s.accessTTL),
	})
}

// IssueRefreshToken deliberately omits roles: holding a refresh token alone
// must not be enough to assert a role without a round trip to the database.
func (s *AuthService) IssueRefreshToken(user model.User) (string, error) {
	return s.tokens.Sign(Claims{
		Subject:   user.Username,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	})
}

func (s *AuthService) issuePair(user model.User) (model.TokenResponse, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return model.TokenResponse{}, err
	}

	refreshToken, err := s.IssueRefreshToken(user)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		ID:           user.ID,
		Username:     user.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
