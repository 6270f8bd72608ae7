package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/crisalida-app/crisalida-be/internal/auth"
	"github.com/crisalida-app/crisalida-be/internal/models"
)

// TokenPair is an access/refresh token pair issued together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthServiceProvider defines the interface for authentication flows.
type AuthServiceProvider interface {
	Register(name, email, password string) (models.User, error)
	Login(email, password string) (TokenPair, models.User, error)
	Refresh(presentedToken string) (TokenPair, error)
	Logout(email string) error
}

// AuthService orchestrates registration, login, token refresh and logout
// over the user store and the token manager.
type AuthService struct {
	users  UserServiceProvider
	tokens *auth.TokenManager
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, tokens *auth.TokenManager, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Register creates a new learner account. The returned user never carries
// the password hash.
func (s *AuthService) Register(name, email, password string) (models.User, error) {
	if _, err := s.users.GetUserByEmail(email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("register lookup: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(name, email, hash, models.RoleLearner)
	if err != nil {
		// The existence check above races with concurrent registrations;
		// the unique index is the authority.
		if errors.Is(err, ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("User registered")
	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues a token pair, persisting the
// refresh token as the user's single active session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(email, password string) (TokenPair, models.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, models.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, models.User{}, fmt.Errorf("login lookup: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return TokenPair{}, models.User{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return TokenPair{}, models.User{}, err
	}

	if err := s.users.SetRefreshToken(user.ID, pair.RefreshToken); err != nil {
		return TokenPair{}, models.User{}, fmt.Errorf("persist refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("User logged in")
	user.PasswordHash = ""
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh pair, rotating the
// stored token. The presented token must both verify cryptographically and
// equal the user's stored refresh token; a token rotated out or cleared by
// logout fails the equality check even while its signature is still valid.
func (s *AuthService) Refresh(presentedToken string) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(presentedToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("refresh lookup: %w", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != presentedToken {
		s.log.Warn().Str("user_id", user.ID).Msg("Refresh token mismatch, possible replay of rotated token")
		return TokenPair{}, ErrInvalidToken
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return TokenPair{}, err
	}

	rotated, err := s.users.RotateRefreshToken(user.ID, presentedToken, pair.RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		// A concurrent refresh or logout won the swap.
		return TokenPair{}, ErrInvalidToken
	}

	return pair, nil
}

// Logout revokes the user's session by clearing the stored refresh token.
// Logging out an already-logged-out user still succeeds.
func (s *AuthService) Logout(email string) error {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("logout lookup: %w", err)
	}

	if err := s.users.ClearRefreshToken(user.ID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("User logged out")
	return nil
}

func (s *AuthService) issuePair(user models.User) (TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
