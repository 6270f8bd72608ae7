package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crisalida-app/crisalida-be/internal/config"
	"github.com/crisalida-app/crisalida-be/internal/models"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong token class, malformed structure, or expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims defines the JWT claims carried by both token classes.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the two token classes. Access and
// refresh tokens are signed with distinct secrets so a leaked access token
// can never be replayed as a refresh token. Each class keeps an optional
// retired secret that is still accepted for verification, which lets
// secrets rotate without invalidating every live session at once.
type TokenManager struct {
	accessKeys  [][]byte // signing key first, then the retired key
	refreshKeys [][]byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewTokenManager builds a TokenManager from the loaded configuration.
func NewTokenManager(cfg *config.Config) *TokenManager {
	m := &TokenManager{
		accessKeys:  [][]byte{[]byte(cfg.AccessSecret)},
		refreshKeys: [][]byte{[]byte(cfg.RefreshSecret)},
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
	}
	if cfg.PrevAccessSecret != "" {
		m.accessKeys = append(m.accessKeys, []byte(cfg.PrevAccessSecret))
	}
	if cfg.PrevRefreshSecret != "" {
		m.refreshKeys = append(m.refreshKeys, []byte(cfg.PrevRefreshSecret))
	}
	return m
}

// IssueAccessToken mints a short-lived access token for the user.
func (m *TokenManager) IssueAccessToken(user models.User) (string, error) {
	return m.issue(user, m.accessKeys[0], m.accessTTL)
}

// IssueRefreshToken mints a refresh token for the user.
func (m *TokenManager) IssueRefreshToken(user models.User) (string, error) {
	return m.issue(user, m.refreshKeys[0], m.refreshTTL)
}

func (m *TokenManager) issue(user models.User, key []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// VerifyAccessToken validates an access token and returns its claims.
func (m *TokenManager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, m.accessKeys)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (m *TokenManager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, m.refreshKeys)
}

func (m *TokenManager) verify(tokenStr string, keys [][]byte) (*Claims, error) {
	for _, key := range keys {
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims,
			func(t *jwt.Token) (interface{}, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil {
			// Only a signature mismatch warrants trying the retired key;
			// an expired or malformed token is invalid under every key.
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				continue
			}
			return nil, ErrInvalidToken
		}
		if !token.Valid {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}
	return nil, ErrInvalidToken
}
