package services

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/crisalida-app/crisalida-be/internal/models"
)

// UserServiceProvider defines the interface for the user store.
type UserServiceProvider interface {
	CreateUser(name, email, passwordHash string, role models.Role) (models.User, error)
	GetUserByID(id string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	UpdateProfile(id, name, email, passwordHash string) (models.User, error)
	SetRefreshToken(id, token string) error
	ClearRefreshToken(id string) error
	RotateRefreshToken(id, oldToken, newToken string) (bool, error)
	CountUsers() (int, error)
}

// UserService provides persistence for user accounts.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, name, email, password_hash, role, xp, level, streak, refresh_token, created_at, updated_at"

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var refreshToken sql.NullString
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.XP, &user.Level, &user.Streak, &refreshToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.RefreshToken = refreshToken.String
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a single user by their email.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// CreateUser inserts a new user with an already-hashed password.
func (s *UserService) CreateUser(name, email, passwordHash string, role models.Role) (models.User, error) {
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		XP:           0,
		Level:        1,
		Streak:       0,
	}

	stmt, err := s.db.Prepare("INSERT INTO users(id, name, email, password_hash, role, xp, level, streak) VALUES(?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.XP, user.Level, user.Streak)
	if err != nil {
		return models.User{}, mapUniqueEmail(err)
	}

	return s.GetUserByID(user.ID)
}

// UpdateProfile updates a user's profile fields. Empty arguments leave the
// corresponding column unchanged; passwordHash must already be hashed.
func (s *UserService) UpdateProfile(id, name, email, passwordHash string) (models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if passwordHash != "" {
		user.PasswordHash = passwordHash
	}

	_, err = s.db.Exec(
		"UPDATE users SET name = ?, email = ?, password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		user.Name, user.Email, user.PasswordHash, id,
	)
	if err != nil {
		return models.User{}, mapUniqueEmail(err)
	}
	return s.GetUserByID(id)
}

// SetRefreshToken stores the user's current refresh token, replacing any
// previous one. At most one refresh token is valid per user.
func (s *UserService) SetRefreshToken(id, token string) error {
	res, err := s.db.Exec("UPDATE users SET refresh_token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", token, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearRefreshToken nulls the stored refresh token, revoking the session.
// Clearing an already-cleared token is not an error.
func (s *UserService) ClearRefreshToken(id string) error {
	res, err := s.db.Exec("UPDATE users SET refresh_token = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateRefreshToken swaps the stored refresh token from oldToken to
// newToken in a single guarded UPDATE. The WHERE clause on the old value is
// the serialization point for concurrent refreshes: of two rotations racing
// with the same old token, exactly one matches a row and wins; the loser
// gets false and must treat its token as already rotated out.
func (s *UserService) RotateRefreshToken(id, oldToken, newToken string) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE users SET refresh_token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND refresh_token = ?",
		newToken, id, oldToken,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountUsers returns the total number of user rows.
func (s *UserService) CountUsers() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// mapUniqueEmail converts the driver's unique-constraint violation on the
// email column into ErrEmailTaken.
func mapUniqueEmail(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		return ErrEmailTaken
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
