package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/classroom/internal/apperror"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts in the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, github_id, avatar_url, created_at, updated_at`

// Create inserts a new user, filling in ID and timestamps.
// A taken email or GitHub account maps to apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "an account with this email already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail looks up a password account for login.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, apperror.NotFound("user", email)
	}
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// UpsertGitHub inserts or updates a user based on their GitHub ID.
//
// An existing account keeps its internal ID and creation time; only the
// profile fields GitHub owns (username, email, avatar) are refreshed.
// On return user holds the stored record.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("github_id", "github id is required")
	}

	var existingID string
	var createdAt time.Time
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID, &createdAt)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID == "" {
		if err := u.Create(ctx, user); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				// The email belongs to a password account. Link the GitHub
				// identity without claiming the address.
				user.Email = ""
				return u.Create(ctx, user)
			}
			return err
		}
		return nil
	}

	user.ID = existingID
	user.CreatedAt = createdAt
	user.UpdatedAt = time.Now()
	_, err = u.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, avatar_url = ?, updated_at = ?,
		        email = CASE WHEN ? = '' THEN email ELSE ? END
		 WHERE id = ?`,
		user.Username,
		user.AvatarURL,
		user.UpdatedAt,
		user.Email, user.Email,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "an account with this email already exists")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	stored, err := u.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GitHubID,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
