// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Two ways in:
//   - email + password (register/login); PasswordHash holds the bcrypt hash
//   - GitHub OAuth; GitHubID is set and PasswordHash stays empty
//
// WHY GitHubID *int64?
// Password-only users have no GitHub account. A nil pointer maps to SQL NULL,
// and SQLite treats NULLs as distinct under a UNIQUE constraint, so any
// number of password-only users can coexist.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	GitHubID     *int64    `json:"github_id,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
