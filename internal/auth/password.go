package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Password policy. bcrypt only reads the first 72 bytes, so anything longer
// is rejected rather than silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// DefaultPasswordCost takes a few hundred ms per hash on current hardware.
const DefaultPasswordCost = 12

var (
	// ErrInvalidPassword means the password did not match the hash.
	ErrInvalidPassword = errors.New("auth: invalid password")

	ErrPasswordTooShort = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService hashes and verifies account passwords with bcrypt.
type PasswordService struct {
	cost int

	// dummy is the hash Burn compares against.
	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordService uses the given bcrypt cost; zero means DefaultPasswordCost.
// Tests pass bcrypt.MinCost.
func NewPasswordService(cost int) *PasswordService {
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	return &PasswordService{cost: cost}
}

// CheckPolicy reports whether plaintext is acceptable as a new password.
func CheckPolicy(plaintext string) error {
	switch {
	case len(plaintext) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(plaintext) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// Hash returns the bcrypt hash of plaintext after checking the policy.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := CheckPolicy(plaintext); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrInvalidPassword when it doesn't.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidPassword
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

// Burn spends as long as a real Verify would. Login calls it for unknown
// accounts so response time does not reveal which emails are registered.
func (p *PasswordService) Burn(plaintext string) {
	p.dummyOnce.Do(func() {
		p.dummy, _ = bcrypt.GenerateFromPassword([]byte("classroom-login-timing"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
}
