package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordService(bcrypt.MinCost)
}

func TestNewPasswordService_DefaultCost(t *testing.T) {
	if got := NewPasswordService(0).cost; got != DefaultPasswordCost {
		t.Errorf("cost = %d, want %d", got, DefaultPasswordCost)
	}
}

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"too short", "short", ErrPasswordTooShort},
		{"minimum length", strings.Repeat("a", MinPasswordLength), nil},
		{"maximum length", strings.Repeat("a", MaxPasswordBytes), nil},
		{"too long", strings.Repeat("a", MaxPasswordBytes+1), ErrPasswordTooLong},
		// é is two bytes: 37 of them exceed bcrypt's byte limit.
		{"multibyte too long", strings.Repeat("é", 37), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckPolicy(tt.password); !errors.Is(err, tt.want) {
				t.Errorf("CheckPolicy() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHash(t *testing.T) {
	ps := newTestPasswordService()

	hash1, err := ps.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, _ := ps.Hash("same-password")

	if !strings.HasPrefix(hash1, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash1)
	}
	if hash1 == hash2 {
		t.Error("Hash() is deterministic; the salt must be random")
	}
	if _, err := ps.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Hash(short) error = %v, want ErrPasswordTooShort", err)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		password  string
		wantErr   bool
		wantWrong bool
	}{
		{name: "correct password", hash: hash, password: "correct horse battery staple"},
		{name: "wrong password", hash: hash, password: "Tr0ub4dor&3", wantErr: true, wantWrong: true},
		{name: "empty password", hash: hash, password: "", wantErr: true, wantWrong: true},
		{name: "garbage hash", hash: "not-a-hash", password: "anything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrInvalidPassword); got != tt.wantWrong {
				t.Errorf("errors.Is(err, ErrInvalidPassword) = %v, want %v", got, tt.wantWrong)
			}
		})
	}
}

func TestBurn(t *testing.T) {
	ps := newTestPasswordService()
	ps.Burn("anything")
	ps.Burn("anything else")

	if len(ps.dummy) == 0 {
		t.Fatal("Burn() did not build its comparison hash")
	}
	if _, err := bcrypt.Cost(ps.dummy); err != nil {
		t.Errorf("dummy hash is not a bcrypt hash: %v", err)
	}
}
