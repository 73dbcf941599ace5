// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite is the only implementation; tests use mocks.
package repository

import (
	"context"

	"github.com/sakif/classroom/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type CodeSessionRepository interface {
	Create(ctx context.Context, session *model.CodeSession) error
	GetByID(ctx context.Context, id string) (*model.CodeSession, error)
	// ListByUserCourse returns a user's sessions in one course, newest first.
	ListByUserCourse(ctx context.Context, userID, courseID string, opts ListOptions) ([]model.CodeSession, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub inserts or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
