package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/classroom/internal/apperror"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory stand-ins for the sqlite repositories. They follow the same
// contracts (IDs assigned on Create, apperror.NotFound on misses) so the
// services can be tested without a database.

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if user.Email != "" && u.Email == user.Email {
			return apperror.Conflict("email", "an account with this email already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if email != "" && u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Username = user.Username
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	return f.Create(ctx, user)
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []model.CodeSession
	lastOpts repository.ListOptions

	createErr error
}

func (f *fakeSessionRepo) Create(_ context.Context, session *model.CodeSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	session.ID = fmt.Sprintf("session-%d", len(f.sessions)+1)
	session.CreatedAt = time.Now().Add(time.Duration(len(f.sessions)) * time.Millisecond)
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.CodeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, apperror.NotFound("code session", id)
}

func (f *fakeSessionRepo) ListByUserCourse(_ context.Context, userID, courseID string, opts repository.ListOptions) ([]model.CodeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	out := []model.CodeSession{}
	for _, s := range f.sessions {
		if s.UserID == userID && s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

var _ repository.CodeSessionRepository = (*fakeSessionRepo)(nil)

// =========================================================================
// FAKE EXECUTOR AND LIMITER
// =========================================================================

type fakeExecutor struct {
	result *executor.ExecutionResult
	err    error
	calls  []executor.ExecutionRequest
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
