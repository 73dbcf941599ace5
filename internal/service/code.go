package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/classroom/internal/apperror"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/ratelimit"
	"github.com/sakif/classroom/internal/repository"
)

const (
	MaxCodeLength = 100_000 // ~100KB of source

	// HistoryLimit is how many sessions a history listing returns.
	HistoryLimit = 50

	// MaxTimeLimitSeconds caps a timed session at four hours.
	MaxTimeLimitSeconds = 4 * 60 * 60
)

// CodeService runs student code for a course and keeps the history.
type CodeService struct {
	executor executor.Executor
	sessions repository.CodeSessionRepository
	limiter  ratelimit.Limiter
	logger   *slog.Logger
}

// NewCodeService wires the service. A nil limiter disables rate limiting.
func NewCodeService(
	exec executor.Executor,
	sessions repository.CodeSessionRepository,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) *CodeService {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &CodeService{
		executor: exec,
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// Execute runs code for userID in courseID and records the outcome.
//
// A program that fails to compile or crashes is still a successful call:
// the result says so. Errors are reserved for bad input, rate limiting and
// the executor itself being unavailable. Failing to record the session is
// logged and does not affect the returned result.
func (s *CodeService) Execute(ctx context.Context, userID, courseID, language, code string) (*executor.ExecutionResult, error) {
	if err := validateSubmission(courseID, language, code); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing execution",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
	if !allowed {
		return nil, apperror.RateLimited("too many executions, try again shortly")
	}

	result, err := s.executor.Execute(ctx, executor.ExecutionRequest{Language: language, Code: code})
	if err != nil {
		return nil, fmt.Errorf("service/code: executing: %w", err)
	}

	s.record(ctx, userID, courseID, language, code, result)

	s.logger.Info("code executed",
		slog.String("userID", userID),
		slog.String("courseID", courseID),
		slog.String("language", language),
		slog.Bool("success", result.Success),
		slog.String("kind", string(result.Kind)),
		slog.Int64("duration_ms", result.ExecutionTimeMs),
	)
	return result, nil
}

func (s *CodeService) record(ctx context.Context, userID, courseID, language, code string, result *executor.ExecutionResult) {
	output := result.Output
	if !result.Success {
		output = result.Error
	}
	success := result.Success
	duration := result.ExecutionTimeMs

	session := &model.CodeSession{
		UserID:      userID,
		CourseID:    courseID,
		Language:    language,
		Code:        code,
		Output:      &output,
		Success:     &success,
		FailureKind: string(result.Kind),
		DurationMs:  &duration,
	}

	// The request context may already be done after a timeout; the result
	// is still worth keeping.
	if err := s.sessions.Create(context.WithoutCancel(ctx), session); err != nil {
		s.logger.Error("failed to record code session",
			slog.String("userID", userID),
			slog.String("courseID", courseID),
			slog.String("error", err.Error()),
		)
	}
}

// CreateTimedSession stores a session that has a time limit and no result yet.
func (s *CodeService) CreateTimedSession(ctx context.Context, userID, courseID, language, code string, timeLimitSeconds *int) (*model.CodeSession, error) {
	if err := validateSubmission(courseID, language, code); err != nil {
		return nil, err
	}
	if _, ok := executor.Resolve(language); !ok {
		return nil, apperror.ValidationFailed("language", executor.UnsupportedMessage(language))
	}
	if timeLimitSeconds != nil && (*timeLimitSeconds < 1 || *timeLimitSeconds > MaxTimeLimitSeconds) {
		return nil, apperror.ValidationFailed("time_limit_seconds",
			fmt.Sprintf("time limit must be between 1 and %d seconds", MaxTimeLimitSeconds))
	}

	session := &model.CodeSession{
		UserID:           userID,
		CourseID:         courseID,
		Language:         language,
		Code:             code,
		TimeLimitSeconds: timeLimitSeconds,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/code: creating session: %w", err)
	}

	s.logger.Info("timed session created",
		slog.String("id", session.ID),
		slog.String("userID", userID),
		slog.String("courseID", courseID),
	)
	return session, nil
}

// ListSessions returns the user's latest sessions in a course, newest first.
func (s *CodeService) ListSessions(ctx context.Context, userID, courseID string) ([]model.CodeSession, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, apperror.ValidationFailed("courseID", "course ID is required")
	}

	sessions, err := s.sessions.ListByUserCourse(ctx, userID, courseID, repository.ListOptions{Limit: HistoryLimit})
	if err != nil {
		s.logger.Error("failed to list code sessions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/code: listing sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one of the user's sessions in a course. A session that
// belongs to another user or course is reported as not found.
func (s *CodeService) GetSession(ctx context.Context, userID, courseID, id string) (*model.CodeSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/code: getting session: %w", err)
	}
	if session.UserID != userID || session.CourseID != courseID {
		return nil, apperror.NotFound("code session", id)
	}
	return session, nil
}

func validateSubmission(courseID, language, code string) error {
	if strings.TrimSpace(courseID) == "" {
		return apperror.ValidationFailed("courseID", "course ID is required")
	}
	if strings.TrimSpace(language) == "" {
		return apperror.ValidationFailed("language", "language is required")
	}
	if strings.TrimSpace(code) == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	return nil
}
