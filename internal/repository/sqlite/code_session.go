package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/classroom/internal/apperror"
	"github.com/sakif/classroom/internal/model"
	"github.com/sakif/classroom/internal/repository"
)

var _ repository.CodeSessionRepository = (*SessionDB)(nil)

// DefaultListLimit caps a session listing when the caller gives no limit.
const DefaultListLimit = 50

// SessionDB stores execution history and timed sessions in code_sessions.
type SessionDB struct {
	conn *sql.DB
}

const sessionColumns = `id, user_id, course_id, language, code, output, success,
	failure_kind, duration_ms, time_limit_seconds, created_at`

// Create inserts session, filling in its ID and CreatedAt.
func (s *SessionDB) Create(ctx context.Context, session *model.CodeSession) error {
	session.ID = xid.New().String()
	session.CreatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO code_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.CourseID,
		session.Language,
		session.Code,
		session.Output,
		session.Success,
		session.FailureKind,
		session.DurationMs,
		session.TimeLimitSeconds,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating code session: %w", err)
	}
	return nil
}

// GetByID retrieves a single session.
// Returns apperror.ErrNotFound if it does not exist.
func (s *SessionDB) GetByID(ctx context.Context, id string) (*model.CodeSession, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM code_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("code session", id)
		}
		return nil, fmt.Errorf("sqlite: getting code session %s: %w", id, err)
	}
	return session, nil
}

// ListByUserCourse returns a user's sessions in one course, newest first.
// A non-positive limit falls back to DefaultListLimit.
func (s *SessionDB) ListByUserCourse(ctx context.Context, userID, courseID string, opts repository.ListOptions) ([]model.CodeSession, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := max(opts.Offset, 0)

	// xid ids sort by creation time, which breaks ties between rows
	// written in the same clock tick.
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM code_sessions
		 WHERE user_id = ? AND course_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, courseID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing code sessions: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty history encodes as [] rather than null.
	sessions := []model.CodeSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning code session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating code sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row scanner) (*model.CodeSession, error) {
	var session model.CodeSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.CourseID,
		&session.Language,
		&session.Code,
		&session.Output,
		&session.Success,
		&session.FailureKind,
		&session.DurationMs,
		&session.TimeLimitSeconds,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
