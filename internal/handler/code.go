package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/classroom/internal/auth"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/model"
)

// CodeService is the part of service.CodeService the handlers use.
type CodeService interface {
	Execute(ctx context.Context, userID, courseID, language, code string) (*executor.ExecutionResult, error)
	CreateTimedSession(ctx context.Context, userID, courseID, language, code string, timeLimitSeconds *int) (*model.CodeSession, error)
	ListSessions(ctx context.Context, userID, courseID string) ([]model.CodeSession, error)
	GetSession(ctx context.Context, userID, courseID, id string) (*model.CodeSession, error)
}

// CodeHandler serves code execution and session history for a course.
type CodeHandler struct {
	svc    CodeService
	logger *slog.Logger
}

func NewCodeHandler(svc CodeService, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{
		svc:    svc,
		logger: logger,
	}
}

type createSessionRequest struct {
	Language         string `json:"language"`
	Code             string `json:"code"`
	TimeLimitSeconds *int   `json:"time_limit_seconds"`
}

// HandleExecute handles POST /api/courses/{courseID}/code/execute.
//
// The response is 200 whenever the engine produced a result, including
// compile errors, crashes and timeouts; the "success" field carries the
// outcome.
func (h *CodeHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executor.ExecutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	result, err := h.svc.Execute(r.Context(), userID, courseID, req.Language, req.Code)
	if err != nil {
		h.logger.Error("code execution failed",
			slog.String("courseID", courseID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleCreateSession handles POST /api/courses/{courseID}/code/sessions.
func (h *CodeHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	session, err := h.svc.CreateTimedSession(r.Context(), userID, courseID, req.Language, req.Code, req.TimeLimitSeconds)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// HandleListSessions handles GET /api/courses/{courseID}/code/sessions.
func (h *CodeHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")

	sessions, err := h.svc.ListSessions(r.Context(), userID, courseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// HandleGetSession handles GET /api/courses/{courseID}/code/sessions/{sessionID}.
func (h *CodeHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	courseID := chi.URLParam(r, "courseID")
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.svc.GetSession(r.Context(), userID, courseID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleLanguages handles GET /api/languages.
func (h *CodeHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, executor.Languages())
}
