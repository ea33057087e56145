// handlers.go - Session, upload and question handlers
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"docqa/internal/domain"
	"docqa/internal/log"
	"docqa/internal/session"
)

// Handler serves the JSON API on top of a QAService.
type Handler struct {
	svc      domain.QAService
	sessions *session.Manager
	logger   *log.Logger
	version  string
}

func NewHandler(svc domain.QAService, sessions *session.Manager, logger *log.Logger, version string) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{svc: svc, sessions: sessions, logger: logger, version: version}
}

type askRequest struct {
	Question string `json:"question"`
}

type sessionResponse struct {
	ID    string   `json:"id"`
	Files []string `json:"files"`
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"sessions": len(h.sessions.IDs()),
	})
}

// HandleCreateSession starts a new interaction with an empty document set.
func (h *Handler) HandleCreateSession(c echo.Context) error {
	s := h.sessions.Create()
	h.logger.Info("session created", "session", s.ID)
	return c.JSON(http.StatusCreated, sessionResponse{ID: s.ID, Files: []string{}})
}

func (h *Handler) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUploadFiles ingests every multipart "files" part into the session.
func (h *Handler) HandleUploadFiles(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return NewValidationError("files")
	}

	files := make([]domain.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return NewBadRequestError("failed to open uploaded file", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return NewBadRequestError("failed to read uploaded file", err)
		}
		files = append(files, domain.File{Name: fh.Filename, Data: data})
	}

	results := h.svc.IngestFiles(c.Request().Context(), s.Docs, files)
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) HandleListFiles(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{ID: s.ID, Files: s.Docs.Names()})
}

// HandleAsk answers a question from the session's best matching file.
func (h *Handler) HandleAsk(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if strings.TrimSpace(req.Question) == "" {
		return NewValidationError("question")
	}

	ans, err := h.svc.Ask(c.Request().Context(), s.ID, s.Docs, req.Question)
	if err != nil {
		apiErr := askError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			h.logger.Error("ask failed", "session", s.ID, "error", err)
		}
		return apiErr
	}
	return c.JSON(http.StatusOK, ans)
}

func (h *Handler) HandleHistory(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return NewValidationError("limit")
		}
	}
	entries, err := h.svc.History(c.Request().Context(), s.ID, limit)
	if err != nil {
		return NewInternalError("failed to load history", err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) session(c echo.Context) (*session.Session, error) {
	id := c.Param("id")
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return s, nil
}
