package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/ops"
)

// Upper bound for ?limit on history; the log never holds more.
const maxHistoryLimit = 100

type translateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "qet",
		"version": s.opts.Version,
		"time":    time.Now().UTC(),
	})
}

// handleMessage speaks the message contract: every reply is 200 and
// failures are reported inside the body.
func (s *Server) handleMessage(c echo.Context) error {
	var msg ops.Message
	if err := decodeJSONBody(c, &msg); err != nil {
		return c.JSON(http.StatusOK, ops.Ack{
			Success:   false,
			Error:     "Invalid message: " + err.Error(),
			ErrorKind: errors.ErrInvalidRequest,
		})
	}
	return c.JSON(http.StatusOK, s.orch.Dispatch(c.Request().Context(), msg))
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	result := s.orch.Translate(c.Request().Context(), req.Text)
	if !result.Success {
		return failWith(c, result.Err())
	}
	return success(c, result)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.orch.GetSettings(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load settings failed")
		return failWith(c, err)
	}
	return success(c, map[string]any{"settings": settings})
}

func (s *Server) handlePutSettings(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}
	if strings.TrimSpace(string(raw)) == "" {
		return failValidation(c, map[string]string{"body": "settings object is required"})
	}

	settings, err := s.orch.UpdateSettings(c.Request().Context(), json.RawMessage(raw))
	if err != nil {
		return failWith(c, err)
	}
	return success(c, map[string]any{"settings": settings})
}

func (s *Server) handleResetSettings(c echo.Context) error {
	settings, err := s.orch.ResetSettings(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("reset settings failed")
		return failWith(c, err)
	}
	return success(c, map[string]any{"settings": settings})
}

func (s *Server) handleGetHistory(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	records, err := s.orch.GetHistory(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("load history failed")
		return failWith(c, err)
	}
	return success(c, map[string]any{
		"items": records,
		"count": len(records),
	})
}

func (s *Server) handleClearHistory(c echo.Context) error {
	if err := s.orch.ClearHistory(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("clear history failed")
		return failWith(c, err)
	}
	return success(c, map[string]any{"cleared": true})
}

// handleTabTranslate accepts a translation whose outcome is pushed to the
// tab's event stream instead of returned.
func (s *Server) handleTabTranslate(c echo.Context) error {
	tab := strings.TrimSpace(c.Param("tab"))
	if tab == "" {
		return failValidation(c, map[string]string{"tab": "is required"})
	}

	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	// The push outlives the request.
	ctx := context.WithoutCancel(c.Request().Context())
	if !s.startPush() {
		return fail(c, http.StatusServiceUnavailable, "server is shutting down", nil)
	}
	go func() {
		defer s.pushes.Done()
		s.orch.TranslateAndNotify(ctx, tab, req.Text)
	}()

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"target":   tab,
		"accepted": true,
	})
}

func decodeJSONBody(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return stderrors.New("request body is required")
		}
		return err
	}
	return nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ops.DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewInvalidRequest("must be a non-negative integer")
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, nil
}
