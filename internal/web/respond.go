package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hpungsan/qet/internal/errors"
)

type jsendResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, jsendResponse{
		Status: "success",
		Data:   data,
	})
}

func successWithStatus(c echo.Context, code int, data any) error {
	return c.JSON(code, jsendResponse{
		Status: "success",
		Data:   data,
	})
}

func fail(c echo.Context, code int, message string, data any) error {
	resp := jsendResponse{
		Status:  "fail",
		Message: message,
	}
	if data != nil {
		resp.Data = data
	}
	return c.JSON(code, resp)
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendResponse{
		Status:  "error",
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}

// failWith renders err using its status. 5xx errors use the "error" envelope
// and never carry details.
func failWith(c echo.Context, err error) error {
	qErr, ok := errors.As(err)
	if !ok {
		return internalError(c, "Internal server error")
	}

	if qErr.Status >= 500 {
		return c.JSON(qErr.Status, jsendResponse{
			Status:  "error",
			Message: qErr.PublicMessage(),
			Code:    qErr.Status,
			Data:    errorData(qErr, false),
		})
	}
	return fail(c, qErr.Status, qErr.Message, errorData(qErr, true))
}

func errorData(qErr *errors.QetError, withDetails bool) map[string]any {
	data := map[string]any{"errorKind": qErr.Code}
	if qErr.Provider != "" {
		data["provider"] = qErr.Provider
	}
	if withDetails && qErr.Details != nil {
		data["details"] = qErr.Details
	}
	return data
}
