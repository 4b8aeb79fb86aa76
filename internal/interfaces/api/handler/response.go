package handler

import (
	"errors"
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/application/service"
	appErrors "lecturealarm/internal/pkg/errors"
	"lecturealarm/internal/pkg/logger"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorResponse is the JSON body of every failed API call.
type errorResponse struct {
	Error         string               `json:"error"`
	ConflictsWith *dto.LectureResponse `json:"conflicts_with,omitempty"`
}

// respondError maps service errors to HTTP status codes.
// Unexpected errors are logged and hidden from the client.
func respondError(c echo.Context, log logger.Logger, err error) error {
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), ConflictsWith: &conflict.With})
	}

	switch {
	case errors.Is(err, appErrors.ErrInvalidLecture),
		errors.Is(err, appErrors.ErrInvalidSettings),
		errors.Is(err, appErrors.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrUserNotFound),
		errors.Is(err, appErrors.ErrLectureNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrLectureConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, appErrors.ErrLineAPI):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: appErrors.ErrLineAPI.Error()})
	default:
		log.Error(fmt.Sprintf("Request %s %s failed", c.Request().Method, c.Path()), err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: appErrors.ErrInternalServer.Error()})
	}
}
