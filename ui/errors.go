package ui

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"custdash/domain/core"
	"custdash/internal/errors"
)

// toAppError classifies err, mapping bare domain sentinels onto application codes.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case core.IsSchemaError(err):
		return errors.SchemaError(err)
	case stderrors.Is(err, core.ErrNoDataset):
		return &errors.AppError{Code: errors.CodeNotFound, Message: "no dataset loaded, upload a file first", Cause: err}
	case core.IsNotFoundError(err):
		return errors.NotFound("session")
	case stderrors.Is(err, core.ErrUnauthorized):
		return errors.Unauthorized("log in to use the dashboard")
	case stderrors.Is(err, core.ErrUnknownAnalysis), stderrors.Is(err, core.ErrInvalidRange):
		return errors.InvalidInputf(err, "invalid request")
	}
	appErr = errors.InternalError("internal error")
	appErr.Cause = err
	return appErr
}

// statusForError maps an error to its HTTP status
func statusForError(err error) int {
	switch toAppError(err).Code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeSchemaError:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user; internal causes are not exposed.
func userMessage(err error) string {
	appErr := toAppError(err)
	if appErr.Code == errors.CodeInternalError {
		return appErr.Message
	}
	return appErr.Error()
}

// respondError writes a JSON error body
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   toAppError(err).Code,
		"message": userMessage(err),
	})
}
