package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carewire/hospital-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PartialResult reports an operation whose local write committed but whose
// remote notification has not yet succeeded. The retry token lets callers
// poll the record the reconciler is working on.
type PartialResult struct {
	Data       interface{} `json:"data"`
	RemoteErr  *Error      `json:"remote_error"`
	RetryToken string      `json:"retry_token"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithPartialSuccess sends a 207 response for a committed local write
// with a pending remote leg.
func RespondWithPartialSuccess(c *gin.Context, data interface{}, remoteErr error, retryToken string) {
	e := &Error{Kind: errors.KindOf(remoteErr), Message: "remote notification pending"}
	if appErr, ok := errors.AsAppError(remoteErr); ok {
		e.Message = appErr.Message
	}
	c.JSON(http.StatusMultiStatus, Response{
		Success: true,
		Data: PartialResult{
			Data:       data,
			RemoteErr:  e,
			RetryToken: retryToken,
		},
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	RespondWithErrorDetails(c, err, nil)
}

// RespondWithErrorDetails sends an error response with extra machine-readable
// payload, e.g. alternative dates on a leave conflict.
func RespondWithErrorDetails(c *gin.Context, err error, details interface{}) {
	kind := errors.KindOf(err)
	message := "internal server error"
	if appErr, ok := errors.AsAppError(err); ok {
		message = appErr.Message
	}

	c.JSON(statusFor(kind), Response{
		Success: false,
		Error: &Error{
			Kind:    kind,
			Message: message,
			Details: details,
		},
	})
}

func statusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindRemoteRejected:
		return http.StatusBadGateway
	case errors.KindLocalPersistence, errors.KindRemoteUnreachable, errors.KindRemoteTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
