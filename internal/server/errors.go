package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/pressline/internal/client/domain"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var mismatch *subscriptiondomain.AmountMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "amount_mismatch",
			Message: mismatch.Error(),
			Details: map[string]any{
				"expected": mismatch.Expected.StringFixed(2),
				"got":      mismatch.Got.StringFixed(2),
			},
		}
	}

	var blocked *subscriptiondomain.NotActivatableError
	if errors.As(err, &blocked) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "not_activatable",
			Message: blocked.Reason,
		}
	}

	switch {
	case isValidationError(err):
		code := errorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: validationErrorField(code), Code: code, Message: "invalid value"},
			},
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, operatordomain.ErrInvalidCredentials),
		errors.Is(err, operatordomain.ErrInvalidSession),
		errors.Is(err, operatordomain.ErrSessionExpired),
		errors.Is(err, subscriptiondomain.ErrOperatorRequired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, subscriptiondomain.ErrUnavailable):
		return http.StatusConflict, errorPayload{
			Type:    "unavailable",
			Message: err.Error(),
		}
	case errors.Is(err, subscriptiondomain.ErrInvalidState),
		errors.Is(err, deliverydomain.ErrInvalidTransition),
		errors.Is(err, clientdomain.ErrDuplicatePassport),
		errors.Is(err, publicationdomain.ErrDuplicateName),
		errors.Is(err, operatordomain.ErrDuplicateLogin):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, subscriptiondomain.ErrDeadlineExpired):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "deadline_expired",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog labels request errors for the access log.
func classifyErrorForLog(err error) string {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return payload.Type
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, subscriptiondomain.ErrInvalidInput),
		errors.Is(err, publicationdomain.ErrInvalidID),
		errors.Is(err, publicationdomain.ErrInvalidTitle),
		errors.Is(err, publicationdomain.ErrInvalidName),
		errors.Is(err, publicationdomain.ErrInvalidPeriodicity),
		errors.Is(err, publicationdomain.ErrInvalidPrice),
		errors.Is(err, publicationdomain.ErrInvalidPeriod),
		errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidPassport),
		errors.Is(err, operatordomain.ErrInvalidLogin),
		errors.Is(err, operatordomain.ErrInvalidPassword),
		errors.Is(err, deliverydomain.ErrInvalidID),
		errors.Is(err, deliverydomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, publicationdomain.ErrNotFound),
		errors.Is(err, publicationdomain.ErrCategoryNotFound),
		errors.Is(err, publicationdomain.ErrServiceNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, deliverydomain.ErrNotFound):
		return true
	default:
		return false
	}
}

// errorCode returns the leading sentinel of a wrapped error message.
func errorCode(err error) string {
	code, _, _ := strings.Cut(err.Error(), ":")
	return code
}

func validationErrorField(code string) string {
	if field, ok := strings.CutPrefix(code, "invalid_"); ok && field != "" {
		return field
	}
	return "request"
}
