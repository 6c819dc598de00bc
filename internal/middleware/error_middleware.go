package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
)

type errorMapping struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{[]error{apperrors.ErrResourceNotFound}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{[]error{apperrors.ErrNoAttachment}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Message has no attachment"},
	{[]error{apperrors.ErrEmailAlreadyExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{[]error{apperrors.ErrAccountExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Person already has an account"},
	{[]error{apperrors.ErrResourceAlreadyExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{[]error{apperrors.ErrGroupFull}, http.StatusConflict, dto.ErrorCodeConflict, "Student group is full"},
	{[]error{apperrors.ErrAlreadyEnrolled}, http.StatusConflict, dto.ErrorCodeConflict, "Student is already enrolled"},
	{[]error{apperrors.ErrConflict}, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{[]error{apperrors.ErrPermissionDenied, apperrors.ErrNotParticipant}, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{[]error{apperrors.ErrInvalidCredentials}, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{[]error{apperrors.ErrAccountDisabled}, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{[]error{apperrors.ErrTokenExpired}, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{[]error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{[]error{apperrors.ErrTokenNotFound}, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{[]error{apperrors.ErrUnauthorized}, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{[]error{apperrors.ErrInvalidEmail}, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{[]error{apperrors.ErrInvalidPassword}, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{[]error{apperrors.ErrDeleteNotConfirmed}, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Deletion must be confirmed"},
	{[]error{apperrors.ErrUnknownRecipient}, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Recipient does not exist"},
	{[]error{apperrors.ErrValidationFailed, apperrors.ErrBadRequest}, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
}

// ErrorStatus resolves the HTTP status and error detail for err.
func ErrorStatus(err error) (int, *dto.ErrorDetail) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.targets[0], m.targets[1:]...) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if len(custom.Details) > 0 {
				detail.WithDetails(custom.Details)
			}
		}
		if m.status < http.StatusInternalServerError {
			detail.WithSeverity(dto.ErrorSeverityWarning)
		}
		return m.status, detail
	}

	switch {
	case dberrors.IsUniqueViolation(err):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Resource already exists").
			WithDetails(map[string]string{"constraint": dberrors.ConstraintName(err)})
	case dberrors.IsForeignKeyViolation(err):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Referenced resource does not exist or is still in use").
			WithDetails(map[string]string{"constraint": dberrors.ConstraintName(err)})
	case dberrors.IsCheckViolation(err):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Value violates a constraint").
			WithDetails(map[string]string{"constraint": dberrors.ConstraintName(err)})
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
	}
	c.JSON(status, dto.APIResponse{
		Success:   false,
		Message:   detail.Message,
		Error:     detail,
		Timestamp: time.Now(),
	})
}

// Recovery turns panics into a 500 response in the standard envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
	})
}
