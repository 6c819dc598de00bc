package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	ContextAccountID     = "accountID"
	ContextEmail         = "email"
	ContextRole          = "role"
	ContextParticipantID = "participantID"
)

// AccountLookup loads the account behind a token.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*models.UserAccount, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	accounts   AccountLookup
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, accounts AccountLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		accounts:   accounts,
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, details string) {
	errorDetail := dto.NewErrorDetail(code, "Authentication required").WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// JWTAuth middleware for JWT token validation. Browsers cannot set headers on
// a websocket handshake, so the token may also come as ?token=.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authorization header missing")
			return
		}

		tokenString, err := auth.ExtractBearerToken(raw)
		if err != nil {
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token format")
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		}

		c.Set(ContextAccountID, claims.AccountID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, models.Role(claims.Role))
		c.Set(ContextParticipantID, claims.ParticipantID)

		c.Next()
	}
}

// ActiveAccountRequired rejects tokens of accounts that were disabled after
// the token was issued.
func (m *AuthMiddleware) ActiveAccountRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := CurrentAccountID(c)
		if !ok {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "User information not found")
			return
		}

		account, err := m.accounts.GetByID(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Account no longer exists")
				return
			}
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		if !account.IsActive {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeAccountDisabled, "Account is disabled")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

// RoleRequired middleware to check if user has one of the given roles
func (m *AuthMiddleware) RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if !ok {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "User role not found")
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
			WithDetails("You don't have sufficient permissions for this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}

// StaffOnly admits administrators and the secretariat.
func (m *AuthMiddleware) StaffOnly() gin.HandlerFunc {
	return m.RoleRequired(models.RoleAdmin, models.RoleSecretariat)
}

// CurrentAccountID returns the account id set by JWTAuth.
func CurrentAccountID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextAccountID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CurrentRole returns the role set by JWTAuth.
func CurrentRole(c *gin.Context) (models.Role, bool) {
	v, ok := c.Get(ContextRole)
	if !ok {
		return "", false
	}
	role, ok := v.(models.Role)
	return role, ok
}

// CurrentParticipant returns the messaging identity of the caller.
func CurrentParticipant(c *gin.Context) (models.Participant, bool) {
	role, ok := CurrentRole(c)
	if !ok {
		return models.Participant{}, false
	}
	v, ok := c.Get(ContextParticipantID)
	if !ok {
		return models.Participant{}, false
	}
	id, ok := v.(int64)
	if !ok {
		return models.Participant{}, false
	}
	return models.Participant{ID: id, Role: role}, true
}

// ParticipantKey is the "role:id" routing key of the caller, for the push hub.
func ParticipantKey(c *gin.Context) (string, bool) {
	p, ok := CurrentParticipant(c)
	if !ok {
		return "", false
	}
	return p.Key(), true
}
