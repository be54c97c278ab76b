package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/policy"
	"github.com/mvlbulankin/yamdb-final/internal/service"
	"github.com/mvlbulankin/yamdb-final/internal/utils"
)

const subjectKey = "subject"

// TokenVerifier is satisfied by *utils.JWTSigner.
type TokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

// UserLookup loads the current account behind a token.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ErrorResponder writes err as the HTTP error response and aborts.
type ErrorResponder func(c *gin.Context, err error)

// Authenticate resolves the caller. No Authorization header means the
// anonymous subject; a present but invalid token is rejected with 401.
// Role comes from the stored user, so role changes and deletions apply
// to tokens already issued.
func Authenticate(verifier TokenVerifier, users UserLookup, respond ErrorResponder) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(subjectKey, policy.Anonymous())
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			respond(c, fmt.Errorf("%w: use Authorization: Bearer <token>", service.ErrUnauthenticated))
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				respond(c, fmt.Errorf("%w: token expired", service.ErrUnauthenticated))
				return
			}
			respond(c, fmt.Errorf("%w: invalid token", service.ErrUnauthenticated))
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			respond(c, err)
			return
		}
		if user == nil {
			respond(c, fmt.Errorf("%w: account no longer exists", service.ErrUnauthenticated))
			return
		}

		c.Set(subjectKey, policy.Subject{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
		c.Next()
	}
}

// SubjectFrom returns the caller set by Authenticate, anonymous if none.
func SubjectFrom(c *gin.Context) policy.Subject {
	if v, ok := c.Get(subjectKey); ok {
		if s, ok := v.(policy.Subject); ok {
			return s
		}
	}
	return policy.Anonymous()
}
