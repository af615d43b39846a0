package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/handler"
	"github.com/jwalitptl/triage-api/pkg/auth"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/security"
)

const (
	HeaderAPIKey   = "X-API-Key"
	ContextAshaID  = "asha_id"
	ContextRole    = "role"
	ContextChannel = "channel_adapter"
)

// AuthMiddleware guards the two trust boundaries: dashboard workers present
// bearer tokens, channel adapters present API keys. Rejections are opaque;
// the reason is logged server side only.
type AuthMiddleware struct {
	verifier      *auth.Verifier
	channelHashes []string
}

func NewAuthMiddleware(verifier *auth.Verifier, channelHashes []string) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:      verifier,
		channelHashes: channelHashes,
	}
}

// Authenticate verifies the bearer token and sets worker identity in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthenticated(c)
			return
		}

		claims, err := m.verifier.Verify(parts[1])
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(ContextAshaID, claims.AshaID.String())
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AuthenticateChannel verifies a channel adapter API key.
func (m *AuthMiddleware) AuthenticateChannel() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			abortUnauthenticated(c)
			return
		}

		for _, hash := range m.channelHashes {
			if security.VerifyAPIKey(key, hash) {
				c.Set(ContextChannel, true)
				c.Next()
				return
			}
		}
		abortUnauthenticated(c)
	}
}

// RequireRole rejects workers whose token lacks the given role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			handler.RespondError(c, apperrors.Authorization(errors.New("insufficient role")))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorID returns the authenticated worker identity, or uuid.Nil for
// unauthenticated paths.
func ActorID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(ContextAshaID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func abortUnauthenticated(c *gin.Context) {
	handler.RespondError(c, apperrors.Authentication(errors.New("credentials rejected")))
	c.Abort()
}
