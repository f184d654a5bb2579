package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/auth"
	"github.com/vkorolev/shopgw/internal/util"
)

// Auth returns a middleware that resolves the bearer token into an
// identity on the RequestContext. Public paths bypass the resolver
// entirely; their set is fixed configuration, not request data. On any
// auth failure the request terminates with a 401 and no downstream call
// is made.
func Auth(resolver *auth.Resolver, publicPaths []string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(c *gin.Context) {
		if public[c.Request.URL.Path] {
			c.Next()
			return
		}

		rc := util.RequestContextFromContext(c.Request.Context())

		identity, err := resolver.Authenticate(c.GetHeader(HeaderAuthorization))
		if err != nil {
			logger.Warn("authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("correlation_id", rc.CorrelationID),
				zap.String("reason", authFailureReason(err)),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": authFailureReason(err),
			})
			return
		}

		rc.Identity = identity
		c.Next()
	}
}

// authFailureReason maps an auth error to its client-facing reason.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return "token invalid"
	default:
		return "unauthenticated"
	}
}
