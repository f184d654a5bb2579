package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vkorolev/shopgw/internal/util"
)

// CorrelationID returns a middleware that establishes the per-request
// RequestContext. It reads X-Correlation-ID from the inbound request or
// generates one, echoes it on the response, and attaches a fresh
// RequestContext (one per request, never shared) to the request context.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		rc := &util.RequestContext{
			CorrelationID: correlationID,
			BearerToken:   c.GetHeader(HeaderAuthorization),
			StartTime:     time.Now(),
		}

		ctx := util.ContextWithRequestContext(c.Request.Context(), rc)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderCorrelationID, correlationID)

		c.Next()
	}
}
