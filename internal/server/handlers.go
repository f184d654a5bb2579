package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/auth"
	"github.com/vkorolev/shopgw/internal/composite"
	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// Handlers binds the aggregation engine to the HTTP surface.
type Handlers struct {
	registry   *registry.Registry
	router     *composite.Router
	aggregator *composite.Aggregator
	dispatcher *composite.Dispatcher
	writeProxy *composite.WriteProxy
	signer     *auth.Signer
	tokenTTL   time.Duration
	logger     *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	reg *registry.Registry,
	router *composite.Router,
	aggregator *composite.Aggregator,
	dispatcher *composite.Dispatcher,
	writeProxy *composite.WriteProxy,
	signer *auth.Signer,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry:   reg,
		router:     router,
		aggregator: aggregator,
		dispatcher: dispatcher,
		writeProxy: writeProxy,
		signer:     signer,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// ServiceRead handles GET /:service. The path segment selects either a
// single backend or the fan-out aggregate; anything outside the closed
// set is rejected before any network call.
func (h *Handlers) ServiceRead(c *gin.Context) {
	service, err := registry.ParseService(c.Param("service"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service"})
		return
	}

	rc := util.RequestContextFromContext(c.Request.Context())

	if service == registry.ServiceAll {
		result := h.aggregator.AggregateAll(c.Request.Context(), rc, c.Query(h.aggregator.QueryParam()))
		c.JSON(http.StatusOK, result)
		return
	}

	desc, err := h.registry.Resolve(service)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service"})
		return
	}

	body, err := h.router.Route(c.Request.Context(), rc, service, c.Query(desc.QueryParam))
	if err != nil {
		h.renderUpstreamError(c, rc, err)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// PostProduct handles POST /post_product: a synchronous write proxied to
// the product service, creation status and body passed back through.
func (h *Handlers) PostProduct(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	rc := util.RequestContextFromContext(c.Request.Context())

	result, err := h.writeProxy.ForwardWrite(c.Request.Context(), rc, payload)
	if err != nil {
		h.renderUpstreamError(c, rc, err)
		return
	}

	c.Data(result.StatusCode, "application/json", result.Body)
}

// PostOrder handles POST /post_order: the body (one object or an array)
// is validated, then every payload is dispatched fire-and-forget to the
// order service. The 202 goes out before any backend has answered.
func (h *Handlers) PostOrder(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	payloads, err := composite.NormalizeBatch(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object or array"})
		return
	}

	rc := util.RequestContextFromContext(c.Request.Context())
	h.dispatcher.Dispatch(rc, payloads)

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "accepted",
		"scheduled": len(payloads),
	})
}

// tokenRequest is the token issuance request body.
type tokenRequest struct {
	Subject string   `json:"subject"`
	Grants  []string `json:"grants"`
}

// tokenResponse is the token issuance response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token handles POST /token, the public token issuance endpoint.
func (h *Handlers) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token request"})
		return
	}
	if req.Subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	token, err := h.signer.Sign(req.Subject, req.Grants)
	if err != nil {
		rc := util.RequestContextFromContext(c.Request.Context())
		h.logger.Error("token issuance failed",
			zap.String("correlation_id", rc.CorrelationID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}

// renderUpstreamError maps engine errors onto the direct-route contract:
// a backend rejection passes its own status and body through, a transport
// failure becomes a 502, anything else is a gateway-internal 500.
func (h *Handlers) renderUpstreamError(c *gin.Context, rc *util.RequestContext, err error) {
	if ue, ok := composite.IsUpstreamError(err); ok {
		c.Data(ue.StatusCode, "application/json", ue.Body)
		return
	}

	if errors.Is(err, composite.ErrUpstreamUnavailable) {
		h.logger.Warn("upstream unreachable",
			zap.String("path", c.Request.URL.Path),
			zap.String("correlation_id", rc.CorrelationID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.logger.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("correlation_id", rc.CorrelationID),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
