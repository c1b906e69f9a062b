package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/config"
	"github.com/smallbiznis/linkedroles-worker/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/linkedroles-worker/internal/http/middleware"
	"github.com/smallbiznis/linkedroles-worker/internal/middleware"
	"github.com/smallbiznis/linkedroles-worker/internal/signature"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	interactions *handler.InteractionHandler,
	linkedRole *handler.LinkedRoleHandler,
	verifier *signature.Verifier,
	rateLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/", linkedRole.Hello)
	r.POST("/interactions", httpmiddleware.RequireSignature(verifier, logger), interactions.Interactions)

	oauth := r.Group("/", rateLimiter.Handler())
	{
		oauth.GET("/linked-role", linkedRole.LinkedRole)
		oauth.GET("/oauth-callback", linkedRole.OAuthCallback)
	}

	r.POST("/update-metadata", httpmiddleware.AdminToken(cfg.AdminToken), linkedRole.UpdateMetadata)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found.")
	})

	return r
}
