package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/signature"
)

const (
	rawBodyKey = "rawBody"

	maxInteractionBytes = 1 << 20
)

// RequireSignature rejects requests whose body is not signed by the application key.
// The verified body is kept on the context for handlers.
func RequireSignature(verifier *signature.Verifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}

	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInteractionBytes))
		if err != nil {
			logger.Warn("read interaction body failed", zap.Error(err))
			c.String(http.StatusUnauthorized, "Bad request signature.")
			c.Abort()
			return
		}

		sig := c.GetHeader(signature.HeaderSignature)
		ts := c.GetHeader(signature.HeaderTimestamp)
		if !verifier.Verify(body, sig, ts) {
			logger.Debug("interaction signature rejected",
				zap.Bool("has_signature", sig != ""),
				zap.Bool("has_timestamp", ts != ""),
			)
			c.String(http.StatusUnauthorized, "Bad request signature.")
			c.Abort()
			return
		}

		c.Set(rawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// GetRawBody returns the body verified by RequireSignature.
func GetRawBody(c *gin.Context) ([]byte, bool) {
	value, ok := c.Get(rawBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := value.([]byte)
	return body, ok
}
