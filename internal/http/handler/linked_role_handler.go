package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/cookie"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/service/linkedrole"
)

const (
	callbackFailedMessage  = "oh uh, something wrong happened"
	callbackSuccessMessage = "connected! you may now close this window"
	stateMismatchMessage   = "state verification failed"
)

// LinkedRoleHandler serves the linked-role OAuth flow.
type LinkedRoleHandler struct {
	Service       linkedrole.Service
	Signer        *cookie.StateSigner
	ApplicationID string
	SecureCookie  bool
	logger        *zap.Logger
}

// NewLinkedRoleHandler creates the handler set.
func NewLinkedRoleHandler(svc linkedrole.Service, signer *cookie.StateSigner, applicationID string, secureCookie bool, logger *zap.Logger) *LinkedRoleHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &LinkedRoleHandler{
		Service:       svc,
		Signer:        signer,
		ApplicationID: applicationID,
		SecureCookie:  secureCookie,
		logger:        logger,
	}
}

// Hello is the liveness route.
func (h *LinkedRoleHandler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "👋 %s", h.ApplicationID)
}

// LinkedRole starts the authorization: it pins a fresh state in a signed cookie and redirects
// to the consent screen.
func (h *LinkedRoleHandler) LinkedRole(c *gin.Context) {
	authURL, state, err := h.Service.BuildAuthorizationURL()
	if err != nil {
		h.logger.Error("build authorization url failed", zap.Error(err))
		c.String(http.StatusInternalServerError, callbackFailedMessage)
		return
	}
	value, err := h.Signer.Sign(state)
	if err != nil {
		h.logger.Error("sign state cookie failed", zap.Error(err))
		c.String(http.StatusInternalServerError, callbackFailedMessage)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.StateCookieName, value, int(h.Signer.MaxAge().Seconds()), "/", "", h.SecureCookie, true)
	c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback verifies the state cookie before any upstream call, then completes the flow.
func (h *LinkedRoleHandler) OAuthCallback(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("oauth callback panicked", zap.Any("panic", r))
			c.String(http.StatusInternalServerError, callbackFailedMessage)
		}
	}()

	if err := h.verifyState(c); err != nil {
		h.logger.Warn("oauth state rejected", zap.Error(err))
		c.String(http.StatusForbidden, stateMismatchMessage)
		return
	}

	result, err := h.Service.HandleCallback(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger.Error("oauth callback failed", zap.Error(err))
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, callbackFailedMessage)
		return
	}

	h.logger.Info("linked role connected",
		zap.String("user_id", result.UserID),
		zap.Bool("metadata_pushed", result.MetadataPushed),
	)
	c.String(http.StatusOK, callbackSuccessMessage)
}

func (h *LinkedRoleHandler) verifyState(c *gin.Context) error {
	raw, err := c.Cookie(cookie.StateCookieName)
	if err != nil {
		return fmt.Errorf("%w: cookie missing", domainoauth.ErrInvalidState)
	}
	state, err := h.Signer.Verify(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domainoauth.ErrInvalidState, err)
	}
	if state != c.Query("state") {
		return domainoauth.ErrInvalidState
	}
	return nil
}

type updateMetadataRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UpdateMetadata re-pushes metadata for a stored user and returns the resulting connection.
func (h *LinkedRoleHandler) UpdateMetadata(c *gin.Context) {
	var req updateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	rc, err := h.Service.UpdateMetadata(c.Request.Context(), req.UserID)
	if err != nil {
		respondLinkedRoleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func respondLinkedRoleError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case linkedrole.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "no tokens stored for user"})
	case errors.Is(err, domainoauth.ErrProviderRequest):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
