package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	"github.com/smallbiznis/linkedroles-worker/internal/http/middleware"
	"github.com/smallbiznis/linkedroles-worker/internal/interaction"
)

// InteractionHandler answers the interactions webhook.
type InteractionHandler struct {
	Dispatcher *interaction.Dispatcher
	logger     *zap.Logger
}

// NewInteractionHandler creates the webhook handler.
func NewInteractionHandler(dispatcher *interaction.Dispatcher, logger *zap.Logger) *InteractionHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &InteractionHandler{Dispatcher: dispatcher, logger: logger}
}

// Interactions decodes a verified interaction and writes the dispatcher's response.
func (h *InteractionHandler) Interactions(c *gin.Context) {
	body, ok := middleware.GetRawBody(c)
	if !ok {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "Invalid body"})
			return
		}
	}

	var in domain.Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		h.logger.Warn("decode interaction failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Error: "Invalid JSON"})
		return
	}

	res := h.Dispatcher.Dispatch(in)
	c.JSON(res.Status, res.Body)
}
