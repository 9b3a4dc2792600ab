package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// SendMessageController persists a message over HTTP and broadcasts it to the
// channel room (one controller per endpoint)
type SendMessageController struct {
	deps Deps
}

func NewSendMessageController(deps Deps) *SendMessageController {
	return &SendMessageController{deps: deps}
}

// sendMessageRequest is the DTO for the HTTP request body. SocketID names the
// caller's live connection that should receive the reconciliation copy.
type sendMessageRequest struct {
	Text             *string         `json:"text"`
	MediaURL         *string         `json:"media_url" binding:"omitempty,url"`
	ReplyToMessageID *int64          `json:"reply_to_message_id" binding:"omitempty,gt=0"`
	TempID           json.RawMessage `json:"temp_id"`
	SocketID         string          `json:"socket_id"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelParam(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		session := middleware.SessionFrom(c)
		repo, tenantID, err := h.deps.tenantRepo(session, 0)
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.InflightTimeout)
		defer cancel()

		msg, err := h.deps.sendMessage(ctx, repo, usecase.SendMessageInput{
			TenantID:  tenantID,
			ChannelID: channelID,
			SenderID:  session.UserID,
			Text:      req.Text,
			MediaURL:  req.MediaURL,
			ReplyToID: req.ReplyToMessageID,
			TempID:    req.TempID,
			SocketID:  req.SocketID,
		})
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": msg})
	}
}
