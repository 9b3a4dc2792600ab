package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// GetMessageController pages through a channel's history (one controller per endpoint)
type GetMessageController struct {
	deps Deps
}

func NewGetMessageController(deps Deps) *GetMessageController {
	return &GetMessageController{deps: deps}
}

type getMessagesQuery struct {
	Before *int64 `form:"before" binding:"omitempty,gt=0"`
	Limit  int    `form:"limit,default=50" binding:"min=1,max=100"`
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelParam(c)
		if !ok {
			return
		}

		var q getMessagesQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			bindError(c, err)
			return
		}

		session := middleware.SessionFrom(c)
		repo, _, err := h.deps.tenantRepo(session, 0)
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.InflightTimeout)
		defer cancel()

		msgs, err := usecase.NewGetMessageUseCase(repo).Execute(ctx, usecase.GetMessageInput{
			ChannelID: channelID,
			UserID:    session.UserID,
			Before:    q.Before,
			Limit:     q.Limit,
		})
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		resp := gin.H{
			"messages": msgs,
			"limit":    q.Limit,
			"count":    len(msgs),
		}
		if len(msgs) == q.Limit {
			resp["next_before"] = msgs[len(msgs)-1].ID
		}
		c.JSON(http.StatusOK, resp)
	}
}

// channelParam parses :channelId and answers 400 itself when it is invalid.
func channelParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
	if err != nil || id <= 0 {
		bindError(c, errors.New("channelId must be a positive integer"))
		return 0, false
	}
	return id, true
}
