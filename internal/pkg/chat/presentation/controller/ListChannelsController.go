package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// ListChannelsController lists the caller's channels (one controller per endpoint)
type ListChannelsController struct {
	deps Deps
}

func NewListChannelsController(deps Deps) *ListChannelsController {
	return &ListChannelsController{deps: deps}
}

type listChannelsQuery struct {
	Search string `form:"search"`
	Type   string `form:"type" binding:"omitempty,oneof=direct group"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

func (h *ListChannelsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listChannelsQuery
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

		in := usecase.ListChannelsInput{UserID: session.UserID, Limit: q.Limit, Offset: q.Offset}
		if q.Search != "" {
			in.Search = &q.Search
		}
		if q.Type != "" {
			t := chat.ChannelType(q.Type)
			in.Type = &t
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.InflightTimeout)
		defer cancel()

		channels, err := usecase.NewListChannelsUseCase(repo).Execute(ctx, in)
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"channels": channels,
			"limit":    q.Limit,
			"offset":   q.Offset,
			"count":    len(channels),
		})
	}
}
