package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// ListMembersController returns a channel's active members with their
// presence (one controller per endpoint)
type ListMembersController struct {
	deps Deps
}

func NewListMembersController(deps Deps) *ListMembersController {
	return &ListMembersController{deps: deps}
}

type memberPresence struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

func (h *ListMembersController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID, ok := channelParam(c)
		if !ok {
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

		membership := usecase.NewCheckMembershipUseCase(repo)
		if err := membership.Authorize(ctx, usecase.CheckMembershipInput{ChannelID: channelID, UserID: session.UserID}); err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		ids, err := usecase.NewListMembersUseCase(repo).Execute(ctx, usecase.ListMembersInput{ChannelID: channelID})
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		members := make([]memberPresence, 0, len(ids))
		for _, id := range ids {
			members = append(members, memberPresence{UserID: id, Online: h.deps.Registry != nil && h.deps.Registry.IsOnline(id)})
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}
