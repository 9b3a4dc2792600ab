package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/task"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// CreateChannelController handles the channel creation endpoint
// One controller per endpoint
type CreateChannelController struct {
	deps Deps
	now  func() time.Time
}

func NewCreateChannelController(deps Deps) *CreateChannelController {
	return &CreateChannelController{deps: deps, now: time.Now}
}

type createChannelRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	Image         *string `json:"image"`
	Type          string  `json:"type" binding:"required,oneof=direct group"`
	MemberUserIDs []int64 `json:"member_user_ids" binding:"required,min=1,dive,gt=0"`
}

func (h *CreateChannelController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChannelRequest
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

		uc := usecase.NewCreateChannelUseCase(repo)
		uc.Now = h.now
		ch, members, err := uc.Execute(ctx, usecase.CreateChannelInput{
			Name:          req.Name,
			Description:   req.Description,
			Image:         req.Image,
			Type:          chat.ChannelType(req.Type),
			MemberUserIDs: req.MemberUserIDs,
			CreatedBy:     session.UserID,
		})
		if err != nil {
			writeError(c, h.deps.logger(), err)
			return
		}

		h.announce(ctx, task.ChannelCreatedPayload{
			TenantID:  tenantID,
			Channel:   ch,
			MemberIDs: memberIDs(members),
		})

		c.JSON(http.StatusCreated, gin.H{
			"channel": ch,
			"members": members,
		})
	}
}

// announce hands the channel-updated fanout to the queue, or emits it inline
// when no queue is configured or enqueueing fails.
func (h *CreateChannelController) announce(ctx context.Context, p task.ChannelCreatedPayload) {
	if h.deps.Queue != nil {
		id, err := task.EnqueueChannelCreated(ctx, h.deps.Queue, p)
		if err == nil {
			h.deps.logger().Debug("channel announcement queued", zap.String("task_id", id), zap.Int64("channel_id", p.Channel.ID))
			return
		}
		h.deps.logger().Warn("enqueue channel announcement", zap.Int64("channel_id", p.Channel.ID), zap.Error(err))
	}
	if h.deps.Registry != nil {
		task.NotifyChannelCreated(h.deps.Registry, p, h.now())
	}
}

func memberIDs(members []chat.Member) []int64 {
	return lo.Map(members, func(m chat.Member, _ int) int64 { return m.UserID })
}
