package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/metrics"
	qport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/queue/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/ratelimit"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/realtime"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

var errRateLimited = errors.New("rate limit exceeded")

// RepositoryFactory binds a chat repository to one tenant handle.
type RepositoryFactory func(h *tenant.Handle) repository.ChatRepository

// SendLimiter throttles message sends per user.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// Deps is shared by every chat controller. Queue and Limiter are optional.
type Deps struct {
	Repos    RepositoryFactory
	Auth     *usecase.AuthenticateUseCase
	Registry *realtime.Registry
	Queue    qport.Client
	Limiter  SendLimiter
	Log      *zap.Logger
	Metrics  *metrics.Metrics

	HandshakeTimeout time.Duration
	InflightTimeout  time.Duration
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// tenantRepo returns the repository of the session's tenant. A non-zero
// tenantID must match the session.
func (d Deps) tenantRepo(s *usecase.Session, tenantID int64) (repository.ChatRepository, int64, error) {
	h, sessionTenant, err := s.TenantHandle()
	if err != nil {
		return nil, 0, err
	}
	if tenantID != 0 && tenantID != sessionTenant {
		return nil, 0, fmt.Errorf("%w: tenant %d is not the session tenant", usecase.ErrAuthorization, tenantID)
	}
	return d.Repos(h), sessionTenant, nil
}

// allowSend fails open when the limiter itself is unavailable.
func (d Deps) allowSend(ctx context.Context, userID int64) error {
	if d.Limiter == nil {
		return nil
	}
	res, err := d.Limiter.Allow(ctx, "send:"+strconv.FormatInt(userID, 10))
	if err != nil {
		d.logger().Warn("rate limiter unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return fmt.Errorf("%w: retry in %s", errRateLimited, res.RetryAfter)
	}
	return nil
}

// sendMessage is the shared socket and HTTP path: throttle, authorize,
// persist, broadcast.
func (d Deps) sendMessage(ctx context.Context, repo repository.ChatRepository, in usecase.SendMessageInput) (*chat.Message, error) {
	if err := d.allowSend(ctx, in.SenderID); err != nil {
		return nil, err
	}
	membership := usecase.NewCheckMembershipUseCase(repo)
	if err := membership.Authorize(ctx, usecase.CheckMembershipInput{ChannelID: in.ChannelID, UserID: in.SenderID}); err != nil {
		return nil, err
	}
	var fanout usecase.Fanout
	if d.Registry != nil {
		fanout = d.Registry
	}
	msg, err := usecase.NewSendMessageUseCase(repo, fanout).Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	d.Metrics.MessagePersisted()
	return msg, nil
}
