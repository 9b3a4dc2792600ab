package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/queue/port"
	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/event"
)

// ChannelCreatedTaskType is the queue task name announcing a new channel to its members.
const ChannelCreatedTaskType = "chat:channel_created"

const (
	channelCreatedQueue    = "chat"
	channelCreatedMaxRetry = 5
)

// ChannelCreatedPayload is the JSON payload transported via the queue.
type ChannelCreatedPayload struct {
	TenantID  int64        `json:"tenantId"`
	Channel   chat.Channel `json:"channel"`
	MemberIDs []int64      `json:"memberIds"`
}

// UserNotifier pushes an event to every connection of a user.
type UserNotifier interface {
	EmitToUser(userID int64, event string, data interface{}) int
}

// EnqueueChannelCreated schedules the channel-updated fanout.
func EnqueueChannelCreated(ctx context.Context, client qport.Client, p ChannelCreatedPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", ChannelCreatedTaskType, err)
	}
	return client.Enqueue(ctx, qport.Task{Type: ChannelCreatedTaskType, Payload: b},
		qport.EnqueueOption{Queue: channelCreatedQueue, MaxRetry: channelCreatedMaxRetry})
}

// NotifyChannelCreated emits channel-updated to each member and returns the
// number of connections reached. Offline members are skipped.
func NotifyChannelCreated(notifier UserNotifier, p ChannelCreatedPayload, now time.Time) int {
	data := event.ChannelUpdatedPayload{
		TenantID:  p.TenantID,
		Channel:   p.Channel,
		Reason:    "created",
		Timestamp: event.Timestamp(now),
	}
	delivered := 0
	for _, userID := range p.MemberIDs {
		delivered += notifier.EmitToUser(userID, event.ChannelUpdated, data)
	}
	return delivered
}

// RegisterChannelCreatedTask binds the task handler to the provided server.
func RegisterChannelCreatedTask(srv qport.Server, notifier UserNotifier) {
	srv.Register(ChannelCreatedTaskType, func(ctx context.Context, t qport.Task) error {
		var p ChannelCreatedPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ChannelCreatedTaskType, err)
		}
		NotifyChannelCreated(notifier, p, time.Now())
		return nil
	})
}
