package repository

import (
	"context"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
)

// ChannelQuery filters the channels visible to one user.
// Limit and Offset are executed as given; bounding them is the caller's job.
type ChannelQuery struct {
	UserID int64
	Search *string
	Type   *chat.ChannelType
	Limit  int
	Offset int
}

// ChatRepository defines persistence operations for the chat domain inside one
// tenant partition. An adapter instance is bound to exactly one tenant handle.
type ChatRepository interface {
	// CreateChannel inserts the channel and all membership rows atomically.
	CreateChannel(ctx context.Context, ch chat.Channel, members []chat.Member) (chat.Channel, error)
	ListChannelsForUser(ctx context.Context, q ChannelQuery) ([]chat.Channel, error)
	// ListChannelIDsForUser returns up to limit ids of the user's visible
	// channels with id > afterID, ascending. Message activity does not move ids.
	ListChannelIDsForUser(ctx context.Context, userID int64, afterID int64, limit int) ([]int64, error)
	IsActiveMember(ctx context.Context, channelID int64, userID int64) (bool, error)
	ListActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error)
	// SaveMessage persists m and touches the channel's updated_at in one transaction.
	// It returns chat.ErrInvalidReply when the reply target is not in the same channel.
	SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	// GetMessages returns up to limit messages older than before (newest first).
	GetMessages(ctx context.Context, channelID int64, before *int64, limit int) ([]chat.Message, error)
}
