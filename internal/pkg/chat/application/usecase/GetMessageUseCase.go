package usecase

import (
	"context"
	"fmt"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput pages backwards through a channel: newest first, strictly
// older than Before when set.
type GetMessageInput struct {
	ChannelID int64
	UserID    int64
	Before    *int64
	Limit     int
}

// GetMessageUseCase fetches a page of history for a member of the channel.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrValidation, in.Limit)
	}
	if in.Before != nil && *in.Before <= 0 {
		return nil, fmt.Errorf("%w: before must be a message id", ErrValidation)
	}

	membership := NewCheckMembershipUseCase(uc.Repo)
	if err := membership.Authorize(ctx, CheckMembershipInput{ChannelID: in.ChannelID, UserID: in.UserID}); err != nil {
		return nil, err
	}

	msgs, err := uc.Repo.GetMessages(ctx, in.ChannelID, in.Before, in.Limit)
	if err != nil {
		return nil, persistence(err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}
