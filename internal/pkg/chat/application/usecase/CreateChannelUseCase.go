package usecase

import (
	"context"
	"time"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

// CreateChannelInput carries the request to open a new channel.
type CreateChannelInput struct {
	Name          string
	Description   *string
	Image         *string
	Type          chat.ChannelType
	MemberUserIDs []int64
	CreatedBy     int64
}

// CreateChannelUseCase creates a channel together with its initial members in
// one transaction.
type CreateChannelUseCase struct {
	Repo repository.ChatRepository
	Now  func() time.Time
}

func NewCreateChannelUseCase(repo repository.ChatRepository) *CreateChannelUseCase {
	return &CreateChannelUseCase{Repo: repo, Now: time.Now}
}

func (uc *CreateChannelUseCase) Execute(ctx context.Context, in CreateChannelInput) (chat.Channel, []chat.Member, error) {
	ch, members, err := chat.NewChannel(chat.Channel{
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Type:        in.Type,
		CreatedBy:   in.CreatedBy,
	}, in.MemberUserIDs, uc.Now())
	if err != nil {
		return chat.Channel{}, nil, validation(err)
	}

	created, err := uc.Repo.CreateChannel(ctx, ch, members)
	if err != nil {
		return chat.Channel{}, nil, persistence(err)
	}
	for i := range members {
		members[i].ChannelID = created.ID
	}
	return created, members, nil
}
