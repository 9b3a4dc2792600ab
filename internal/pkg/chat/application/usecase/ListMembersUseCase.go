package usecase

import (
	"context"
	"fmt"

	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

// ListMembersInput wraps the channel identifier to fetch its active members.
type ListMembersInput struct {
	ChannelID int64
}

// ListMembersUseCase returns user ids for all active members in the channel.
type ListMembersUseCase struct {
	Repo repository.ChatRepository
}

func NewListMembersUseCase(repo repository.ChatRepository) *ListMembersUseCase {
	return &ListMembersUseCase{Repo: repo}
}

func (uc *ListMembersUseCase) Execute(ctx context.Context, in ListMembersInput) ([]int64, error) {
	if in.ChannelID <= 0 {
		return nil, fmt.Errorf("%w: channel id is required", ErrValidation)
	}

	ids, err := uc.Repo.ListActiveMemberIDs(ctx, in.ChannelID)
	if err != nil {
		return nil, persistence(err)
	}
	return ids, nil
}
