package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

type ListChannelsInput struct {
	UserID int64
	Search *string
	Type   *chat.ChannelType
	Limit  int
	Offset int
}

// ListChannelsUseCase lists the active channels a user belongs to, most
// recently updated first. Limit is executed as given; callers bound it.
type ListChannelsUseCase struct {
	Repo repository.ChatRepository
}

func NewListChannelsUseCase(repo repository.ChatRepository) *ListChannelsUseCase {
	return &ListChannelsUseCase{Repo: repo}
}

func (uc *ListChannelsUseCase) Execute(ctx context.Context, in ListChannelsInput) ([]chat.Channel, error) {
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if in.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrValidation, in.Limit)
	}
	if in.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative, got %d", ErrValidation, in.Offset)
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, validation(chat.ErrInvalidChannelType)
	}

	q := repository.ChannelQuery{UserID: in.UserID, Type: in.Type, Limit: in.Limit, Offset: in.Offset}
	if in.Search != nil && strings.TrimSpace(*in.Search) != "" {
		s := strings.TrimSpace(*in.Search)
		q.Search = &s
	}

	channels, err := uc.Repo.ListChannelsForUser(ctx, q)
	if err != nil {
		return nil, persistence(err)
	}
	if channels == nil {
		channels = []chat.Channel{}
	}
	return channels, nil
}
