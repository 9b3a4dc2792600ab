package usecase

import (
	"context"
	"fmt"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

type CheckMembershipInput struct {
	ChannelID int64
	UserID    int64
}

// CheckMembershipUseCase gates reads and writes on a channel. Only active
// memberships of non-deleted channels count.
type CheckMembershipUseCase struct {
	Repo repository.ChatRepository
}

func NewCheckMembershipUseCase(repo repository.ChatRepository) *CheckMembershipUseCase {
	return &CheckMembershipUseCase{Repo: repo}
}

func (uc *CheckMembershipUseCase) Execute(ctx context.Context, in CheckMembershipInput) (bool, error) {
	if in.ChannelID <= 0 || in.UserID <= 0 {
		return false, fmt.Errorf("%w: channel id and user id are required", ErrValidation)
	}
	ok, err := uc.Repo.IsActiveMember(ctx, in.ChannelID, in.UserID)
	if err != nil {
		return false, persistence(err)
	}
	return ok, nil
}

// Authorize is Execute with a non-member turned into ErrAuthorization.
func (uc *CheckMembershipUseCase) Authorize(ctx context.Context, in CheckMembershipInput) error {
	ok, err := uc.Execute(ctx, in)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %w (channel %d)", ErrAuthorization, chat.ErrNotMember, in.ChannelID)
	}
	return nil
}
