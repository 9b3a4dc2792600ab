package usecase

import (
	"context"
	"fmt"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

const joinPageSize = 100

// JoinUserChannelsInput is a request from an authenticated session to
// subscribe to all of a user's channels. The requested ids must match the
// session's own.
type JoinUserChannelsInput struct {
	Session  Identity
	UserID   int64
	TenantID int64
}

type JoinUserChannelsOutput struct {
	ChannelIDs []int64
	Rooms      []string
}

// JoinUserChannelsUseCase resolves the rooms a connection should join.
type JoinUserChannelsUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinUserChannelsUseCase(repo repository.ChatRepository) *JoinUserChannelsUseCase {
	return &JoinUserChannelsUseCase{Repo: repo}
}

func (uc *JoinUserChannelsUseCase) Execute(ctx context.Context, in JoinUserChannelsInput) (JoinUserChannelsOutput, error) {
	if in.UserID != in.Session.UserID {
		return JoinUserChannelsOutput{}, fmt.Errorf("%w: user %d cannot join channels of user %d", ErrAuthorization, in.Session.UserID, in.UserID)
	}
	if in.Session.TenantID == nil || *in.Session.TenantID != in.TenantID {
		return JoinUserChannelsOutput{}, fmt.Errorf("%w: tenant %d is not the session tenant", ErrAuthorization, in.TenantID)
	}

	// Pages are keyed by channel id so a send between pages cannot reorder them.
	out := JoinUserChannelsOutput{ChannelIDs: []int64{}, Rooms: []string{}}
	seen := make(map[int64]bool)
	var after int64
	for {
		page, err := uc.Repo.ListChannelIDsForUser(ctx, in.UserID, after, joinPageSize)
		if err != nil {
			return JoinUserChannelsOutput{}, persistence(err)
		}
		for _, id := range page {
			if id > after {
				after = id
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			out.ChannelIDs = append(out.ChannelIDs, id)
			out.Rooms = append(out.Rooms, chat.RoomName(in.TenantID, id))
		}
		if len(page) < joinPageSize {
			return out, nil
		}
	}
}
