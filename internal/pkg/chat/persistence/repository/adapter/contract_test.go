package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, repo repository.ChatRepository, name string, typ chat.ChannelType, creator int64, invitees ...int64) chat.Channel {
	t.Helper()
	ch, members, err := chat.NewChannel(chat.Channel{Name: name, Type: typ, CreatedBy: creator}, invitees, time.Now().UTC())
	require.NoError(t, err)
	created, err := repo.CreateChannel(context.Background(), ch, members)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	return created
}

// runContract exercises behavior every ChatRepository must share.
func runContract(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()

	t.Run("creator and invitees are active members", func(t *testing.T) {
		ch := mustCreate(t, repo, "eng-standup", chat.ChannelTypeGroup, 7, 7, 9, 9, 11)

		ids, err := repo.ListActiveMemberIDs(ctx, ch.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{7, 9, 11}, ids)

		ok, err := repo.IsActiveMember(ctx, ch.ID, 9)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsActiveMember(ctx, ch.ID, 404)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failed member insert leaves no channel", func(t *testing.T) {
		ch, _, err := chat.NewChannel(chat.Channel{Name: "broken", Type: chat.ChannelTypeGroup, CreatedBy: 501}, []int64{502}, time.Now().UTC())
		require.NoError(t, err)

		bad := []chat.Member{{UserID: 501, IsAdmin: true, IsActive: true}, {UserID: 0, IsActive: true}}
		_, err = repo.CreateChannel(ctx, ch, bad)
		require.Error(t, err)

		channels, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 501, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, channels)
	})

	t.Run("listing filters and orders", func(t *testing.T) {
		older := mustCreate(t, repo, "Design Review", chat.ChannelTypeGroup, 21, 22)
		newer := mustCreate(t, repo, "dm", chat.ChannelTypeDirect, 21, 23)

		_, err := repo.SaveMessage(ctx, chat.Message{ChannelID: older.ID, SenderID: 21, Text: strPtr("bump"), CreatedAt: time.Now().UTC().Add(time.Hour)})
		require.NoError(t, err)

		all, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 21, Limit: 10})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, older.ID, all[0].ID, "most recently updated first")
		assert.Equal(t, newer.ID, all[1].ID)

		search := "design"
		found, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 21, Search: &search, Limit: 10})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, older.ID, found[0].ID)

		wildcard := "%"
		found, err = repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 21, Search: &wildcard, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, found)

		direct := chat.ChannelTypeDirect
		found, err = repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 21, Type: &direct, Limit: 10})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, newer.ID, found[0].ID)

		page, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 21, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, newer.ID, page[0].ID)

		other, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 23, Limit: 10})
		require.NoError(t, err)
		require.Len(t, other, 1)
	})

	t.Run("channel ids page by id regardless of activity", func(t *testing.T) {
		first := mustCreate(t, repo, "ids-a", chat.ChannelTypeGroup, 81, 82)
		second := mustCreate(t, repo, "ids-b", chat.ChannelTypeGroup, 81, 82)
		third := mustCreate(t, repo, "ids-c", chat.ChannelTypeGroup, 81, 82)
		mustCreate(t, repo, "ids-other", chat.ChannelTypeGroup, 83, 84)

		_, err := repo.SaveMessage(ctx, chat.Message{ChannelID: first.ID, SenderID: 81, Text: strPtr("bump"), CreatedAt: time.Now().UTC().Add(time.Hour)})
		require.NoError(t, err)

		page, err := repo.ListChannelIDsForUser(ctx, 81, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{first.ID, second.ID}, page)

		page, err = repo.ListChannelIDsForUser(ctx, 81, second.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{third.ID}, page)

		page, err = repo.ListChannelIDsForUser(ctx, 81, third.ID, 2)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("messages page newest first", func(t *testing.T) {
		ch := mustCreate(t, repo, "history", chat.ChannelTypeGroup, 31, 32)
		base := time.Now().UTC()

		var ids []int64
		for i := 0; i < 5; i++ {
			m, err := repo.SaveMessage(ctx, chat.Message{ChannelID: ch.ID, SenderID: 31, Text: strPtr("m"), CreatedAt: base.Add(time.Duration(i) * time.Second)})
			require.NoError(t, err)
			ids = append(ids, m.ID)
		}

		page, err := repo.GetMessages(ctx, ch.ID, nil, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[4], page[0].ID)
		assert.Equal(t, ids[3], page[1].ID)

		before := ids[3]
		page, err = repo.GetMessages(ctx, ch.ID, &before, 10)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, ids[2], page[0].ID)
	})

	t.Run("reply must target the same channel", func(t *testing.T) {
		a := mustCreate(t, repo, "a", chat.ChannelTypeGroup, 41, 42)
		b := mustCreate(t, repo, "b", chat.ChannelTypeGroup, 41, 42)

		first, err := repo.SaveMessage(ctx, chat.Message{ChannelID: a.ID, SenderID: 41, Text: strPtr("root"), CreatedAt: time.Now().UTC()})
		require.NoError(t, err)

		reply, err := repo.SaveMessage(ctx, chat.Message{ChannelID: a.ID, SenderID: 42, MediaURL: strPtr("https://cdn.example.com/x.png"), ReplyToID: &first.ID, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)
		require.NotNil(t, reply.ReplyToID)
		assert.Nil(t, reply.Text)

		_, err = repo.SaveMessage(ctx, chat.Message{ChannelID: b.ID, SenderID: 41, Text: strPtr("x"), ReplyToID: &first.ID, CreatedAt: time.Now().UTC()})
		require.ErrorIs(t, err, chat.ErrInvalidReply)
	})
}

func TestMemoryChatRepository(t *testing.T) {
	repo := NewMemoryChatRepository()
	runContract(t, repo)

	t.Run("inactive and deleted memberships are not members", func(t *testing.T) {
		ctx := context.Background()
		ch := mustCreate(t, repo, "leavers", chat.ChannelTypeGroup, 51, 52, 53)

		repo.Deactivate(ch.ID, 52)
		ok, err := repo.IsActiveMember(ctx, ch.ID, 52)
		require.NoError(t, err)
		assert.False(t, ok)

		repo.SoftDelete(ch.ID)
		ok, err = repo.IsActiveMember(ctx, ch.ID, 53)
		require.NoError(t, err)
		assert.False(t, ok)

		channels, err := repo.ListChannelsForUser(ctx, repository.ChannelQuery{UserID: 53, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, channels)
	})
}
