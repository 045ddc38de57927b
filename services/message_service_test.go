package services

import (
	"log/slog"
	"testing"
	"time"

	"relay-lab/domain"
	"relay-lab/errors"
	"relay-lab/mocks"
	"relay-lab/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMessageService(t *testing.T) (IMessageService, *mocks.MockIMessageRepository, *mocks.MockIUserRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	userRepo := mocks.NewMockIUserRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewMessageService(log, messageRepo, userRepo), messageRepo, userRepo
}

func TestMessageService_SaveMessage(t *testing.T) {
	t.Run("stores a message for an existing recipient", func(t *testing.T) {
		req := require.New(t)
		service, messageRepo, userRepo := newMessageService(t)

		userRepo.EXPECT().GetUserByID("bob").Return(repositories.User{ID: "bob"}, nil)
		var stored domain.Message
		messageRepo.EXPECT().
			StoreMessage(gomock.Any()).
			DoAndReturn(func(m domain.Message) error {
				stored = m
				return nil
			})

		message, err := service.SaveMessage("alice", "bob", "hello")

		req.NoError(err)
		req.Equal(stored, message)
		req.Equal("alice", message.SenderID)
		req.Equal("bob", message.RecipientID)
		req.Equal("hello", message.Text)
		req.False(message.Read)
		req.WithinDuration(time.Now().UTC(), message.CreatedAt, time.Minute)
	})

	t.Run("rejects an empty text without touching storage", func(t *testing.T) {
		req := require.New(t)
		service, _, _ := newMessageService(t)

		_, err := service.SaveMessage("alice", "bob", "")

		req.ErrorIs(err, errors.ErrEmptyMessage)
	})

	t.Run("rejects an unknown recipient", func(t *testing.T) {
		req := require.New(t)
		service, _, userRepo := newMessageService(t)

		userRepo.EXPECT().
			GetUserByID("ghost").
			Return(repositories.User{}, errors.ErrRecipientNotFound)

		_, err := service.SaveMessage("alice", "ghost", "hello")

		req.ErrorIs(err, errors.ErrRecipientNotFound)
	})
}

func TestMessageService_ChatHistory(t *testing.T) {
	t.Run("returns the conversation and marks the peer's messages read", func(t *testing.T) {
		req := require.New(t)
		service, messageRepo, _ := newMessageService(t)

		conversation := []domain.Message{{SenderID: "bob", RecipientID: "alice", Text: "hi"}}
		messageRepo.EXPECT().GetConversation("alice", "bob").Return(conversation, nil)
		// Reading as alice flips bob -> alice messages
		messageRepo.EXPECT().MarkConversationRead("bob", "alice").Return(nil)

		messages, err := service.ChatHistory("alice", "bob")

		req.NoError(err)
		req.Equal(conversation, messages)
	})

	t.Run("still returns history when marking read fails", func(t *testing.T) {
		req := require.New(t)
		service, messageRepo, _ := newMessageService(t)

		conversation := []domain.Message{{SenderID: "bob", RecipientID: "alice", Text: "hi"}}
		messageRepo.EXPECT().GetConversation("alice", "bob").Return(conversation, nil)
		messageRepo.EXPECT().MarkConversationRead("bob", "alice").Return(errors.ErrSessionClosed)

		messages, err := service.ChatHistory("alice", "bob")

		req.NoError(err)
		req.Equal(conversation, messages)
	})

	t.Run("rejects an empty peer", func(t *testing.T) {
		service, _, _ := newMessageService(t)

		_, err := service.ChatHistory("alice", "")

		require.ErrorIs(t, err, errors.ErrEmptyMessage)
	})
}
