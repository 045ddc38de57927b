package services

import (
	"log/slog"
	"time"

	"relay-lab/domain"
	"relay-lab/errors"
	"relay-lab/repositories"

	"github.com/google/uuid"
)

// IMessageService is the durable write path of the persistence gateway.
// It is deliberately decoupled from the relay: saving a message here says
// nothing about real-time delivery, and the relay never waits on it.
type IMessageService interface {
	SaveMessage(senderID, recipientID, text string) (domain.Message, error)
	ChatHistory(currentUserID, otherUserID string) ([]domain.Message, error)
}

type MessageService struct {
	log               *slog.Logger
	messageRepository repositories.IMessageRepository
	userRepository    repositories.IUserRepository
}

func NewMessageService(log *slog.Logger, messageRepository repositories.IMessageRepository,
	userRepository repositories.IUserRepository) IMessageService {
	return &MessageService{
		log:               log,
		messageRepository: messageRepository,
		userRepository:    userRepository,
	}
}

// SaveMessage durably stores a direct message after checking the recipient
// account exists. The recipient being offline is irrelevant here.
func (s *MessageService) SaveMessage(senderID, recipientID, text string) (domain.Message, error) {
	if recipientID == "" || text == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	if _, err := s.userRepository.GetUserByID(recipientID); err != nil {
		return domain.Message{}, errors.ErrRecipientNotFound
	}

	message := domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messageRepository.StoreMessage(message); err != nil {
		return domain.Message{}, err
	}

	s.log.Debug("message stored", "id", message.ID, "sender", senderID, "recipient", recipientID)
	return message, nil
}

// ChatHistory returns the conversation between the current user and another
// user, oldest first, and marks the other user's messages as read.
func (s *MessageService) ChatHistory(currentUserID, otherUserID string) ([]domain.Message, error) {
	if otherUserID == "" {
		return nil, errors.ErrEmptyMessage
	}

	messages, err := s.messageRepository.GetConversation(currentUserID, otherUserID)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepository.MarkConversationRead(otherUserID, currentUserID); err != nil {
		// History is already in hand; a failed read-flag update is logged,
		// not surfaced.
		s.log.Warn("failed to mark conversation read", "error", err)
	}

	return messages, nil
}
