package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"relay-lab/auth"
	"relay-lab/domain"
	"relay-lab/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const awaitTimeout = 5 * time.Second

type testRelaySuite struct {
	BaseRelaySuite
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, &testRelaySuite{})
}

type account struct {
	userID string
	token  string
}

// newAccount registers a throwaway user against the live server and returns
// its identity as carried inside the issued token.
func (s *testRelaySuite) newAccount(name string) account {
	var resp struct {
		Token string `json:"token"`
	}
	status := s.PostJSON("/api/users/register", "", map[string]string{
		"email":    fmt.Sprintf("%s-%s@e2e.local", name, uuid.NewString()),
		"username": name,
		"password": "E2e$trongPass123",
	}, &resp)
	s.Require().Equal(http.StatusCreated, status)

	claims, err := auth.ValidateToken(resp.Token)
	s.Require().NoError(err)
	return account{userID: claims.UserID, token: resp.Token}
}

func (s *testRelaySuite) TestFullRelayFlow() {
	alice := s.newAccount("alice")
	bob := s.newAccount("bob")

	s.step("Step 1: both users go online and see each other")
	aliceConn := s.DialRelay(alice.token)
	defer aliceConn.Close()
	bobConn := s.DialRelay(bob.token)
	defer bobConn.Close()

	s.SendEvent(aliceConn, event.NameRegisterUser, alice.userID)
	s.SendEvent(bobConn, event.NameRegisterUser, bob.userID)
	s.AwaitPresence(aliceConn, awaitTimeout, alice.userID, bob.userID)
	s.AwaitPresence(bobConn, awaitTimeout, alice.userID, bob.userID)

	s.step("Step 2: a live message reaches the recipient")
	s.SendEvent(aliceConn, event.NameSendMessage, event.SendMessage{
		From: alice.userID, To: bob.userID, Text: "hello from e2e",
	})

	envelope := s.AwaitEvent(bobConn, event.NameReceiveMessage, awaitTimeout)
	var received event.ReceiveMessage
	s.Require().NoError(json.Unmarshal(envelope.Data, &received))
	s.Require().Equal(alice.userID, received.From)
	s.Require().Equal("hello from e2e", received.Text)

	s.step("Step 3: a message to an offline user bounces to the sender")
	s.SendEvent(aliceConn, event.NameSendMessage, event.SendMessage{
		From: alice.userID, To: uuid.NewString(), Text: "anyone?",
	})

	envelope = s.AwaitEvent(aliceConn, event.NameMessageError, awaitTimeout)
	var msgErr event.MessageError
	s.Require().NoError(json.Unmarshal(envelope.Data, &msgErr))
	s.Require().Equal("Recipient not available", msgErr.Error)

	s.step("Step 4: the durable write path stores and serves the history")
	status := s.PostJSON("/api/messages", alice.token, map[string]string{
		"recipient": bob.userID,
		"text":      "stored for later",
	}, nil)
	s.Require().Equal(http.StatusCreated, status)

	var history []domain.Message
	status = s.GetJSON("/api/messages/"+alice.userID, bob.token, &history)
	s.Require().Equal(http.StatusOK, status)
	s.Require().NotEmpty(history)
	s.Require().Equal("stored for later", history[len(history)-1].Text)

	s.step("Step 5: closing a connection shrinks the presence snapshot")
	s.Require().NoError(bobConn.Close())
	// Wait for a snapshot that no longer lists bob
	deadline := time.Now().Add(awaitTimeout)
	for {
		envelope := s.AwaitEvent(aliceConn, event.NameOnlineUsers, time.Until(deadline))
		var users []string
		s.Require().NoError(json.Unmarshal(envelope.Data, &users))
		if !containsAll(users, []string{bob.userID}) {
			return
		}
	}
}
