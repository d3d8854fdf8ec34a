package e2e

import (
	"testing"
	"time"

	"chat-relay/runtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type GroupChatSuite struct {
	BaseChatSuite
}

func TestGroupChatSuite(t *testing.T) {
	suite.Run(t, new(GroupChatSuite))
}

func (s *GroupChatSuite) TestTwoUsersShareOneChannel() {
	s.Step("Accounts and channel")
	aliceToken := s.Register("alice")
	bobToken := s.Register("bob")
	s.CreateChannel(aliceToken, "general")

	s.Step("Alice joins and sees her own arrival")
	alice := s.Dial(aliceToken, "general")
	defer alice.Close()
	s.ExpectLine(alice, "alice joined the chat")

	s.Step("Bob joins and both are notified")
	bob := s.Dial(bobToken, "general")
	defer bob.Close()
	s.ExpectLine(bob, "bob joined the chat")
	s.ExpectLine(alice, "bob joined the chat")

	s.Step("A message reaches every member, sender included")
	s.Require().NoError(bob.WriteMessage(websocket.TextMessage, []byte("hello everyone")))
	s.ExpectLine(alice, "bob: hello everyone")
	s.ExpectLine(bob, "bob: hello everyone")

	s.Step("Banned words are masked before fanout")
	s.Require().NoError(alice.WriteMessage(websocket.TextMessage, []byte("stop flooding please")))
	s.ExpectLine(alice, "alice: stop ******** please")
	s.ExpectLine(bob, "alice: stop ******** please")

	s.Step("Keepalive text is invisible to the conversation")
	// Frames are delivered in order, so if "ping" had been broadcast it
	// would arrive before "done".
	s.Require().NoError(bob.WriteMessage(websocket.TextMessage, []byte("ping")))
	s.Require().NoError(bob.WriteMessage(websocket.TextMessage, []byte("done")))
	s.ExpectLine(alice, "bob: done")
	s.ExpectLine(bob, "bob: done")

	s.Step("Bob leaves and the remaining member is notified")
	s.Require().NoError(bob.Close())
	s.ExpectLine(alice, "bob left the chat")

	s.Step("History replays the whole exchange in order")
	var history []struct {
		Username string `json:"username"`
		Content  string `json:"message"`
		System   bool   `json:"system,omitempty"`
	}
	s.GetJSON("/channel/history/general", aliceToken, &history)

	var contents []string
	for _, entry := range history {
		contents = append(contents, entry.Content)
	}
	s.Require().Equal([]string{
		"alice joined the chat",
		"bob joined the chat",
		"hello everyone",
		"stop ******** please",
		"done",
		"bob left the chat",
	}, contents)

	s.Step("Presence reflects who stayed")
	var statuses []struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	s.GetJSON("/channel/presence/general", aliceToken, &statuses)
	s.Require().Len(statuses, 2)

	byUser := map[string]string{}
	for _, status := range statuses {
		byUser[status.Username] = status.Status
	}
	s.Require().Equal("online", byUser["alice"])
	s.Require().Equal("offline", byUser["bob"])
}

type HeartbeatTimeoutSuite struct {
	BaseChatSuite
}

func TestHeartbeatTimeoutSuite(t *testing.T) {
	suite.Run(t, new(HeartbeatTimeoutSuite))
}

func (s *HeartbeatTimeoutSuite) SetupSuite() {
	// Aggressive liveness settings so the timeout is observable in a test
	s.Sessions = runtime.SessionConfig{
		HeartbeatInterval: 100 * time.Millisecond,
		ClientTimeout:     500 * time.Millisecond,
		WriteWait:         time.Second,
		SendBuffer:        16,
	}
	s.BaseChatSuite.SetupSuite()
}

func (s *HeartbeatTimeoutSuite) TestSilentClientIsEvicted() {
	s.Step("A client connects and then goes silent")
	token := s.Register("carol")
	s.CreateChannel(token, "quiet")

	conn := s.Dial(token, "quiet")
	defer conn.Close()
	s.ExpectLine(conn, "carol joined the chat")

	// Not reading means transport pings are never answered, so the server
	// must give up on this session once the timeout elapses.
	time.Sleep(s.Sessions.ClientTimeout + 700*time.Millisecond)

	s.Step("The server has closed the connection")
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readWait)))
	_, _, err := conn.ReadMessage()
	s.Require().Error(err)

	s.Step("The eviction looks like a departure")
	var statuses []struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	s.GetJSON("/channel/presence/quiet", token, &statuses)
	s.Require().Len(statuses, 1)
	s.Require().Equal("offline", statuses[0].Status)

	var history []struct {
		Content string `json:"message"`
		System  bool   `json:"system,omitempty"`
	}
	s.GetJSON("/channel/history/quiet", token, &history)
	s.Require().Len(history, 2)
	s.Require().Equal("carol left the chat", history[1].Content)
	s.Require().True(history[1].System)
}
