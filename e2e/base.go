package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	"chat-relay/auth"
	chathttp "chat-relay/infrastructure/http"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const readWait = 2 * time.Second

// BaseChatSuite boots the whole stack in-process: badger, sqlite, the chi
// router and the websocket endpoint, all on a throwaway data directory.
type BaseChatSuite struct {
	suite.Suite
	Config   Config
	Sessions runtime.SessionConfig

	server   *httptest.Server
	db       *badger.DB
	metadata *repositories.MetadataStore
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Sessions == (runtime.SessionConfig{}) {
		s.Sessions = runtime.DefaultSessionConfig()
	}

	log := slog.Default()
	dataDir := s.T().TempDir()

	s.db, err = badger.Open(badger.DefaultOptions(filepath.Join(dataDir, "badger")).WithLogger(nil))
	s.Require().NoError(err)

	s.metadata, err = repositories.OpenMetadataStore(filepath.Join(dataDir, "metadata.db"))
	s.Require().NoError(err)

	moderator, err := moderation.NewModerator([]string{"flooding"}, '*', log)
	s.Require().NoError(err)

	issuer := auth.NewTokenIssuer("e2e-secret", time.Hour)
	registry := runtime.NewRegistry(log)
	messages := repositories.NewMessageRepository(s.db, nil, log)
	presence := repositories.NewPresenceRepository(s.db)

	authService := services.NewAuthService(s.metadata, issuer)
	channelService := services.NewChannelService(s.metadata)
	chatService := services.NewChatService(registry, messages, presence, moderator, log)

	server := chathttp.NewServer(authService, channelService, chatService, s.Sessions, log)
	s.server = httptest.NewServer(server.Router(chathttp.NewAuthMiddleware(issuer)))
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.metadata != nil {
		_ = s.metadata.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Step prints a colorized header so suite logs read as a scenario script.
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Register creates an account and returns its token.
func (s *BaseChatSuite) Register(username string) string {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": "ComplexPass123!",
	})
	s.Require().NoError(err)

	resp, err := http.Post(s.server.URL+"/user/register", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var token struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&token))
	return token.Token
}

// CreateChannel creates a channel on behalf of the token's owner.
func (s *BaseChatSuite) CreateChannel(token, name string) {
	body, err := json.Marshal(map[string]string{"name": name})
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/channel/create", bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
}

// Dial opens a websocket session on a channel.
func (s *BaseChatSuite) Dial(token, channel string) *websocket.Conn {
	wsURL := strings.Replace(s.server.URL, "http://", "ws://", 1)
	conn, _, err := websocket.DefaultDialer.Dial(
		fmt.Sprintf("%s/ws/%s?token=%s", wsURL, channel, token), nil)
	s.Require().NoError(err)
	return conn
}

// ExpectLine reads one frame and asserts its text.
func (s *BaseChatSuite) ExpectLine(conn *websocket.Conn, want string) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readWait)))
	_, payload, err := conn.ReadMessage()
	s.Require().NoError(err)
	if s.Config.DebugFrames {
		s.T().Logf("FRAME: %s", payload)
	}
	s.Require().Equal(want, string(payload))
}

// ExpectSilence asserts that nothing arrives within the window.
func (s *BaseChatSuite) ExpectSilence(conn *websocket.Conn, window time.Duration) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(window)))
	_, payload, err := conn.ReadMessage()
	s.Require().Error(err, "expected no frame, got %q", payload)
	s.Require().True(strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "deadline"), "unexpected error: %v", err)
}

// GetJSON fetches an authenticated endpoint into out.
func (s *BaseChatSuite) GetJSON(path, token string, out any) {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}
