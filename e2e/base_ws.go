package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"relay-lab/domain/event"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseRelaySuite drives a running server over its public surfaces only:
// the REST account endpoints and the websocket relay.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping e2e suite")
	}
}

func (s *BaseRelaySuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PostJSON sends a JSON body to a REST endpoint and decodes the response into
// out. An empty token skips the Authorization header.
func (s *BaseRelaySuite) PostJSON(path, token string, body, out any) int {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost,
		"http://"+s.Config.RelayAddr+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.T().Logf("POST %s [%d] in %v", path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("REQUEST:\n%s\nRESPONSE:\n%s", payload, raw)
	}

	if out != nil {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// GetJSON fetches an authenticated REST endpoint and decodes the response.
func (s *BaseRelaySuite) GetJSON(path, token string, out any) int {
	req, err := http.NewRequest(http.MethodGet, "http://"+s.Config.RelayAddr+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.T().Logf("GET %s [%d]", path, resp.StatusCode)
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE:\n%s", raw)
	}

	if out != nil {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// DialRelay opens an authenticated websocket session.
func (s *BaseRelaySuite) DialRelay(token string) *websocket.Conn {
	url := "ws://" + s.Config.RelayAddr + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to open a websocket session at "+url)
	return conn
}

// SendEvent writes one client envelope onto the wire.
func (s *BaseRelaySuite) SendEvent(conn *websocket.Conn, eventName string, data any) {
	raw, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(event.Envelope{Event: eventName, Data: raw}))
}

// AwaitEvent reads frames until the named event arrives, failing on timeout.
// Presence snapshots may interleave with other events, so skipping is normal.
func (s *BaseRelaySuite) AwaitEvent(conn *websocket.Conn, eventName string, timeout time.Duration) event.Envelope {
	deadline := time.Now().Add(timeout)
	for {
		s.Require().NoError(conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		s.Require().NoError(err, "Timed out waiting for "+eventName)

		var envelope event.Envelope
		s.Require().NoError(json.Unmarshal(raw, &envelope))
		if envelope.Event == eventName {
			return envelope
		}
		s.T().Logf("skipping %s while waiting for %s", envelope.Event, eventName)
	}
}

// AwaitPresence reads online-users snapshots until one contains every wanted
// identity. Snapshots are cumulative, so only the latest one matters.
func (s *BaseRelaySuite) AwaitPresence(conn *websocket.Conn, timeout time.Duration, wanted ...string) {
	deadline := time.Now().Add(timeout)
	for {
		envelope := s.AwaitEvent(conn, event.NameOnlineUsers, time.Until(deadline))
		var users []string
		s.Require().NoError(json.Unmarshal(envelope.Data, &users))
		if containsAll(users, wanted) {
			return
		}
	}
}

func containsAll(haystack, needles []string) bool {
	joined := "|" + strings.Join(haystack, "|") + "|"
	for _, needle := range needles {
		if !strings.Contains(joined, "|"+needle+"|") {
			return false
		}
	}
	return true
}
