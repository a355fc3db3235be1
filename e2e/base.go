package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseSuite carries the shared HTTP/WebSocket plumbing for the scenario
// suites. Tests are skipped unless SERVER_ADDR points to a running server.
type BaseSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping end-to-end suite")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header so the scenario reads like a script in logs
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Call performs a JSON request against the server and decodes the response
// into out (when non-nil). It returns the HTTP status code.
func (s *BaseSuite) Call(method, path, token string, body any, out any) int {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}

	url := "http://" + s.Config.ServerAddr + path
	req, err := http.NewRequest(method, url, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nRESPONSE:")
		fmt.Fprintln(&logBuilder, string(raw))
	}
	s.T().Log(logBuilder.String())

	if out != nil && len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// Dial opens a live connection to a conversation with the given token.
func (s *BaseSuite) Dial(conversationID, token string) *websocket.Conn {
	url := fmt.Sprintf("ws://%s/ws/%s?token=%s", s.Config.ServerAddr, conversationID, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to open WebSocket connection to "+url)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadFrame reads the next frame with a deadline and decodes the envelope.
func (s *BaseSuite) ReadFrame(conn *websocket.Conn, timeout time.Duration) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)

	if s.Config.DebugJSON {
		s.T().Log("WS FRAME:", string(raw))
	}

	var frame map[string]any
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}
