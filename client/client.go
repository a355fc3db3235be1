package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-chat/domain/event"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress  string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	ConversationID string `env:"CHAT_CONVERSATION_ID,default=general"`
	Token          string `env:"CHAT_TOKEN,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run handles the WebSocket client lifecycle: configuration loading, the
// receive loop, and a stdin loop that turns typed lines into new_message
// events.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to the conversation endpoint.
	url := fmt.Sprintf("ws://%s/ws/%s?token=%s",
		config.ServerAddress, config.ConversationID, config.Token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s! Listening conversation %s (Ctrl+C to quit)...",
		config.ServerAddress, config.ConversationID))

	// 4. Stdin loop: each line becomes a message.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			payload, err := json.Marshal(map[string]any{
				"type": event.TypeNewMessage,
				"data": map[string]string{"text": line},
			})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Error("Failed to send message", "error", err)
				return
			}
		}
	}()

	// 5. Receive loop, until the context is canceled or the server closes.
	done := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}

			var evt event.Outbound
			if err := json.Unmarshal(raw, &evt); err != nil {
				log.Warn("Skipping unreadable frame", "error", err)
				continue
			}
			printEvent(log, evt)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case err := <-done:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection error: %w", err)
	}
}

func printEvent(log interface{ Info(string, ...any) }, evt event.Outbound) {
	at := evt.Timestamp.Format(time.TimeOnly)
	switch evt.Type {
	case event.TypeNewMessage:
		var body struct {
			Text    string `json:"text"`
			Content string `json:"content"`
		}
		_ = json.Unmarshal(evt.Data, &body)
		text := body.Text
		if text == "" {
			text = body.Content
		}
		log.Info(fmt.Sprintf("[%s] message: %s", at, text))
	case event.TypeTypingIndicator:
		if evt.IsTyping != nil && *evt.IsTyping {
			log.Info(fmt.Sprintf("[%s] %s is typing...", at, evt.UserID))
		}
	case event.TypeUserOnline:
		log.Info(fmt.Sprintf("[%s] %s is online", at, evt.UserID))
	case event.TypeUserOffline:
		log.Info(fmt.Sprintf("[%s] %s went offline", at, evt.UserID))
	case event.TypeError:
		log.Info(fmt.Sprintf("[%s] server error: %s", at, evt.Message))
	default:
		log.Info(fmt.Sprintf("[%s] %s", at, evt.Type))
	}
}
