package internal

import (
	"fmt"
	"time"

	"collab-chat/ws"
)

type Config struct {
	Host              string        `env:"HOST,required=true"`
	Port              int           `env:"PORT,required=true"`
	DebugPort         int           `env:"DEBUG_PORT,default=6060"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=15s"`

	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
	WriteWait      time.Duration `env:"WRITE_WAIT,default=10s"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=54s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
}

// WebSocket returns the transport timings derived from the environment.
func (c Config) WebSocket() ws.Config {
	return ws.Config{
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		PingInterval:   c.PingInterval,
		MaxMessageSize: c.MaxMessageSize,
		SendBuffer:     c.SendBufferSize,
	}
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
