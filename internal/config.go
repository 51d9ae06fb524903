package internal

import "time"

type Config struct {
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	DebugPort      int    `env:"DEBUG_PORT,required=true"`

	// MatchResponseTimeout bounds the accept/reject window of a
	// proposed pairing, measured from session creation.
	MatchResponseTimeout time.Duration `env:"MATCH_RESPONSE_TIMEOUT,required=true"`

	CommandBufferSize int           `env:"COMMAND_BUFFER_SIZE,required=true"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,required=true"`
	EventBufferSize   int           `env:"EVENT_BUFFER_SIZE,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
}
