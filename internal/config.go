package internal

import "time"

type Config struct {
	Port                 int           `env:"PORT,default=5000"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthSigningKey       string        `env:"AUTH_SIGNING_KEY"`
	LimitMessages        int           `env:"LIMIT_MESSAGES,default=100"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
}
