package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	SearchLimit          int           `env:"SEARCH_LIMIT,default=20"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	FanoutBufferSize     int           `env:"FANOUT_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=5s"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	// Archival policy: a chat becomes eligible above SweepThreshold live
	// messages; only messages older than RetentionWindow are candidates and
	// the newest KeepRecent of those always stay in the live store.
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1h"`
	RetentionWindow time.Duration `env:"RETENTION_WINDOW,default=168h"`
	SweepThreshold  int           `env:"SWEEP_THRESHOLD,default=50"`
	KeepRecent      int           `env:"KEEP_RECENT,default=20"`
}
