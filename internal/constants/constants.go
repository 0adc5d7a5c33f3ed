package constants

import "time"

const (
	OpenAIRequestTimeout = 30 * time.Second
	DatabaseTimeout      = 5 * time.Second
	RequestTimeout       = 30 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// One evaluator process per analyzed game, so each instance stays small.
	EngineThreads = 1
	EngineHashMB  = 16
)
