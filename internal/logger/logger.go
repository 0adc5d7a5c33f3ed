package logger

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func New() zerolog.Logger {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(zerolog.InfoLevel)

	return SetLevel(logger, os.Getenv("LOG_LEVEL"))
}

func SetLevel(logger zerolog.Logger, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return logger
	}
	return logger.Level(parsed)
}
