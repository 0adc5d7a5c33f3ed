package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	StockfishPath     string
	StockfishDepth    int
	StockfishMoveTime time.Duration

	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBatchSize int

	MistakeThreshold  int
	MaxPGNsPerRequest int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "caissa.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StockfishPath:     getEnv("STOCKFISH_PATH", "/usr/games/stockfish"),
		StockfishDepth:    getEnvInt("STOCKFISH_DEPTH", 20),
		StockfishMoveTime: time.Duration(getEnvInt("STOCKFISH_MOVE_TIME_MS", 100)) * time.Millisecond,
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBatchSize:   getEnvInt("OPENAI_BATCH_SIZE", 10),
		MistakeThreshold:  getEnvInt("MISTAKE_THRESHOLD", 100),
		MaxPGNsPerRequest: getEnvInt("MAX_PGNS_PER_REQUEST", 100),
	}

	if cfg.StockfishPath == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required")
	}
	if cfg.StockfishDepth <= 0 {
		return nil, fmt.Errorf("STOCKFISH_DEPTH must be positive")
	}
	if cfg.OpenAIBatchSize <= 0 {
		return nil, fmt.Errorf("OPENAI_BATCH_SIZE must be positive")
	}
	if cfg.MistakeThreshold <= 0 {
		return nil, fmt.Errorf("MISTAKE_THRESHOLD must be positive")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("stockfish_path", cfg.StockfishPath).
		Int("stockfish_depth", cfg.StockfishDepth).
		Dur("stockfish_move_time", cfg.StockfishMoveTime).
		Str("openai_model", cfg.OpenAIModel).
		Int("openai_batch_size", cfg.OpenAIBatchSize).
		Bool("openai_configured", cfg.OpenAIAPIKey != "").
		Int("mistake_threshold", cfg.MistakeThreshold).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
