package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-provided settings. Static topology data and
// the NER model are the only other startup inputs; everything else is here.
type Config struct {
	BackendURL      string
	BotToken        string
	ChatID          int64
	ReportPassword  string
	RestartPassword string
	SentryDSN       string
	MiniAppURL      string
	NERServiceURL   string
	OpenAIKey       string
	RedisURL        string
	DataDir         string
	HTTPAddr        string

	RateLimit      time.Duration
	FuzzyThreshold int
	RingLines      []string
	WorkerPoolSize int
}

// LoadConfig reads configuration from environment variables, applying the
// documented defaults. BACKEND_URL and NLP_BOT_TOKEN are required unless the
// process is started in an offline mode (flags decide that, not this loader).
func LoadConfig() (Config, error) {
	cfg := Config{
		BackendURL:      strings.TrimSuffix(os.Getenv("BACKEND_URL"), "/"),
		BotToken:        os.Getenv("NLP_BOT_TOKEN"),
		ReportPassword:  os.Getenv("REPORT_PASSWORD"),
		RestartPassword: os.Getenv("RESTART_PASSWORD"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		MiniAppURL:      os.Getenv("MINI_APP_URL"),
		NERServiceURL:   os.Getenv("NER_SERVICE_URL"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DataDir:         envOr("DATA_DIR", "data"),
		HTTPAddr:        envOr("HTTP_ADDR", ":6000"),
		RateLimit:       5 * time.Minute,
		FuzzyThreshold:  75,
		RingLines:       []string{"S41", "S42"},
		WorkerPoolSize:  8,
	}

	if raw := os.Getenv("FREIFAHREN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FREIFAHREN_CHAT_ID %q: %w", raw, err)
		}
		cfg.ChatID = id
	}

	if raw := os.Getenv("RATE_LIMIT_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid RATE_LIMIT_MINUTES %q: %w", raw, err)
		}
		cfg.RateLimit = time.Duration(minutes) * time.Minute
	}

	if raw := os.Getenv("FUZZY_MATCH_THRESHOLD"); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid FUZZY_MATCH_THRESHOLD %q: %w", raw, err)
		}
		cfg.FuzzyThreshold = threshold
	}

	if raw := os.Getenv("RING_LINES"); raw != "" {
		cfg.RingLines = nil
		for _, line := range strings.Split(raw, ",") {
			if line = strings.TrimSpace(line); line != "" {
				cfg.RingLines = append(cfg.RingLines, line)
			}
		}
	}

	if raw := os.Getenv("WORKER_POOL_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return cfg, fmt.Errorf("invalid WORKER_POOL_SIZE %q", raw)
		}
		cfg.WorkerPoolSize = size
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
