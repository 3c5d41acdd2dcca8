package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/FreiFahren/nlp-service/internal/agent"
	"github.com/FreiFahren/nlp-service/internal/api"
	"github.com/FreiFahren/nlp-service/internal/bot"
	"github.com/FreiFahren/nlp-service/internal/cache"
	"github.com/FreiFahren/nlp-service/internal/catalog"
	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/ner"
	"github.com/FreiFahren/nlp-service/internal/nlp"
	"github.com/FreiFahren/nlp-service/internal/risk"
	"github.com/FreiFahren/nlp-service/internal/topology"
)

const messageTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Timestamp().Logger()
	if os.Getenv("ENVIRONMENT") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if level, err := zerolog.ParseLevel(raw); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}

	cfg, err := models.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize sentry")
		}
		defer sentry.Flush(5 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lookupCache, err := buildCache(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer lookupCache.Close()

	backend := catalog.NewClient(cfg.BackendURL, cfg.ReportPassword, lookupCache)

	topo, err := buildTopology(ctx, cfg, backend)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load topology")
	}

	tagger := buildTagger(cfg, topo)

	extractor := nlp.NewExtractor(topo, tagger, cfg.FuzzyThreshold)
	verifier := nlp.NewVerifier(topo, extractor)
	pipeline := agent.New(extractor, verifier, backend, messageTimeout)
	engine := risk.NewEngine(topo.Segments(), risk.DefaultParams())

	chatBot, err := bot.New(cfg.BotToken, cfg.MiniAppURL, cfg.WorkerPoolSize, func(ctx context.Context, receivedAt time.Time, text string) {
		if err := pipeline.ProcessMessage(ctx, receivedAt, text); err != nil {
			log.Error().Err(err).Msg("message processing failed")
			sentry.CaptureException(err)
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start telegram bot")
	}

	notifier := bot.NewNotifier(chatBot.API(), cfg.ChatID, cfg.RateLimit)
	server := api.NewServer(cfg.HTTPAddr, notifier, backend, engine, cfg.ReportPassword, cfg.RestartPassword, func() {
		// The supervisor restarts the process; draining happens below.
		log.Warn().Msg("restarting on request")
		cancel()
	})

	errChan := make(chan error, 2)
	go func() {
		if err := chatBot.Run(ctx); err != nil {
			errChan <- fmt.Errorf("bot loop: %w", err)
		}
	}()
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	log.Info().Str("address", cfg.HTTPAddr).Msg("service started")

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("server error, shutting down")
		sentry.CaptureException(err)
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}
	log.Info().Msg("shutdown completed")
}

// buildCache picks redis when configured, an in-process cache otherwise.
func buildCache(ctx context.Context, cfg models.Config) (*cache.Cache, error) {
	if cfg.RedisURL != "" {
		conn, err := cache.NewRedisConnector(ctx, cfg.RedisURL, cache.StationSearchTTL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("using redis lookup cache")
		return cache.New(conn, "nlp"), nil
	}
	conn, err := cache.NewMemoryConnector(cache.StationSearchTTL)
	if err != nil {
		return nil, err
	}
	return cache.New(conn, "nlp"), nil
}

// buildTopology prefers the live backend tables and falls back to the static
// data directory, so the service comes up even when the backend is down.
func buildTopology(ctx context.Context, cfg models.Config, backend *catalog.Client) (*topology.Topology, error) {
	var synonyms map[string][]string
	if err := readSynonyms(cfg.DataDir, &synonyms); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	topo, err := backend.FetchTopology(fetchCtx, synonyms, cfg.RingLines)
	if err == nil {
		if segments, segErr := topology.LoadSegments(cfg.DataDir); segErr == nil {
			if err := topo.SetSegments(segments); err != nil {
				return nil, err
			}
		}
		log.Info().Msg("topology loaded from backend")
		return topo, nil
	}

	log.Warn().Err(err).Msg("backend topology unavailable, using static data")
	return topology.LoadFromFiles(cfg.DataDir, cfg.RingLines)
}

func readSynonyms(dataDir string, dest *map[string][]string) error {
	data, err := os.ReadFile(filepath.Join(dataDir, "synonyms.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading synonyms: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing synonyms: %w", err)
	}
	return nil
}

// buildTagger picks the best available span extractor: the dedicated NER
// service, then an LLM, then the offline lexicon heuristic.
func buildTagger(cfg models.Config, topo *topology.Topology) ner.Tagger {
	if cfg.NERServiceURL != "" {
		log.Info().Msg("using remote NER tagger")
		return ner.NewRemoteTagger(cfg.NERServiceURL)
	}
	if cfg.OpenAIKey != "" {
		llm, err := openai.New(openai.WithToken(cfg.OpenAIKey))
		if err == nil {
			log.Info().Msg("using LLM tagger")
			return ner.NewLLMTagger(llm)
		}
		log.Warn().Err(err).Msg("LLM tagger unavailable")
	}
	log.Info().Msg("using lexicon tagger")
	return ner.NewLexiconTagger(topo.Lines())
}
