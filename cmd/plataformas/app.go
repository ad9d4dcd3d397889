package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/ai"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/config/file"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/extraction/pdf"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/telemetry"
	"github.com/custodia-labs/plataformas/internal/adapters/driving/cli"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/services"
	"github.com/custodia-labs/plataformas/internal/logger"
	"github.com/custodia-labs/plataformas/internal/postprocessors/chunker"
)

const shutdownTimeout = 5 * time.Second

func run(ctx context.Context) error {
	return cli.Execute(ctx, version, bootstrap)
}

// envOverrides maps environment variables onto settings. Values only
// apply for this process and are never written to the config file.
var envOverrides = []struct {
	name  string
	apply func(s *domain.AppSettings, v string)
}{
	{"OPENAI_API_KEY", func(s *domain.AppSettings, v string) { setKey(s, domain.AIProviderOpenAI, v) }},
	{"ANTHROPIC_API_KEY", func(s *domain.AppSettings, v string) { setKey(s, domain.AIProviderAnthropic, v) }},
	{"GEMINI_API_KEY", func(s *domain.AppSettings, v string) { setKey(s, domain.AIProviderGemini, v) }},
	{"DATABASE_URL", func(s *domain.AppSettings, v string) { s.Vector.PostgresURL = v }},
	{"REDIS_URL", func(s *domain.AppSettings, v string) { s.Cache.RedisURL = v }},
	{"OTEL_EXPORTER_OTLP_ENDPOINT", func(s *domain.AppSettings, v string) { s.Telemetry.OTLPEndpoint = v }},
}

// setKey fills the API key of whichever service uses provider, unless the
// config file already set one.
func setKey(s *domain.AppSettings, provider domain.AIProvider, key string) {
	if s.Embedding.Provider == provider && s.Embedding.APIKey == "" {
		s.Embedding.APIKey = key
	}
	if s.LLM.Provider == provider && s.LLM.APIKey == "" {
		s.LLM.APIKey = key
	}
}

func applyEnv(s *domain.AppSettings, lookup func(string) (string, bool)) {
	for _, o := range envOverrides {
		if v, ok := lookup(o.name); ok && v != "" {
			o.apply(s, v)
		}
	}
}

// loadEnvFile loads a dotenv file. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// closers runs cleanup functions in reverse order.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

//nolint:gocyclo // Composition root wiring every adapter in sequence
func bootstrap(ctx context.Context, opts cli.Options) (_ *cli.Services, _ func(), err error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, nil, err
	}

	var done closers
	defer func() {
		if err != nil {
			done.run()
		}
	}()

	dir, err := file.DefaultDir()
	if err != nil {
		return nil, nil, fmt.Errorf("config directory: %w", err)
	}
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	applyEnv(settings, os.LookupEnv)
	// Left running so settings set can repair the file.
	if err := settings.Validate(); err != nil {
		logger.Warn("Invalid settings: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName: "plataformas",
		Version:     version,
		Endpoint:    settings.Telemetry.OTLPEndpoint,
		SampleRatio: settings.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("Tracing disabled: %v", err)
	} else {
		done.add(func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracer(sctx); err != nil {
				logger.Debug("tracer shutdown: %v", err)
			}
		})
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	store, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	done.add(func() { _ = store.Close() })

	var embeddings driven.EmbeddingStore = store.EmbeddingStore()
	if settings.Vector.Backend == domain.VectorBackendPgvector {
		pg, err := pgvector.NewStore(ctx, settings.Vector.PostgresURL, pgvector.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("open pgvector: %w", err)
		}
		done.add(func() { _ = pg.Close() })
		embeddings = pg
	}

	aiServices := ai.Init(settings, false)
	done.add(aiServices.Close)
	for _, w := range aiServices.Warnings {
		logger.Debug("%s", w)
	}

	extractor := pdf.New()
	done.add(func() { _ = extractor.Close() })

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"), services.DefaultPrompts())
	if err != nil {
		return nil, nil, fmt.Errorf("prompt store: %w", err)
	}

	corpus := services.NewCorpusService(store.PartyStore(), store.DocumentStore(), store.PageTextStore(), extractor)
	categories := services.NewCategoryService(store.CategoryStore())

	indexer := services.NewIndexer(
		store.DocumentStore(),
		store.PageTextStore(),
		embeddings,
		aiServices.EmbeddingService,
		chunker.New(
			chunker.WithTargetSize(settings.Chunker.TargetSize),
			chunker.WithOverlap(settings.Chunker.Overlap),
		),
		settings.Pricing,
	)
	indexer.SetMetrics(metrics)

	retriever := services.NewRetriever(embeddings, aiServices.EmbeddingService, settings.Retrieval.TopK)
	if settings.Cache.RedisURL != "" {
		cache, err := redis.New(ctx, settings.Cache.RedisURL, settings.Cache.TTL)
		if err != nil {
			logger.Warn("Query cache disabled: %v", err)
		} else {
			done.add(func() { _ = cache.Close() })
			retriever.SetCache(cache)
		}
	}

	synthesizer := services.NewSynthesizer(
		aiServices.LLMService,
		settings.Pricing,
		services.SynthesizerConfigFrom(settings.Synthesis),
	)
	synthesizer.SetPromptStore(prompts)

	orchestrator := services.NewOrchestrator(
		store.DocumentStore(),
		store.PartyStore(),
		store.CategoryStore(),
		store.ProcessingLogStore(),
		corpus,
		indexer,
		retriever,
		synthesizer,
		services.NewTracker(store.StatusStore(), settings.Pipeline.KeepHistory),
		settings.Pricing,
		services.OrchestratorConfig{
			TopK:    settings.Retrieval.TopK,
			Workers: settings.Pipeline.Workers,
			Model:   settings.LLM.Model,
		},
	)
	orchestrator.SetMetrics(metrics)

	reports := services.NewReportService(
		store.PartyStore(),
		store.DocumentStore(),
		store.CategoryStore(),
		store.PositionStore(),
		store.StatusStore(),
		embeddings,
		store.ProcessingLogStore(),
	)

	return &cli.Services{
		Corpus:     corpus,
		Categories: categories,
		Reports:    reports,
		Pipeline:   orchestrator,
		Index:      indexer,
		Retrieval:  retriever,
		Settings:   settingsService,
		Paths: cli.Paths{
			ConfigFile: filepath.Join(dir, "config.toml"),
			Database:   store.Path(),
			Prompts:    filepath.Join(dir, "prompts"),
		},
	}, done.run, nil
}
