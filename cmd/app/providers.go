package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ringsaturn/tzf"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-travel-planner/internal/domain/agent"
	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
	"github.com/yanqian/ai-travel-planner/internal/domain/policy"
	"github.com/yanqian/ai-travel-planner/internal/infra/airquality/googleaq"
	"github.com/yanqian/ai-travel-planner/internal/infra/attractions"
	"github.com/yanqian/ai-travel-planner/internal/infra/config"
	"github.com/yanqian/ai-travel-planner/internal/infra/docstore"
	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-travel-planner/internal/infra/llm/tokens"
	"github.com/yanqian/ai-travel-planner/internal/infra/places/googlemaps"
	"github.com/yanqian/ai-travel-planner/internal/infra/render/pdf"
	"github.com/yanqian/ai-travel-planner/internal/infra/sessionstore"
	"github.com/yanqian/ai-travel-planner/internal/infra/sessiontoken"
	"github.com/yanqian/ai-travel-planner/internal/infra/upstream"
	"github.com/yanqian/ai-travel-planner/internal/infra/weather/openmeteo"
)

const upstreamTimeout = 20 * time.Second

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) *tokens.Counter {
	return tokens.NewCounter(cfg.LLM.Model, logger)
}

func providePolicyGuard(cfg *config.Config) *policy.Guard {
	return policy.NewGuard(policy.Config{
		BlockedDestinations: cfg.Policy.BlockedDestinations,
		AllowedRegions:      cfg.Policy.AllowedRegions,
	})
}

func newUpstream(name string, logger *slog.Logger) *upstream.Client {
	return upstream.NewClient(name, &http.Client{Timeout: upstreamTimeout}, logger)
}

func provideForecastClient(cfg *config.Config, logger *slog.Logger) *openmeteo.Client {
	return openmeteo.NewClient(openmeteo.Config{
		BaseURL:     cfg.Weather.BaseURL,
		WindowHours: cfg.Weather.WindowHours,
	}, newUpstream("open-meteo", logger))
}

func provideAirQualityClient(cfg *config.Config, logger *slog.Logger) *googleaq.Client {
	return googleaq.NewClient(googleaq.Config{
		BaseURL: cfg.AirQuality.BaseURL,
		APIKey:  cfg.Maps.APIKey,
	}, newUpstream("air-quality", logger), logger)
}

func providePlacesClient(cfg *config.Config, logger *slog.Logger) (*googlemaps.Client, error) {
	var zones googlemaps.TimezoneFinder
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		logger.Error("timezone finder unavailable, city timezones will be empty", "error", err)
	} else {
		zones = finder
	}
	return googlemaps.NewClient(googlemaps.Config{
		APIKey:    cfg.Maps.APIKey,
		Language:  cfg.Maps.Language,
		CacheSize: cfg.Maps.CacheSize,
	}, newUpstream("google-places", logger), zones, logger)
}

func provideAttractionSuggester(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) *attractions.Suggester {
	return attractions.NewSuggester(attractions.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.Agent.AttractionsTemperature,
	}, client, logger)
}

func provideToolbox(
	cfg *config.Config,
	guard *policy.Guard,
	places *googlemaps.Client,
	forecast *openmeteo.Client,
	airQuality *googleaq.Client,
	suggester *attractions.Suggester,
	logger *slog.Logger,
) *agent.Toolbox {
	return agent.NewToolbox(
		agent.ToolboxConfig{BadAQIThreshold: cfg.AirQuality.BadAQIThreshold},
		guard, places, forecast, airQuality, suggester, logger,
	)
}

func provideOrchestrator(cfg *config.Config, client *chatgpt.Client, dispatcher *agent.Dispatcher, counter *tokens.Counter, logger *slog.Logger) *agent.Orchestrator {
	return agent.NewOrchestrator(agent.Config{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxIterations: cfg.Agent.MaxIterations,
		Timeout:       cfg.Agent.Timeout,
		SystemPrompt:  planner.SystemMessage,
	}, client, dispatcher, counter, logger)
}

func providePlannerConfig(cfg *config.Config) planner.Config {
	return planner.Config{
		SessionTTL: cfg.Session.TTL,
		Location:   cfg.Session.Location(),
	}
}

func provideRenderer(cfg *config.Config, logger *slog.Logger) *pdf.Renderer {
	return pdf.NewRenderer(pdf.Config{FontPath: cfg.Documents.FontPath}, logger)
}

func provideSessionIssuer(cfg *config.Config) (*sessiontoken.Issuer, error) {
	return sessiontoken.NewIssuer(cfg.Session.TokenSecret)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) planner.SessionStore {
	fallback := func() planner.SessionStore {
		return sessionstore.NewMemoryStore(10 * time.Minute)
	}
	if !cfg.Session.Valkey.Enabled {
		logger.Info("valkey disabled, using memory session store")
		return fallback()
	}
	opt, err := buildValkeyOptions(cfg.Session.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return fallback()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return fallback()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return fallback()
	}
	logger.Info("valkey session store enabled", "addr", cfg.Session.Valkey.Addr)
	return sessionstore.NewValkeyStore(client, "planner")
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideDocumentStore(cfg *config.Config, logger *slog.Logger) planner.DocumentStore {
	r2 := cfg.Documents.R2
	if !r2.Enabled {
		logger.Info("r2 disabled, using memory document store")
		return docstore.NewMemoryStore()
	}
	store, err := docstore.NewR2Store(docstore.R2Config{
		Endpoint:  r2.Endpoint,
		AccessKey: r2.AccessKey,
		SecretKey: r2.SecretKey,
		Bucket:    r2.Bucket,
		Region:    r2.Region,
	}, logger)
	if err != nil {
		logger.Error("failed to init r2 document store, using memory", "error", err)
		return docstore.NewMemoryStore()
	}
	logger.Info("r2 document store enabled", "bucket", r2.Bucket)
	return store
}

func provideDocumentSweeper(cfg *config.Config, store planner.DocumentStore, logger *slog.Logger) *docstore.Sweeper {
	var target docstore.Sweepable
	if sweepable, ok := store.(docstore.Sweepable); ok {
		target = sweepable
	}
	return docstore.NewSweeper(target, cfg.Documents.SweepInterval, logger)
}
