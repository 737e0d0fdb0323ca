//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ai-travel-planner/internal/bootstrap"
	"github.com/yanqian/ai-travel-planner/internal/domain/agent"
	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
	"github.com/yanqian/ai-travel-planner/internal/domain/policy"
	"github.com/yanqian/ai-travel-planner/internal/infra/config"
	"github.com/yanqian/ai-travel-planner/internal/infra/render/pdf"
	"github.com/yanqian/ai-travel-planner/internal/infra/sessiontoken"
	httpiface "github.com/yanqian/ai-travel-planner/internal/interface/http"
	"github.com/yanqian/ai-travel-planner/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatGPTClient,
		provideTokenCounter,
		providePolicyGuard,
		provideForecastClient,
		provideAirQualityClient,
		providePlacesClient,
		provideAttractionSuggester,
		provideToolbox,
		provideOrchestrator,
		providePlannerConfig,
		provideSessionIssuer,
		provideSessionStore,
		provideDocumentStore,
		provideDocumentSweeper,
		agent.NewDispatcher,
		provideRenderer,
		planner.NewService,
		wire.Bind(new(agent.Tools), new(*agent.Toolbox)),
		wire.Bind(new(planner.Agent), new(*agent.Orchestrator)),
		wire.Bind(new(planner.Renderer), new(*pdf.Renderer)),
		wire.Bind(new(planner.Guard), new(*policy.Guard)),
		wire.Bind(new(httpiface.SessionTokens), new(*sessiontoken.Issuer)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
