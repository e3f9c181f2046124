// Package app wires the application together: configuration in,
// a ready-to-serve set of components out.
//
// Setup builds the logger, the Ollama client, the optional document
// store, the agent registry, and the conversation memory. The document
// store is optional: an empty postgres_host disables retrieval, and
// every consumer (chat context, search agent, readiness probe) degrades
// accordingly.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent/runner"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/config"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/database"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/knowledge"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/llm"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
)

// App is the application container. Pool and Searcher are nil when
// retrieval is disabled.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Model    *llm.Client
	Memory   *memory.Store
	Registry *agent.Registry
	Pool     *pgxpool.Pool
	Searcher knowledge.Searcher
}

// Setup initializes all components from the configuration.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	model, err := llm.New(llm.Config{
		Host:       cfg.OllamaHost,
		ChatModel:  cfg.ModelName,
		EmbedModel: cfg.EmbedderModel,
		Options: llm.Options{
			Temperature: float64(cfg.Temperature),
			TopP:        float64(cfg.TopP),
		},
		RatePerSecond: cfg.LLMRatePerSecond,
		Burst:         cfg.LLMRateBurst,
		Logger:        logger.With("component", "llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Model:    model,
		Memory:   memory.NewStore(cfg.MaxHistoryTurns),
		Registry: agent.NewRegistry(),
	}

	if cfg.PostgresHost != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connecting to document store: %w", err)
		}
		a.Pool = pool
		a.Searcher = knowledge.NewStore(pool, model, logger.With("component", "knowledge"))
	} else {
		logger.Warn("postgres host not configured, retrieval disabled")
	}

	if err := a.registerAgents(cfg, model, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("registering agents: %w", err)
	}

	return a, nil
}

// registerAgents populates the registry: the process-backed agents
// first, then the in-process ones. The search agent is only available
// when the document store is configured.
func (a *App) registerAgents(cfg *config.Config, model *llm.Client, logger log.Logger) error {
	exec, err := runner.New(runner.Config{
		Interpreter: cfg.Interpreter,
		Modules:     agentModules(cfg.AgentsDir),
		BaseURL:     cfg.AgentBaseURL,
		Logger:      logger.With("component", "runner"),
	})
	if err != nil {
		return fmt.Errorf("creating agent executor: %w", err)
	}

	for _, t := range exec.Types() {
		if err := a.Registry.Register(runner.NewAgent(t, exec)); err != nil {
			return err
		}
	}

	if err := a.Registry.Register(agent.NewSummarizeAgent(model, nil, logger.With("agent", "summarize"))); err != nil {
		return err
	}
	if a.Searcher != nil {
		if err := a.Registry.Register(agent.NewSearchAgent(a.Searcher, model, cfg.RetrievalTopK, logger.With("agent", "search"))); err != nil {
			return err
		}
	}

	logger.Info("agents registered", "types", a.Registry.Types())
	return nil
}

// agentModules maps each process-backed agent type to its module file
// under dir. The file names match the agents/ tree shipped with the
// service.
func agentModules(dir string) map[agent.Type]string {
	return map[agent.Type]string{
		agent.TypeWeather:      filepath.Join(dir, "weather_agent.py"),
		agent.TypeProduct:      filepath.Join(dir, "product_agent.py"),
		agent.TypeStoreLocator: filepath.Join(dir, "store-locator_agent.py"),
	}
}

// Close releases held resources. Safe to call on a partially
// initialized App.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
}
