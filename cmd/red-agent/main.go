// Command red-agent runs the automated player: it connects to the
// emulator sidecar, decodes game state each cycle, asks the configured
// decision provider what to do, and applies the answer — while serving
// a live status feed for the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/actions"
	"github.com/MJE43/red-agent-go/internal/agent"
	"github.com/MJE43/red-agent-go/internal/api"
	"github.com/MJE43/red-agent-go/internal/config"
	"github.com/MJE43/red-agent-go/internal/decision"
	"github.com/MJE43/red-agent-go/internal/emu"
	"github.com/MJE43/red-agent-go/internal/explore"
	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/goals"
	"github.com/MJE43/red-agent-go/internal/history"
	"github.com/MJE43/red-agent-go/internal/progress"
	"github.com/MJE43/red-agent-go/internal/provider"
	"github.com/MJE43/red-agent-go/internal/secrets"
	"github.com/MJE43/red-agent-go/internal/store"
	"github.com/MJE43/red-agent-go/internal/stuck"
)

func main() {
	var (
		configPath  = flag.String("config", "config.json", "Path to the configuration file")
		apiPort     = flag.Int("port", 0, "Status server port (overrides config)")
		storePath   = flag.String("store", "", "SQLite state path (overrides config)")
		emulatorURL = flag.String("emulator", "", "Emulator sidecar base URL (overrides config)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	if err := run(logger, *configPath, *apiPort, *storePath, *emulatorURL); err != nil {
		logger.Fatal().Err(err).Msg("agent failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(logger zerolog.Logger, configPath string, apiPort int, storePath, emulatorURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if apiPort != 0 {
		cfg.API.Port = apiPort
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if emulatorURL != "" {
		cfg.Emulator.BaseURL = emulatorURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addrMap, err := gamestate.LoadAddressMap(cfg.AddressMapPath)
	if err != nil {
		return err
	}

	device := emu.NewBridge(emu.BridgeConfig{BaseURL: cfg.Emulator.BaseURL}, logger)
	defer device.Close()

	prov, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	summarizer, ok := prov.(history.Summarizer)
	if !ok {
		return fmt.Errorf("provider %q cannot summarize", cfg.Provider.Kind)
	}

	var db *store.Store
	if cfg.StorePath != "" {
		db, err = store.New(cfg.StorePath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	coord := decision.New(decision.Config{}, prov, logger)
	defer coord.Stop()

	pub := api.NewPublisher(logger)

	runner := agent.NewRunner(agent.Config{
		DecisionDeadline: cfg.DecisionDeadline(),
		PollInterval:     cfg.PollInterval(),
		PollTickFrames:   cfg.Loop.PollTickFrames,
		TurnTickFrames:   cfg.Loop.TurnTickFrames,
		CheckpointEvery:  cfg.Loop.CheckpointEvery,
		ExploreRadius:    cfg.Loop.ExploreRadius,
	}, agent.Deps{
		Device:     device,
		Decoder:    gamestate.NewDecoder(device, addrMap, logger),
		Explorer:   explore.NewTracker(explore.Config{TotalTilesFloor: cfg.Exploration.TotalTilesFloor}, logger),
		History:    history.New(history.Config{MaxTurns: cfg.History.MaxTurns, KeepRecent: cfg.History.KeepRecent}, logger),
		Summarizer: summarizer,
		Stuck:      stuck.New(stuck.Config{Threshold: cfg.Stuck.Threshold}, logger),
		Coord:      coord,
		Executor: actions.NewExecutor(actions.Config{
			PressFrames:  cfg.Actions.PressFrames,
			WaitFrames:   cfg.Actions.WaitFrames,
			SettleFrames: cfg.Actions.SettleFrames,
		}, device, logger),
		Goals:     goals.NewLedger(logger),
		Progress:  progress.NewTracker(logger),
		Store:     db,
		Publisher: pub,
	}, logger)

	server := api.NewServer(pub, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("status server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("status server failed")
		}
	}()

	runner.Restore()
	err = runner.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Msg("status server shutdown failed")
	}

	return err
}

// buildProvider selects the decision provider implementation. The API
// key comes from the environment when set, otherwise from the OS
// keyring.
func buildProvider(ctx context.Context, cfg config.Config, logger zerolog.Logger) (provider.Provider, error) {
	apiKey := os.Getenv("RED_AGENT_API_KEY")
	if apiKey == "" {
		secretStore := secrets.NewStore(cfg.Secrets.Service, cfg.Secrets.FallbackPath)
		key, err := secretStore.ProviderAPIKey()
		if err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return nil, err
		}
		apiKey = key
	}

	switch cfg.Provider.Kind {
	case "http":
		if cfg.Provider.BaseURL == "" {
			return nil, fmt.Errorf("provider.base_url is required for the http provider")
		}
		return provider.NewHTTP(provider.HTTPConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  apiKey,
		}, logger), nil
	case "gemini":
		return provider.NewGemini(ctx, provider.GeminiConfig{
			APIKey:      apiKey,
			Model:       cfg.Provider.Model,
			Temperature: cfg.Provider.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}
