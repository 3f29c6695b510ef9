package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"slidecast/internal/api"
	"slidecast/internal/artifacts"
	"slidecast/internal/config"
	"slidecast/internal/daemon"
	"slidecast/internal/deps"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services/muxer"
	"slidecast/internal/services/render"
	"slidecast/internal/services/tts"
	"slidecast/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/slidecast/config.toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg)) {
		if !status.Available {
			logger.Warn("external tool unavailable",
				logging.String("tool", status.Name),
				logging.String("command", status.Command),
				logging.String("detail", status.Detail))
		}
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}

	collaborators, err := buildCollaborators(cfg)
	if err != nil {
		logger.Error("wire collaborators", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, logger, collaborators)
	apiServer := api.NewServer(cfg, store, manager, logger)
	artifactMgr := artifacts.NewManager(cfg, store, logger)

	d, err := daemon.New(cfg, store, logger, manager, apiServer, artifactMgr)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon run", logging.Error(err))
		return
	}
	logger.Info("slidecastd shut down")
}

func buildCollaborators(cfg *config.Config) (workflow.Collaborators, error) {
	renderer, err := render.New(cfg.Tools.RendererBin)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	muxClient, err := muxer.New(cfg.Tools.FFmpegBin)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	prober, err := muxer.NewProber(cfg.Tools.FFprobeBin)
	if err != nil {
		return workflow.Collaborators{}, err
	}
	synth := tts.NewClient(cfg.TTS.APIKey, cfg.TTS.Region, prober, tts.WithBaseURL(cfg.TTS.Endpoint))
	return workflow.Collaborators{
		Renderer: renderer,
		Synth:    synth,
		Muxer:    muxClient,
		Prober:   prober,
	}, nil
}
