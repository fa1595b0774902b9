package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learncards/internal/activities"
	"learncards/internal/api"
	"learncards/internal/config"
	"learncards/internal/logger"
	"learncards/internal/media"
	"learncards/internal/models"
	"learncards/internal/pipeline"
	"learncards/internal/providers"
	"learncards/internal/storage"
	"learncards/internal/tasks"
	"learncards/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("learncards api stopped", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	base, warnings, err := config.LoadProfile("base", cfg.ProfileFile, config.BaseProfileEnv, config.DefaultTextModel)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	video, warnings, err := config.LoadProfile("video", cfg.VideoProfileFile, config.VideoProfileEnv, config.DefaultVisionModel)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	manager, err := providers.NewManager(cfg.LLMProvider, base, video, cfg.LLMTimeout)
	if err != nil {
		return err
	}

	var (
		archive tasks.Archive
		audit   providers.AuditFunc
	)
	if cfg.PostgresURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
		if err == nil {
			err = db.EnsureSchema(dbCtx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer db.Close()
		archive = storage.NewTaskRepo(db)
		calls := storage.NewLLMAuditRepo(db)
		audit = func(ctx context.Context, call models.LLMCall) {
			if err := calls.Insert(context.WithoutCancel(ctx), call); err != nil {
				log.Warn("record llm call failed", "call_id", call.CallID, "error", err)
			}
		}
	}

	registry := tasks.NewRegistry(archive, log)
	extractor := media.NewExtractor(media.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Width:       cfg.FrameWidth,
		Log:         log,
	})
	gatewayOpts := providers.GatewayOptions{DefaultCount: cfg.DefaultCardCount, Audit: audit, Log: log}
	if cfg.TemporalAddress != "" {
		// the workflow records calls through its own activity
		gatewayOpts.Audit = nil
	}
	gateway := providers.NewGateway(manager.Text(), manager.Vision(), gatewayOpts)
	pipe := pipeline.New(registry, extractor, gateway, pipeline.Options{
		FrameDir:   cfg.FrameDir,
		FrameCount: cfg.FrameCount,
		Timeout:    cfg.PipelineTimeout,
		Log:        log,
	})

	var runner pipeline.Runner
	if cfg.TemporalAddress != "" {
		c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			return fmt.Errorf("temporal: %w", err)
		}
		defer c.Close()
		w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
		workflows.Register(w)
		activities.Register(w, activities.New(pipe, registry, gateway, audit, log))
		if err := w.Start(); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		defer w.Stop()
		runner = workflows.NewRunner(c, cfg.TemporalTaskQueue, cfg.PipelineTimeout)
	} else {
		local := pipeline.NewLocalRunner(context.WithoutCancel(ctx), pipe)
		defer local.Wait()
		runner = local
	}

	srv := api.NewServer(api.Deps{
		Config:   cfg,
		Registry: registry,
		Gateway:  gateway,
		Runner:   runner,
		Log:      log,
	})
	httpSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("learncards api listening",
		"addr", cfg.APIAddr,
		"provider", manager.Kind(),
		"text_model", base.Model,
		"vision_model", video.Model,
		"postgres", cfg.PostgresURL != "",
		"temporal", cfg.TemporalAddress,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
