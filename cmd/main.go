package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ortho-scan/config"
	"ortho-scan/internal/api/telegram"
	"ortho-scan/internal/api/web"
	"ortho-scan/internal/container"
	"ortho-scan/internal/domain/catalog"
	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
	"ortho-scan/internal/infrastructure/events"
	"ortho-scan/internal/infrastructure/report"
	"ortho-scan/internal/infrastructure/storage"
	"ortho-scan/internal/infrastructure/vision"
	"ortho-scan/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logger.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	if keys := cat.UnreachableTextKeys(); len(keys) > 0 {
		log.Warn("catalog text keys can never match a normalized label", "keys", keys)
	}
	if labels := cat.UnmatchedThresholdLabels(); len(labels) > 0 {
		log.Warn("threshold labels without findings text", "labels", labels)
	}

	sessions, cleanup, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return err
	}

	detectors, err := openDetectors(ctx, cfg, log)
	if err != nil {
		return err
	}

	hub := events.NewHub(log)
	appContainer := container.New(container.Deps{
		Catalog:   cat,
		Sessions:  sessions,
		Detectors: detectors,
		Decoder:   vision.NewCodec(),
		Annotator: vision.NewAnnotator(),
		Store:     store,
		Renderer: report.NewPDFRenderer(report.Clinic{
			Name:     cfg.ClinicName,
			Tagline:  cfg.ClinicTagline,
			Contact:  cfg.ClinicContact,
			Address:  cfg.ClinicAddress,
			LogoPath: cfg.LogoPath,
		}),
		Events: hub,
		Logger: log,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	server := web.NewServer(appContainer, hub, cfg.MaxUploadBytes(), log)
	g.Go(func() error {
		return server.ListenAndServe(ctx, cfg.HTTPAddr)
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, cfg.MaxUploadBytes(), log)
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		g.Go(func() error {
			log.Info("bot is running")
			return bot.Run(ctx)
		})
	} else {
		log.Info("TELEGRAM_TOKEN is not set, telegram bot disabled")
	}

	return g.Wait()
}

func openSessions(ctx context.Context, cfg *config.Config) (port.SessionRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		repo, err := storage.NewSQLiteSessionRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case config.StoragePostgres:
		repo, err := storage.NewPostgresSessionRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return storage.NewMemorySessionRepository(), func() {}, nil
	}
}

func openDetectors(ctx context.Context, cfg *config.Config, log *slog.Logger) (map[entity.BodyPart]port.Detector, error) {
	if cfg.DetectorBackend == config.DetectorGoCV {
		return vision.NewYOLODetectors(cfg.ModelDir)
	}

	if err := vision.CheckHealth(ctx, cfg.InferenceURL); err != nil {
		log.Warn("inference service is not reachable yet", "url", cfg.InferenceURL, "error", err)
	}
	return vision.NewHTTPDetectors(cfg.InferenceURL, cfg.InferenceTimeout), nil
}
