package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devricklin/chatguard/internal/api"
	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/biz/usecase"
	"github.com/devricklin/chatguard/internal/conf"
	"github.com/devricklin/chatguard/internal/data"
	"github.com/devricklin/chatguard/internal/infra/classifier"
	"github.com/devricklin/chatguard/internal/infra/feishu"
	"github.com/devricklin/chatguard/internal/infra/logger"
	"github.com/devricklin/chatguard/internal/infra/telegram"
	"github.com/devricklin/chatguard/internal/server"
	"github.com/devricklin/chatguard/internal/service"
)

const version = "0.3.0"

func main() {
	if err := run(os.Args); err != nil {
		log.Printf("chatguard: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to read .env: %v", err)
	}

	app := cli.App{
		Name:    "chatguard",
		Usage:   "group chat moderation bot (spam scoring and join verification)",
		Version: version,
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "signals",
			Usage:   "path to the YAML rule profile",
			EnvVars: []string{"SIGNALS_CONFIG_PATH"},
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "path to the SQLite database",
			EnvVars: []string{"DB_PATH"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkCmd,
		keywordsCmd,
		whitelistCmd,
		mcpCmd,
	}

	return app.Run(args)
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig(cctx *cli.Context) (*conf.Config, error) {
	cfg := conf.LoadFromEnv()
	if p := cctx.String("signals"); p != "" {
		cfg.SignalsPath = p
	}
	if p := cctx.String("db"); p != "" {
		cfg.Store.DBPath = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadProfile reads the rule profile once for startup
func loadProfile(path string) (*usecase.Profile, error) {
	signals, err := conf.LoadSignals(path)
	if err != nil {
		return nil, err
	}
	signals.ApplyEnvOverrides()
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	return signals.ToProfile(), nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the moderation bot",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}

		lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		defer lg.Sync()

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, lg)
	},
}

func serve(ctx context.Context, cfg *conf.Config, lg *zap.Logger) error {
	profile, err := loadProfile(cfg.SignalsPath)
	if err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg.Store.DBPath)
	if err != nil {
		return err
	}
	defer repos.Close()
	lg.Info("database opened", zap.String("path", cfg.Store.DBPath))

	var counts repo.CountStore = data.NewMemCountStore()
	if cfg.Store.RedisURL != "" {
		rc, err := data.NewRedisCountStore(ctx, cfg.Store.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		counts = rc
		lg.Info("counters stored in redis")
	}

	var platform repo.PlatformRepo
	var tgClient *telegram.Client
	var fsClient *feishu.Client
	switch cfg.Platform {
	case conf.PlatformFeishu:
		fsClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, lg)
		platform = data.NewFeishuRepo(fsClient)
	default:
		tgClient, err = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.PollTimeout, lg)
		if err != nil {
			return err
		}
		platform = data.NewTelegramRepo(tgClient)
	}

	var classifierRepo repo.ClassifierRepo
	if cfg.Classifier.Enabled() {
		classifierRepo = data.NewClassifierRepo(classifier.NewClient(cfg.Classifier.APIKey, cfg.Classifier.BaseURL, cfg.Classifier.Model))
		lg.Info("classifier enabled", zap.String("model", cfg.Classifier.Model))
	}

	// Initialize usecase layer
	bg := usecase.NewBackground(10*time.Second, 0, lg)
	clock := usecase.SystemClock()

	members := usecase.NewMemberUsecase(repos.Member, bg, lg)
	whitelist := usecase.NewWhitelistUsecase(repos.Whitelist, lg)
	keywords := usecase.NewKeywordUsecase(repos.Keyword, lg)
	if err := keywords.Load(ctx); err != nil {
		lg.Warn("learned keywords unavailable", zap.Error(err))
	}
	profiles := usecase.NewProfileProvider(profile, conf.ProfileLoader(cfg.SignalsPath), lg)

	// Initialize service layer
	dispatcher := service.NewDispatcher(platform, bg, clock, lg)
	recorder := service.NewRecorder(repos.Report, counts, bg, lg)
	stats := service.NewStatsService(counts)

	verification := usecase.NewVerificationUsecase(members, whitelist, repos.Verified, profiles, dispatcher, bg, usecase.VerificationOptions{
		Clock:     clock,
		Recorder:  recorder,
		NoticeTTL: cfg.NoticeTTL,
		Logger:    lg,
	})
	commands := service.NewCommandHandler(cfg.Admin.IsAdmin, whitelist, keywords, profiles, stats, dispatcher, lg)

	moderation := service.NewModerationService(service.ModerationDeps{
		Verification: verification,
		Members:      members,
		Whitelist:    whitelist,
		Keywords:     keywords,
		Profiles:     profiles,
		Actions:      dispatcher,
		Recorder:     recorder,
		Classifier:   classifierRepo,
		Commands:     commands,
		Background:   bg,
		Clock:        clock,
		NoticeTTL:    cfg.NoticeTTL,
		Logger:       lg,
	})

	apiServer := api.NewServer(api.Deps{
		Whitelist: whitelist,
		Keywords:  keywords,
		Profiles:  profiles,
		Stats:     stats,
		Reports:   repos.Report,
		Platform:  cfg.Platform,
		Logger:    lg,
	}, cfg.HTTP.Host, cfg.HTTP.Port)
	janitor := service.NewJanitor(repos.Report, cfg.Store.LogRetention, lg)

	// Initialize server
	var listener interface{ Start(context.Context) error }
	stopListen := func() {}
	if fsClient != nil {
		fs := server.NewFeishuServer(fsClient, moderation, lg)
		listener, stopListen = fs, fs.Stop
	} else {
		listener = server.NewTelegramServer(tgClient, moderation, lg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("http api listening", zap.String("host", cfg.HTTP.Host), zap.Int("port", cfg.HTTP.Port))
		return apiServer.Start()
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	})

	// the platform listener runs outside the group because the Feishu socket
	// does not return on cancellation
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listener.Start(gctx)
	}()

	lg.Info("chatguard started", zap.String("platform", cfg.Platform), zap.String("version", version))
	select {
	case <-gctx.Done():
	case err := <-listenErr:
		if err != nil {
			lg.Error("platform listener stopped", zap.Error(err))
		}
	}

	lg.Info("shutting down")
	cancel()
	stopListen()
	verification.Shutdown()
	dispatcher.Close()
	groupErr := g.Wait()
	bg.Wait()

	if errors.Is(groupErr, context.Canceled) {
		groupErr = nil
	}
	return groupErr
}
