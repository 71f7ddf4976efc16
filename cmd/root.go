package cmd

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	coreConfig "github.com/postpilot-io/postpilot/core/config"
	coreDB "github.com/postpilot-io/postpilot/core/database"
	domainConnection "github.com/postpilot-io/postpilot/domains/connection"
	domainPost "github.com/postpilot-io/postpilot/domains/post"
	domainPublisher "github.com/postpilot-io/postpilot/domains/publisher"
	"github.com/postpilot-io/postpilot/infrastructure/platforms"
	"github.com/postpilot-io/postpilot/infrastructure/valkey"
	"github.com/postpilot-io/postpilot/pkg/recurrence"
	"github.com/postpilot-io/postpilot/pkg/utils"
	"github.com/postpilot-io/postpilot/repository"
	"github.com/postpilot-io/postpilot/usecase"
)

var (
	db       *gorm.DB
	vkClient *valkey.Client

	postRepo repository.IPostRepository
	connRepo repository.IConnectionRepository

	postUsecase       domainPost.IPostUsecase
	connectionUsecase domainConnection.IConnectionUsecase
	processor         *usecase.Processor

	cronRunner *cron.Cron
)

var rootCmd = &cobra.Command{
	Use:   "postpilot",
	Short: "Scheduled content publishing service",
	Long: `Postpilot stores scheduled posts and publishes them to connected
platform accounts (Mastodon, Telegram, webhooks) when they come due,
with retries, recurrence expansion and a REST API on top.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if _, err := coreConfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	initFlags()

	cobra.OnInitialize(initApp)
}

func initFlags() {
	cfg := coreConfig.Global

	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Port,
		"port", "p",
		cfg.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.App.Debug,
		"debug", "d",
		cfg.App.Debug,
		"enable debug logging with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.BasicAuth,
		"basic-auth", "b",
		cfg.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Driver,
		"db-driver", "",
		cfg.Database.Driver,
		`database driver --db-driver <string> | example: --db-driver="postgres"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Name,
		"db-name", "",
		cfg.Database.Name,
		`database name, or the file path for sqlite --db-name <string> | example: --db-name="storages/postpilot.db"`,
	)
	rootCmd.PersistentFlags().DurationVarP(
		&cfg.Scheduler.Interval,
		"scheduler-interval", "",
		cfg.Scheduler.Interval,
		"how often the due-post pass runs --scheduler-interval <duration> | example: --scheduler-interval=30s",
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Scheduler.MaxAttempts,
		"max-attempts", "",
		cfg.Scheduler.MaxAttempts,
		"publish attempts before a post fails permanently --max-attempts <number> | example: --max-attempts=5",
	)
}

func initApp() {
	cfg := coreConfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	postRepo = repository.NewPostGormRepository(db)
	if err := postRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init post repository: %v", err)
	}
	connRepo = repository.NewConnectionGormRepository(db)
	if err := connRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init connection repository: %v", err)
	}

	// Valkey is optional: without it the in-process guard still prevents
	// overlapping passes on a single node.
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[VALKEY] Unavailable, continuing without cross-node lock: %v", err)
			vkClient = nil
		}
	}

	connectionUsecase = usecase.NewConnectionService(connRepo)
	postUsecase = usecase.NewPostService(postRepo, cfg.Scheduler.MaxAttempts)

	telegram := platforms.NewTelegramPublisher()
	telegram.APIBase = cfg.Platforms.TelegramAPIBase
	registry := domainPublisher.NewRegistry(
		platforms.NewMastodonPublisher(),
		telegram,
		platforms.NewWebhookPublisher(),
	)

	processor = usecase.NewProcessor(postRepo, connectionUsecase, registry, vkClient, usecase.ProcessorConfig{
		BatchLimit:     cfg.Scheduler.BatchLimit,
		Concurrency:    cfg.Scheduler.Concurrency,
		PublishTimeout: cfg.Scheduler.PublishTimeout,
		LockTTL:        cfg.Scheduler.LockTTL,
		Recurrence: recurrence.Options{
			EnforceOccurrenceLimit: cfg.Scheduler.EnforceOccurrenceLimit,
		},
	})
	if vkClient != nil && cfg.Scheduler.Interval <= cfg.Scheduler.LockTTL {
		logrus.Warnf("[SCHEDULER] Interval %s does not exceed lock TTL %s; a node may skip passes on its own unexpired lock",
			cfg.Scheduler.Interval, cfg.Scheduler.LockTTL)
	}

	startScheduler(cfg.Scheduler.Interval)
}

// startScheduler runs the due-post pass on a fixed cadence. The processor's
// own guard covers the case of a pass outlasting the interval.
func startScheduler(interval time.Duration) {
	cronRunner = cron.New()
	_, err := cronRunner.AddFunc("@every "+interval.String(), func() {
		if _, err := processor.ProcessDuePosts(context.Background()); err != nil {
			logrus.WithError(err).Error("[SCHEDULER] Failed to process due posts")
		}
	})
	if err != nil {
		logrus.Fatalf("failed to schedule processing pass: %v", err)
	}
	cronRunner.Start()
	logrus.Infof("[SCHEDULER] Due-post pass every %s", interval)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the scheduler and all connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if cronRunner != nil {
		<-cronRunner.Stop().Done()
	}

	if vkClient != nil {
		vkClient.Close()
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
