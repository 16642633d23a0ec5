package cmd

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nivaro/postpilot/contentgen"
	coreconfig "github.com/nivaro/postpilot/core/config"
	coreDB "github.com/nivaro/postpilot/core/database"
	settingsApp "github.com/nivaro/postpilot/core/settings/application"
	"github.com/nivaro/postpilot/infrastructure/remote"
	"github.com/nivaro/postpilot/infrastructure/valkey"
	"github.com/nivaro/postpilot/pkg/postworker"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/publisher"
	"github.com/nivaro/postpilot/scheduling/application"
	"github.com/nivaro/postpilot/scheduling/domain"
	"github.com/nivaro/postpilot/scheduling/repository"
	"github.com/nivaro/postpilot/scheduling/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	appCtx    context.Context
	appCancel context.CancelFunc

	db       *gorm.DB
	vkClient *valkey.Client

	schedulerRepo domain.ISchedulerRepository
	schedulerSvc  domain.ISchedulerUsecase
	settingsSvc   *settingsApp.SettingsService

	pub         publisher.IPublisher
	contentProv contentgen.IContentProvider
	pool        *postworker.PublishWorkerPool

	executor  *application.LocalExecutor
	jobRunner *application.JobScheduler
	syncAgent *application.SyncAgent
)

// generationDefaults resolves job generation fallbacks: database settings
// first, then the environment defaults.
type generationDefaults struct {
	settings *settingsApp.SettingsService
	tone     string
	maxChars int
}

func (d generationDefaults) DefaultTone(ctx context.Context) string {
	if v := d.settings.DefaultTone(ctx); v != "" {
		return v
	}
	return d.tone
}

func (d generationDefaults) MaxContentChars(ctx context.Context) int {
	if v := d.settings.MaxContentChars(ctx); v > 0 {
		return v
	}
	return d.maxChars
}

// dynamicContentProvider re-resolves the provider and model from the
// stored settings before every call, so the operator can switch vendors
// from the dashboard without a restart.
type dynamicContentProvider struct {
	settings *settingsApp.SettingsService
	fallback contentgen.IContentProvider

	mu     sync.Mutex
	key    string
	cached contentgen.IContentProvider
}

func (d *dynamicContentProvider) Generate(ctx context.Context, request contentgen.GenerationRequest) (string, error) {
	cfg := coreconfig.Global

	ds, err := d.settings.GetDynamicSettings(ctx)
	if err != nil || (ds.ContentProvider == "" && ds.ContentModel == "") {
		return d.fallback.Generate(ctx, request)
	}

	providerName := ds.ContentProvider
	if providerName == "" {
		providerName = cfg.Content.Provider
	}
	model := ds.ContentModel
	if model == "" {
		model = cfg.Content.Model
	}

	d.mu.Lock()
	if key := providerName + "|" + model; d.key != key {
		apiKey := cfg.APIKeys.OpenAI
		if strings.EqualFold(providerName, "gemini") {
			apiKey = cfg.APIKeys.Gemini
		}
		provider, err := contentgen.NewProvider(contentgen.ProviderConfig{
			Provider: providerName,
			Model:    model,
			APIKey:   apiKey,
		})
		if err != nil {
			d.mu.Unlock()
			logrus.WithError(err).Warn("[APP] Stored content provider invalid, using environment default")
			return d.fallback.Generate(ctx, request)
		}
		d.key = key
		d.cached = provider
	}
	provider := d.cached
	d.mu.Unlock()

	return provider.Generate(ctx, request)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Local scheduling agent for business listing posts",
	Long: `PostPilot keeps publishing scheduled posts to the business listing API
even when the central dashboard is unreachable. It stores the working set
locally, sweeps for due posts, fires recurring AI-drafted jobs and mirrors
its state back to the remote authority.`,
}

func init() {
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig layers viper-managed overrides (.env file plus process
// environment) on top of the loaded defaults.
func initEnvConfig() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()
	viper.AutomaticEnv()

	cfg := coreconfig.Global

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetString("app_basic_auth"); v != "" {
		cfg.App.BasicAuth = strings.Split(v, ",")
	}
	if v := viper.GetString("app_base_path"); v != "" {
		cfg.App.BasePath = v
	}
	if v := viper.GetString("app_trusted_proxies"); v != "" {
		cfg.App.TrustedProxies = strings.Split(v, ",")
	}

	if v := viper.GetString("db_driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v := viper.GetString("db_name"); v != "" {
		cfg.Database.Name = v
	}

	if viper.IsSet("sync_enabled") {
		cfg.Sync.Enabled = viper.GetBool("sync_enabled")
	}
	if v := viper.GetString("sync_remote_url"); v != "" {
		cfg.Sync.RemoteURL = v
	}
	if v := viper.GetString("sync_auth_token"); v != "" {
		cfg.Sync.AuthToken = v
	}

	if v := viper.GetString("publish_api_base_url"); v != "" {
		cfg.Publish.APIBaseURL = v
	}
	if v := viper.GetString("content_provider"); v != "" {
		cfg.Content.Provider = v
	}
}

func initFlags() {
	cfg := coreconfig.Global

	// Application flags
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
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.BasicAuth,
		"basic-auth", "b",
		cfg.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.BasePath,
		"base-path", "",
		cfg.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/postpilot"`,
	)

	// Database flags
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Driver,
		"db-driver", "",
		cfg.Database.Driver,
		`database driver --db-driver <string> | example: --db-driver="sqlite" or --db-driver="postgres"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Database.Name,
		"db-name", "",
		cfg.Database.Name,
		`database file path (sqlite) or database name (postgres) --db-name <string> | example: --db-name="storages/postpilot.db"`,
	)

	// Sync flags
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.Sync.Enabled,
		"sync", "",
		cfg.Sync.Enabled,
		`mirror the working set to the remote authority --sync <true/false> | example: --sync=true`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Sync.RemoteURL,
		"sync-remote-url", "",
		cfg.Sync.RemoteURL,
		`remote authority base URL --sync-remote-url <string> | example: --sync-remote-url="https://dashboard.example.com/api"`,
	)

	// Worker pool flags
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Scheduler.WorkerPoolSize,
		"publish-workers", "",
		cfg.Scheduler.WorkerPoolSize,
		`number of concurrent publish workers --publish-workers <number> | example: --publish-workers=16 (default: 8)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.Scheduler.WorkerQueueSize,
		"publish-queue-size", "",
		cfg.Scheduler.WorkerQueueSize,
		`queue size per publish worker --publish-queue-size <number> | example: --publish-queue-size=512 (default: 256)`,
	)
}

func initApp() {
	cfg := coreconfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// preparing folders if not exist
	if err := utils.CreateFolder(cfg.Paths.Storages, cfg.Paths.Statics, cfg.Paths.Media); err != nil {
		logrus.Errorln(err)
	}

	cfg.App.ServerID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	appCtx, appCancel = context.WithCancel(context.Background())

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	gormRepo := repository.NewSchedulerGormRepository(db)
	if err := gormRepo.Init(appCtx); err != nil {
		logrus.Fatalf("failed to init scheduler schema: %v", err)
	}
	schedulerRepo = gormRepo

	settingsSvc = settingsApp.NewSettingsService(db)

	if cfg.Database.ValkeyEnabled {
		client, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, continuing without distributed locks")
		} else {
			vkClient = client
		}
	}

	pub = publisher.NewListingClient(publisher.ClientConfig{
		BaseURL:       cfg.Publish.APIBaseURL,
		Timeout:       cfg.Publish.RequestTimeout,
		MaxImageWidth: cfg.Publish.MaxImageWidth,
	}, publisher.StaticTokenProvider{APIKey: cfg.APIKeys.Listing})

	apiKey := cfg.APIKeys.OpenAI
	if strings.EqualFold(cfg.Content.Provider, "gemini") {
		apiKey = cfg.APIKeys.Gemini
	}
	contentProv, err = contentgen.NewProvider(contentgen.ProviderConfig{
		Provider: cfg.Content.Provider,
		Model:    cfg.Content.Model,
		APIKey:   apiKey,
	})
	if err != nil {
		logrus.Fatalf("failed to configure content provider: %v", err)
	}

	pool = postworker.NewPublishWorkerPool(cfg.Scheduler.WorkerPoolSize, cfg.Scheduler.WorkerQueueSize)
	pool.Start(appCtx)

	// The sync agent is wired first so every component that persists a
	// post or job transition can ping it.
	var notifier application.ChangeNotifier
	if cfg.Sync.Enabled && cfg.Sync.RemoteURL != "" {
		remoteClient := remote.NewClient(remote.Config{
			BaseURL:   cfg.Sync.RemoteURL,
			AuthToken: cfg.Sync.AuthToken,
			Timeout:   cfg.Sync.RequestTimeout,
		})
		syncAgent = application.NewSyncAgent(schedulerRepo, remoteClient, application.SyncAgentOptions{
			HeartbeatInterval: cfg.Sync.HeartbeatInterval,
			RequestTimeout:    cfg.Sync.RequestTimeout,
		})
		notifier = syncAgent
	} else {
		logrus.Info("[APP] Remote sync disabled, running standalone")
	}

	executor = application.NewLocalExecutor(schedulerRepo, pub, application.ExecutorOptions{
		TickInterval:   cfg.Scheduler.TickInterval,
		PublishTimeout: cfg.Scheduler.PublishTimeout,
		ValkeyClient:   vkClient,
		Notifier:       notifier,
	})

	dynamicContent := &dynamicContentProvider{settings: settingsSvc, fallback: contentProv}
	jobRunner = application.NewJobScheduler(schedulerRepo, dynamicContent, pub, pool, application.JobSchedulerOptions{
		TickInterval:    cfg.Scheduler.JobTickInterval,
		PublishTimeout:  cfg.Scheduler.PublishTimeout,
		GenerateTimeout: cfg.Content.CallTimeout,
		Defaults: generationDefaults{
			settings: settingsSvc,
			tone:     cfg.Content.DefaultTone,
			maxChars: cfg.Content.MaxChars,
		},
		Notifier: notifier,
	})

	schedulerSvc = usecase.NewSchedulerService(schedulerRepo, notifier)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of all background loops and connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if appCancel != nil {
		appCancel()
	}
	if pool != nil {
		pool.Stop()
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
