package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/channelgate/channelgate/internal/infrastructure/config"
	"github.com/channelgate/channelgate/internal/infrastructure/migration"
	"github.com/channelgate/channelgate/internal/infrastructure/ratelimit"
	"github.com/channelgate/channelgate/internal/interfaces/cli/app"
	httpRouter "github.com/channelgate/channelgate/internal/interfaces/http"
	"github.com/channelgate/channelgate/internal/interfaces/http/handlers"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

const (
	modePolling = "polling"
	modeWebhook = "webhook"
)

var (
	env         string
	configPath  string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the HTTP server and the reconciliation scheduler",
		Long: `Start the HTTP server, receive Telegram updates by polling or webhook, and run the
reconciliation jobs until SIGINT or SIGTERM.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending database migrations before starting")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, log, err := app.Bootstrap(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}
	mode := cfg.Telegram.Mode
	if mode != modePolling && mode != modeWebhook {
		return fmt.Errorf("unsupported telegram.mode %q", mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting channelgate",
		"environment", env,
		"telegram_mode", mode,
		"channels", len(cfg.Telegram.ChannelIDs),
		"admins", len(cfg.Telegram.AdminUserIDs),
	)
	if cfg.Payment.TestMode {
		log.Warnw("payment test mode is on")
	}

	c, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if autoMigrate {
		if err := migration.NewGooseStrategy(cfg.Database.Driver, log).Migrate(c.DB); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	if cfg.Catalog.SyncOnStart {
		res, err := c.SyncCatalogFile(ctx, cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("catalog sync failed: %w", err)
		}
		log.Infow("catalog synced", "plans", len(res.PlanIDs), "created", res.Created, "updated", res.Updated, "retired", res.Retired)
	}

	if mode == modeWebhook && cfg.Telegram.WebhookURL != "" {
		if err := c.Bot.SetWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		log.Infow("telegram webhook registered", "url", cfg.Telegram.WebhookURL)
	}

	if err := c.Bot.RegisterCommandMenu(ctx, cfg.Telegram.AdminUserIDs); err != nil {
		log.Warnw("failed to register bot command menu", "error", err)
	}

	router := newRouter(c, cfg, mode, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return router.Serve(gctx, cfg.Server.GetAddr(), cfg.Server.ShutdownTimeout)
	})

	if mode == modePolling {
		g.Go(func() error {
			return c.PollingService().Run(gctx)
		})
	}

	if cfg.Scheduler.Enabled {
		mgr, err := c.StartScheduler()
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			return mgr.Stop()
		})
	}

	err = g.Wait()
	log.Infow("channelgate stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(c *app.Container, cfg *config.Config, mode string, log logger.Interface) *httpRouter.Router {
	gin.SetMode(mapEnvToGinMode(cfg.Server.Mode))
	gin.DefaultWriter = io.Discard

	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"redis": handlers.PingFunc(func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}),
	}, log)

	rc := httpRouter.RouterConfig{
		HealthHandler:       health,
		PaymentErrorHandler: handlers.NewPaymentErrorHandler(c.UseCases.ListPaymentErrors, c.UseCases.ResolvePaymentError, log),
		AdminAPIToken:       cfg.Admin.APIToken,
		RateLimiter:         ratelimit.NewRedisRateLimiter(c.Redis),
		RateLimitPerMinute:  cfg.Server.RateLimitPerMinute,
	}
	if mode == modeWebhook {
		rc.WebhookHandler = handlers.NewTelegramWebhookHandler(c.UpdateRouter, cfg.Telegram.WebhookSecret, log)
	}
	return httpRouter.NewRouter(rc, log)
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case constants.EnvProduction, "prod", "release":
		return gin.ReleaseMode
	case constants.EnvTest, "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
