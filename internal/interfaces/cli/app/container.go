// Package app wires configuration, storage, the Telegram platform and the use cases into
// the process-wide object graph shared by every command.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	legacyImportUsecases "github.com/channelgate/channelgate/internal/application/legacyimport/usecases"
	paymentUsecases "github.com/channelgate/channelgate/internal/application/payment/usecases"
	planUsecases "github.com/channelgate/channelgate/internal/application/plan/usecases"
	reconciliationUsecases "github.com/channelgate/channelgate/internal/application/reconciliation/usecases"
	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	telegramUsecases "github.com/channelgate/channelgate/internal/application/telegram/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/cache"
	"github.com/channelgate/channelgate/internal/infrastructure/config"
	"github.com/channelgate/channelgate/internal/infrastructure/database"
	"github.com/channelgate/channelgate/internal/infrastructure/email"
	"github.com/channelgate/channelgate/internal/infrastructure/repository"
	"github.com/channelgate/channelgate/internal/infrastructure/scheduler"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/shared/biztime"
	"github.com/channelgate/channelgate/internal/shared/db"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// Bootstrap loads configuration and brings up logging and the business timezone.
func Bootstrap(env, configPath string) (*config.Config, logger.Interface, error) {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}
	return cfg, logger.NewLogger(), nil
}

type repositories struct {
	users         subscription.UserRepository
	plans         subscription.PlanRepository
	subscriptions subscription.SubscriptionRepository
	paymentErrors subscription.PaymentErrorRepository
	charges       subscription.PaymentChargeRepository
}

// UseCases is every application entry point a command may drive.
type UseCases struct {
	Register            *subscriptionUsecases.RegisterUserUseCase
	Grant               *subscriptionUsecases.GrantSubscriptionUseCase
	Extend              *subscriptionUsecases.ExtendSubscriptionUseCase
	Revoke              *subscriptionUsecases.RevokeSubscriptionUseCase
	ValidateJoin        *subscriptionUsecases.ValidateJoinUseCase
	AdmitMember         *subscriptionUsecases.AdmitMemberUseCase
	IssueInvite         *subscriptionUsecases.IssueInviteUseCase
	CurrentSubscription *subscriptionUsecases.GetCurrentSubscriptionUseCase
	Cancel              *subscriptionUsecases.CancelSubscriptionUseCase

	ConfirmPayment      *paymentUsecases.ConfirmPaymentUseCase
	AlertPaymentError   *paymentUsecases.AlertPaymentErrorUseCase
	ListPaymentErrors   *paymentUsecases.ListPaymentErrorsUseCase
	ResolvePaymentError *paymentUsecases.ResolvePaymentErrorUseCase

	SyncCatalog            *planUsecases.SyncCatalogUseCase
	MigrateSupersededPlans *planUsecases.MigrateSupersededPlansUseCase

	ImportLegacyDump *legacyImportUsecases.ImportLegacyDumpUseCase
}

// Container owns the connections and the object graph. Close releases what it opened.
type Container struct {
	Config *config.Config
	Logger logger.Interface
	DB     *gorm.DB
	Redis  *redis.Client

	Bot          *telegram.BotService
	Notifier     *telegram.Notifier
	Gateway      *telegram.MembershipGateway
	UpdateRouter *telegramUsecases.UpdateRouter
	UseCases     UseCases

	repos *repositories
}

// NewContainer opens the database and Redis and builds the object graph.
func NewContainer(ctx context.Context, cfg *config.Config, log logger.Interface) (*Container, error) {
	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	c := &Container{
		Config: cfg,
		Logger: log,
		DB:     database.Get(),
		Redis:  redisClient,
	}
	c.wire()
	return c, nil
}

func (c *Container) wire() {
	cfg, log, gdb := c.Config, c.Logger, c.DB

	c.repos = &repositories{
		users:         repository.NewUserRepository(gdb, log),
		plans:         repository.NewPlanRepository(gdb, log),
		subscriptions: repository.NewSubscriptionRepository(gdb, log),
		paymentErrors: repository.NewPaymentErrorRepository(gdb, log),
		charges:       repository.NewPaymentChargeRepository(gdb, log),
	}
	r := c.repos
	txMgr := db.NewTransactionManager(gdb)

	c.Bot = telegram.NewBotService(cfg.Telegram)
	c.Notifier = telegram.NewNotifier(c.Bot, cfg.Gateway, log)
	c.Gateway = telegram.NewMembershipGateway(c.Bot, cfg.Gateway, log)

	uc := &c.UseCases
	uc.Register = subscriptionUsecases.NewRegisterUserUseCase(r.users, log)
	uc.Grant = subscriptionUsecases.NewGrantSubscriptionUseCase(txMgr, r.users, r.plans, r.subscriptions, c.Gateway, log)
	uc.Extend = subscriptionUsecases.NewExtendSubscriptionUseCase(txMgr, r.subscriptions, log)
	uc.Revoke = subscriptionUsecases.NewRevokeSubscriptionUseCase(txMgr, r.users, r.plans, r.subscriptions, c.Gateway, log)
	uc.ValidateJoin = subscriptionUsecases.NewValidateJoinUseCase(r.users, r.subscriptions, log)
	uc.AdmitMember = subscriptionUsecases.NewAdmitMemberUseCase(txMgr, r.subscriptions, uc.ValidateJoin, c.Gateway, log)
	uc.IssueInvite = subscriptionUsecases.NewIssueInviteUseCase(txMgr, r.users, r.plans, r.subscriptions, c.Gateway, log)
	uc.CurrentSubscription = subscriptionUsecases.NewGetCurrentSubscriptionUseCase(r.users, r.plans, r.subscriptions, log)
	uc.Cancel = subscriptionUsecases.NewCancelSubscriptionUseCase(r.users, r.subscriptions, uc.Revoke, log)

	alertDedup := cache.NewAlertDeduplicator(c.Redis)
	uc.AlertPaymentError = paymentUsecases.NewAlertPaymentErrorUseCase(c.Notifier, cfg.Telegram.AdminUserIDs, log)
	uc.AlertPaymentError.SetDeduplicator(alertDedup, cfg.Alert.Cooldown)
	if cfg.Alert.Email.Enabled {
		uc.AlertPaymentError.SetEmailSender(email.NewSMTPAlertSender(cfg.Alert.Email))
	}

	uc.ConfirmPayment = paymentUsecases.NewConfirmPaymentUseCase(
		txMgr, r.users, r.plans, r.subscriptions, r.paymentErrors, r.charges,
		uc.Grant, uc.Extend, uc.IssueInvite, log,
	)
	uc.ConfirmPayment.SetAlerter(uc.AlertPaymentError)
	uc.ConfirmPayment.SetPaymentLock(cache.NewPaymentLock(c.Redis), cfg.Payment.DedupTTL)

	uc.ListPaymentErrors = paymentUsecases.NewListPaymentErrorsUseCase(r.paymentErrors, log)
	uc.ResolvePaymentError = paymentUsecases.NewResolvePaymentErrorUseCase(r.paymentErrors, r.users, c.Notifier, log)
	uc.ResolvePaymentError.SetDeduplicator(alertDedup)

	uc.SyncCatalog = planUsecases.NewSyncCatalogUseCase(txMgr, r.plans, log)
	uc.MigrateSupersededPlans = planUsecases.NewMigrateSupersededPlansUseCase(txMgr, r.plans, r.subscriptions, log)
	uc.ImportLegacyDump = legacyImportUsecases.NewImportLegacyDumpUseCase(txMgr, r.users, r.plans, r.subscriptions, log)

	c.UpdateRouter = telegramUsecases.NewUpdateRouter(telegramUsecases.UseCases{
		Register:            uc.Register,
		CurrentSubscription: uc.CurrentSubscription,
		Cancel:              uc.Cancel,
		AdmitMember:         uc.AdmitMember,
		ConfirmPayment:      uc.ConfirmPayment,
		ListPaymentErrors:   uc.ListPaymentErrors,
		ResolvePaymentError: uc.ResolvePaymentError,
	}, r.plans, c.Notifier, c.Bot, telegramUsecases.RouterConfig{
		ChannelIDs:    cfg.Telegram.ChannelIDs,
		AdminUserIDs:  cfg.Telegram.AdminUserIDs,
		SupportHandle: cfg.Telegram.SupportHandle,
		Currency:      cfg.Payment.Currency,
	}, log)
}

// PollingService builds the long-polling loop over the Redis offset store.
func (c *Container) PollingService() *telegram.PollingService {
	return telegram.NewPollingService(c.Bot, c.UpdateRouter, c.Logger, cache.NewPollingOffsetStore(c.Redis, c.Bot.BotID()))
}

// ReconciliationJobs binds every scheduled sweep to its configured interval.
func (c *Container) ReconciliationJobs() []scheduler.JobSchedule {
	sc, r, log := c.Config.Scheduler, c.repos, c.Logger
	txMgr := db.NewTransactionManager(c.DB)

	return []scheduler.JobSchedule{
		{
			Job:   reconciliationUsecases.NewRegistrationNudgeJob(r.users, c.Notifier, sc.NudgeAfter, log),
			Every: sc.RegistrationNudgeEvery,
		},
		{
			Job:   reconciliationUsecases.NewPreExpiryReminderJob(r.users, r.subscriptions, c.Notifier, sc.PreExpiryWindow, log),
			Every: sc.PreExpiryReminderEvery,
		},
		{
			Job:   reconciliationUsecases.NewLastDayReminderJob(r.users, r.subscriptions, c.Notifier, log),
			Every: sc.LastDayReminderEvery,
		},
		{
			Job:   reconciliationUsecases.NewPostExpiryReminderJob(r.users, r.subscriptions, c.Notifier, log),
			Every: sc.PostExpiryReminderEvery,
		},
		{
			Job:   reconciliationUsecases.NewExpirySweepJob(r.subscriptions, c.UseCases.Revoke, log),
			Every: sc.ExpirySweepEvery,
		},
		{
			Job:   reconciliationUsecases.NewMembershipAuditJob(txMgr, r.users, r.plans, r.subscriptions, c.Gateway, sc.AuditBuffer, log),
			Every: sc.MembershipAuditEvery,
		},
	}
}

// StartScheduler registers the reconciliation jobs and starts them. The caller stops the
// returned manager.
func (c *Container) StartScheduler() (*scheduler.SchedulerManager, error) {
	mgr, err := scheduler.NewSchedulerManager(c.Logger, c.Config.Scheduler.JobTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := mgr.RegisterJobs(c.ReconciliationJobs()...); err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}
	mgr.Start()
	return mgr, nil
}

// SyncCatalogFile applies the catalog at path and returns the sync result.
func (c *Container) SyncCatalogFile(ctx context.Context, path string) (*planUsecases.SyncCatalogResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	catalog, err := planUsecases.ParseCatalog(f)
	if err != nil {
		return nil, err
	}
	return c.UseCases.SyncCatalog.Execute(ctx, catalog)
}

func (c *Container) Close() {
	if err := c.Redis.Close(); err != nil {
		c.Logger.Warnw("failed to close redis", "error", err)
	}
	if err := database.Close(); err != nil {
		c.Logger.Warnw("failed to close database", "error", err)
	}
}
