package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	Timezone string `mapstructure:"timezone"`

	// RateLimitPerMinute caps requests per client IP on the admin API. Zero disables it.
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN returns the MySQL DSN. Timestamps are stored and parsed as UTC.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	// SourceAllLevels attaches caller location to every record instead of warn/error only.
	SourceAllLevels bool `mapstructure:"source_all_levels"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type TelegramConfig struct {
	BotToken      string   `mapstructure:"bot_token"`
	APIBaseURL    string   `mapstructure:"api_base_url"`
	Mode          string   `mapstructure:"mode"`
	WebhookURL    string   `mapstructure:"webhook_url"`
	WebhookSecret string   `mapstructure:"webhook_secret"`
	AdminUserIDs  []int64  `mapstructure:"admin_user_ids"`
	ChannelIDs    []string `mapstructure:"channel_ids"`
	SupportHandle string   `mapstructure:"support_handle"`
}

// IsAdmin reports whether the Telegram user id belongs to an operator.
func (t *TelegramConfig) IsAdmin(userID int64) bool {
	for _, id := range t.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type GatewayConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	InviteTTL       time.Duration `mapstructure:"invite_ttl"`
}

type SchedulerConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	JobTimeout              time.Duration `mapstructure:"job_timeout"`
	RegistrationNudgeEvery  time.Duration `mapstructure:"registration_nudge_interval"`
	PreExpiryReminderEvery  time.Duration `mapstructure:"pre_expiry_reminder_interval"`
	LastDayReminderEvery    time.Duration `mapstructure:"last_day_reminder_interval"`
	PostExpiryReminderEvery time.Duration `mapstructure:"post_expiry_reminder_interval"`
	ExpirySweepEvery        time.Duration `mapstructure:"expiry_sweep_interval"`
	MembershipAuditEvery    time.Duration `mapstructure:"membership_audit_interval"`
	NudgeAfter              time.Duration `mapstructure:"nudge_after"`
	PreExpiryWindow         time.Duration `mapstructure:"pre_expiry_window"`
	AuditBuffer             time.Duration `mapstructure:"audit_buffer"`
}

type PaymentConfig struct {
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	TestMode bool          `mapstructure:"test_mode"`
	Currency string        `mapstructure:"currency"`
}

type EmailAlertConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	SMTPHost     string   `mapstructure:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port"`
	SMTPUser     string   `mapstructure:"smtp_user"`
	SMTPPassword string   `mapstructure:"smtp_password"`
	FromAddress  string   `mapstructure:"from_address"`
	FromName     string   `mapstructure:"from_name"`
	To           []string `mapstructure:"to"`
}

type AlertConfig struct {
	Email    EmailAlertConfig `mapstructure:"email"`
	Cooldown time.Duration    `mapstructure:"cooldown"`
}

type AdminConfig struct {
	APIToken string `mapstructure:"api_token"`
}

type CatalogConfig struct {
	Path              string `mapstructure:"path"`
	MigrateTargetName string `mapstructure:"migrate_target_name"`
	SyncOnStart       bool   `mapstructure:"sync_on_start"`
}
