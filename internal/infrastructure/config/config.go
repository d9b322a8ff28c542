package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Telegram  sharedConfig.TelegramConfig  `mapstructure:"telegram"`
	Gateway   sharedConfig.GatewayConfig   `mapstructure:"gateway"`
	Scheduler sharedConfig.SchedulerConfig `mapstructure:"scheduler"`
	Payment   sharedConfig.PaymentConfig   `mapstructure:"payment"`
	Alert     sharedConfig.AlertConfig     `mapstructure:"alert"`
	Admin     sharedConfig.AdminConfig     `mapstructure:"admin"`
	Catalog   sharedConfig.CatalogConfig   `mapstructure:"catalog"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
// configPath, when set, points at an explicit config file instead of the search paths.
func Load(env, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("CHANNELGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Running purely from env is allowed; a broken file is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "channelgate")
	v.SetDefault("database.path", "channelgate.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.mode", "polling")

	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.initial_interval", "1s")
	v.SetDefault("gateway.max_interval", "8s")
	v.SetDefault("gateway.invite_ttl", "168h")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.job_timeout", "10m")
	v.SetDefault("scheduler.registration_nudge_interval", "10m")
	v.SetDefault("scheduler.pre_expiry_reminder_interval", "1h")
	v.SetDefault("scheduler.last_day_reminder_interval", "1h")
	v.SetDefault("scheduler.post_expiry_reminder_interval", "1h")
	v.SetDefault("scheduler.expiry_sweep_interval", "5m")
	v.SetDefault("scheduler.membership_audit_interval", "1h")
	v.SetDefault("scheduler.nudge_after", "3h")
	v.SetDefault("scheduler.pre_expiry_window", "24h")
	v.SetDefault("scheduler.audit_buffer", "2h")

	v.SetDefault("payment.dedup_ttl", "10m")
	v.SetDefault("payment.test_mode", false)
	v.SetDefault("payment.currency", "RUB")

	v.SetDefault("alert.cooldown", "30m")
	v.SetDefault("alert.email.enabled", false)
	v.SetDefault("alert.email.smtp_port", 587)
	v.SetDefault("alert.email.from_name", "channelgate")

	v.SetDefault("catalog.path", "./configs/catalog.yaml")
	v.SetDefault("catalog.sync_on_start", true)
}
