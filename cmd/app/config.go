package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"microearn/internal/notify"
	"microearn/internal/quiz"
	"microearn/internal/repository"
	"microearn/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database  repository.Config     `mapstructure:"database"`
	Server    ServerConfig          `mapstructure:"server"`
	Auth      AuthConfig            `mapstructure:"auth"`
	Ledger    LedgerConfig          `mapstructure:"ledger"`
	Quiz      quiz.Config           `mapstructure:"quiz"`
	Telegram  notify.TelegramConfig `mapstructure:"telegram"`
	RateLimit RateLimitConfig       `mapstructure:"rateLimit"`

	Log logger.Config `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type AuthConfig struct {
	TokenSecret string        `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
	OTPCode     string        `mapstructure:"otpCode"`
	AdminCode   string        `mapstructure:"adminCode"`
}

type LedgerConfig struct {
	TotalUsers    int    `mapstructure:"totalUsers"`
	BasePayouts   int64  `mapstructure:"basePayouts"`
	MinWithdrawal int64  `mapstructure:"minWithdrawal"`
	TimeZone      string `mapstructure:"timeZone"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatJSON)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("database.driver", repository.DriverMemory)
	v.SetDefault("database.path", "microearn.db")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "microearn")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.keyPrefix", "")
	// empty defaults register the keys so APP_* env vars reach Unmarshal
	v.SetDefault("auth.tokenSecret", "")
	v.SetDefault("auth.adminCode", "")
	v.SetDefault("quiz.apiKey", "")
	v.SetDefault("quiz.baseURL", quiz.DefaultBaseURL)
	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.adminChatIDs", []int64{})
	v.SetDefault("telegram.debug", false)
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("auth.otpCode", "1234")
	v.SetDefault("ledger.totalUsers", 1250)
	v.SetDefault("ledger.basePayouts", 45000)
	v.SetDefault("ledger.minWithdrawal", 50)
	v.SetDefault("ledger.timeZone", "Asia/Kolkata")
	v.SetDefault("quiz.model", quiz.DefaultModel)
	v.SetDefault("quiz.timeout", 10*time.Second)
	v.SetDefault("rateLimit.rps", 1)
	v.SetDefault("rateLimit.burst", 5)
}

func LoadConfig() (*Config, error) {
	// a missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("auth.tokenSecret must be at least 32 characters")
	}
	if c.Auth.AdminCode == "" {
		return fmt.Errorf("auth.adminCode is required")
	}
	if _, err := time.LoadLocation(c.Ledger.TimeZone); err != nil {
		return fmt.Errorf("invalid ledger.timeZone: %w", err)
	}
	return nil
}
