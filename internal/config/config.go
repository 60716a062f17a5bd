package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Paycom   PaycomConfig
	Order    OrderConfig
	Telegram TelegramConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

type DatabaseConfig struct {
	Driver  string // "mysql", "postgres"
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	SSLMode string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// PaycomConfig holds the merchant credentials the gateway authenticates with.
type PaycomConfig struct {
	MerchantID string
	Login      string
	Key        string
	KeyFile    string
	Endpoint   string
	AllowedIPs []string
	LockTTL    time.Duration
}

type OrderConfig struct {
	Provider     string // "database", "http"
	ServiceURL   string
	ServiceToken string
	Timeout      time.Duration
}

type TelegramConfig struct {
	Token        string
	ReportChatID int64
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ReportChatID != 0
}

type CronConfig struct {
	StaleReport string // cron spec, empty disables the job
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	return fromViper(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_CHARSET", "utf8mb4")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PAYCOM_LOGIN", "Paycom")
	v.SetDefault("PAYCOM_ENDPOINT", "/paycom")
	v.SetDefault("PAYCOM_LOCK_TTL", "30s")
	v.SetDefault("ORDER_PROVIDER", "database")
	v.SetDefault("ORDER_SERVICE_TIMEOUT", "10s")
	v.SetDefault("CRON_STALE_REPORT", "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	lockTTL, err := time.ParseDuration(v.GetString("PAYCOM_LOCK_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYCOM_LOCK_TTL: %w", err)
	}
	orderTimeout, err := time.ParseDuration(v.GetString("ORDER_SERVICE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_SERVICE_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("APP_PORT"),
			Env:  v.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Driver:  strings.ToLower(v.GetString("DB_DRIVER")),
			Host:    v.GetString("DB_HOST"),
			Port:    v.GetString("DB_PORT"),
			Name:    v.GetString("DB_NAME"),
			User:    v.GetString("DB_USER"),
			Pass:    v.GetString("DB_PASS"),
			Charset: v.GetString("DB_CHARSET"),
			SSLMode: v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("REDIS_ADDR"),
			Pass: v.GetString("REDIS_PASS"),
			DB:   v.GetInt("REDIS_DB"),
		},
		Paycom: PaycomConfig{
			MerchantID: v.GetString("PAYCOM_MERCHANT_ID"),
			Login:      v.GetString("PAYCOM_LOGIN"),
			Key:        v.GetString("PAYCOM_KEY"),
			KeyFile:    v.GetString("PAYCOM_KEY_FILE"),
			Endpoint:   v.GetString("PAYCOM_ENDPOINT"),
			AllowedIPs: splitList(v.GetString("PAYCOM_ALLOWED_IPS")),
			LockTTL:    lockTTL,
		},
		Order: OrderConfig{
			Provider:     strings.ToLower(v.GetString("ORDER_PROVIDER")),
			ServiceURL:   v.GetString("ORDER_SERVICE_URL"),
			ServiceToken: v.GetString("ORDER_SERVICE_TOKEN"),
			Timeout:      orderTimeout,
		},
		Telegram: TelegramConfig{
			Token:        v.GetString("TELEGRAM_BOT_TOKEN"),
			ReportChatID: v.GetInt64("TELEGRAM_REPORT_CHAT_ID"),
		},
		Cron: CronConfig{
			StaleReport: v.GetString("CRON_STALE_REPORT"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Paycom.Key == "" && cfg.Paycom.KeyFile == "" {
		log.Println("WARNING: neither PAYCOM_KEY nor PAYCOM_KEY_FILE is set")
	}
	if !strings.HasPrefix(cfg.Paycom.Endpoint, "/") {
		cfg.Paycom.Endpoint = "/" + cfg.Paycom.Endpoint
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN returns the DSN string for GORM in the format of the configured driver.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.User, d.Pass, d.Name, d.SSLMode)
	}
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
}
