// backend-go/internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Par          ParConfig
	Notification NotificationConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RunTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket applied runs are archived to.
// An empty endpoint disables archiving.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// ParConfig carries the suggestion engine's tunables.
type ParConfig struct {
	LeadTimeDays       float64
	Lookback           int
	RoundingStep       float64
	MinPar             float64
	StockoutRatio      float64
	OverstockRatio     float64
	OverstockShare     float64
	StockoutBuffer     float64
	OverstockReduction float64
	MinChangeAmount    float64
	ChangedPct         float64
	MajorPct           float64

	HighConfidencePoints   int
	MediumConfidencePoints int
	FluctuationMinSamples  int
	FluctuationStepPct     float64
	FluctuationRunLength   int
	FluctuationMaxCV       float64

	ApplyWorkers      int
	ApplyRetries      int
	ApplyRetryBackoff time.Duration
}

type NotificationConfig struct {
	DefaultTimezone   string
	FluctuatingMin    int
	MajorMin          int
	TotalMin          int
	TopItems          int
	DefaultRecipients string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				URL:      viper.GetString("DATABASE_URL"),
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				RunTTLSeconds: viper.GetInt("CACHE_RUN_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
			},
			Par: ParConfig{
				LeadTimeDays:       viper.GetFloat64("PAR_LEAD_TIME_DAYS"),
				Lookback:           viper.GetInt("PAR_LOOKBACK"),
				RoundingStep:       viper.GetFloat64("PAR_ROUNDING_STEP"),
				MinPar:             viper.GetFloat64("PAR_MIN_LEVEL"),
				StockoutRatio:      viper.GetFloat64("PAR_STOCKOUT_RATIO"),
				OverstockRatio:     viper.GetFloat64("PAR_OVERSTOCK_RATIO"),
				OverstockShare:     viper.GetFloat64("PAR_OVERSTOCK_SHARE"),
				StockoutBuffer:     viper.GetFloat64("PAR_STOCKOUT_BUFFER"),
				OverstockReduction: viper.GetFloat64("PAR_OVERSTOCK_REDUCTION"),
				MinChangeAmount:    viper.GetFloat64("PAR_MIN_CHANGE_AMOUNT"),
				ChangedPct:         viper.GetFloat64("PAR_CHANGED_PCT"),
				MajorPct:           viper.GetFloat64("PAR_MAJOR_PCT"),

				HighConfidencePoints:   viper.GetInt("PAR_HIGH_CONFIDENCE_POINTS"),
				MediumConfidencePoints: viper.GetInt("PAR_MEDIUM_CONFIDENCE_POINTS"),
				FluctuationMinSamples:  viper.GetInt("PAR_FLUCTUATION_MIN_SAMPLES"),
				FluctuationStepPct:     viper.GetFloat64("PAR_FLUCTUATION_STEP_PCT"),
				FluctuationRunLength:   viper.GetInt("PAR_FLUCTUATION_RUN_LENGTH"),
				FluctuationMaxCV:       viper.GetFloat64("PAR_FLUCTUATION_MAX_CV"),

				ApplyWorkers:       viper.GetInt("PAR_APPLY_WORKERS"),
				ApplyRetries:       viper.GetInt("PAR_APPLY_RETRIES"),
				ApplyRetryBackoff:  viper.GetDuration("PAR_APPLY_RETRY_BACKOFF"),
			},
			Notification: NotificationConfig{
				DefaultTimezone:   viper.GetString("NOTIFY_DEFAULT_TIMEZONE"),
				FluctuatingMin:    viper.GetInt("NOTIFY_FLUCTUATING_MIN"),
				MajorMin:          viper.GetInt("NOTIFY_MAJOR_MIN"),
				TotalMin:          viper.GetInt("NOTIFY_TOTAL_MIN"),
				TopItems:          viper.GetInt("NOTIFY_TOP_ITEMS"),
				DefaultRecipients: viper.GetString("NOTIFY_DEFAULT_RECIPIENTS"),
			},
		}
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "autopar")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_RUN_TTL_SECONDS", 3600)

	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_BUCKET", "autopar")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "par-runs")

	viper.SetDefault("PAR_LEAD_TIME_DAYS", 2)
	viper.SetDefault("PAR_LOOKBACK", 4)
	viper.SetDefault("PAR_ROUNDING_STEP", 0.1)
	viper.SetDefault("PAR_MIN_LEVEL", 0.1)
	viper.SetDefault("PAR_STOCKOUT_RATIO", 0.10)
	viper.SetDefault("PAR_OVERSTOCK_RATIO", 0.80)
	viper.SetDefault("PAR_OVERSTOCK_SHARE", 0.75)
	viper.SetDefault("PAR_STOCKOUT_BUFFER", 1.20)
	viper.SetDefault("PAR_OVERSTOCK_REDUCTION", 0.85)
	viper.SetDefault("PAR_MIN_CHANGE_AMOUNT", 0.5)
	viper.SetDefault("PAR_CHANGED_PCT", 10)
	viper.SetDefault("PAR_MAJOR_PCT", 20)
	viper.SetDefault("PAR_HIGH_CONFIDENCE_POINTS", 4)
	viper.SetDefault("PAR_MEDIUM_CONFIDENCE_POINTS", 2)
	viper.SetDefault("PAR_FLUCTUATION_MIN_SAMPLES", 3)
	viper.SetDefault("PAR_FLUCTUATION_STEP_PCT", 15)
	viper.SetDefault("PAR_FLUCTUATION_RUN_LENGTH", 2)
	viper.SetDefault("PAR_FLUCTUATION_MAX_CV", 0.3)
	viper.SetDefault("PAR_APPLY_WORKERS", 4)
	viper.SetDefault("PAR_APPLY_RETRIES", 2)
	viper.SetDefault("PAR_APPLY_RETRY_BACKOFF", "200ms")

	viper.SetDefault("NOTIFY_DEFAULT_TIMEZONE", "UTC")
	viper.SetDefault("NOTIFY_FLUCTUATING_MIN", 3)
	viper.SetDefault("NOTIFY_MAJOR_MIN", 1)
	viper.SetDefault("NOTIFY_TOTAL_MIN", 15)
	viper.SetDefault("NOTIFY_TOP_ITEMS", 5)
	viper.SetDefault("NOTIFY_DEFAULT_RECIPIENTS", "OWNERS_MANAGERS")
}
