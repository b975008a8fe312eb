package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint       string
	PublicURL      string
	AccessKey      string
	SecretKey      string
	BucketImages   string
	BucketVariants string
	UseSSL         bool
	Region         string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	SignatureSecret  string
	RequireSignature bool
	MaxSessions      int
}

// GeneratorConfig selects the backend that produces themes, post copy and
// candidate images.
type GeneratorConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	TextModel   string
	ImageModel  string
	Timeout     time.Duration
	HourlyQuota int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type QueueConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type LoggingConfig struct {
	Level string
}

type ThumbnailConfig struct {
	Width  int
	Height int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	TLS              TLSConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Generator        GeneratorConfig
	Kafka            KafkaConfig
	Queue            QueueConfig
	Logging          LoggingConfig
	Thumbnails       ThumbnailConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CAMPAIGNSTUDIO")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Generator.Provider {
	case "remote", "gemini":
	default:
		return fmt.Errorf("unsupported generator provider %q", c.Generator.Provider)
	}
	if c.Environment == "production" && c.Security.JWTAccessSecret == "" {
		return fmt.Errorf("security.jwtaccesssecret is required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketimages", "campaign-images")
	v.SetDefault("storage.bucketvariants", "campaign-thumbnails")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.requiresignature", true)
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("generator.provider", "remote")
	v.SetDefault("generator.baseurl", "http://127.0.0.1:8000")
	v.SetDefault("generator.textmodel", "gemini-2.5-flash")
	v.SetDefault("generator.imagemodel", "imagen-3.0-generate-002")
	v.SetDefault("generator.timeout", "90s")
	v.SetDefault("generator.hourlyquota", 30)

	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "campaign.post-events")
	v.SetDefault("kafka.groupid", "campaignstudio-api")

	v.SetDefault("queue.stream", "campaign:tasks")
	v.SetDefault("queue.group", "campaign-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.claiminterval", "30s")

	v.SetDefault("logging.level", "info")

	v.SetDefault("thumbnails.width", 320)
	v.SetDefault("thumbnails.height", 320)
}
