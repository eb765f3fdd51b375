package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	PubNub   PubNubConfig   `yaml:"pubnub"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the Postgres store. An empty Host (and no URL) keeps
// everything in memory.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
	PublishRetries     int      `yaml:"publish_retries"`
}

type PubNubConfig struct {
	PublishKey   string `yaml:"publish_key"`
	SubscribeKey string `yaml:"subscribe_key"`
	UserID       string `yaml:"user_id"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	SeedDemoUsers   bool   `yaml:"seed_demo_users"`
}

type BookingConfig struct {
	HoldTTLSeconds        int `yaml:"hold_ttl_seconds"`
	RoutesCacheTTLSeconds int `yaml:"routes_cache_ttl_seconds"`
	RouteLockTTLSeconds   int `yaml:"route_lock_ttl_seconds"`
	MaxSeatsPerHold       int `yaml:"max_seats_per_hold"`
}

type PaymentConfig struct {
	MerchantCode    string `yaml:"merchant_code"`
	PayItemID       string `yaml:"pay_item_id"`
	Currency        string `yaml:"currency"`
	CurrencyNumeric int    `yaml:"currency_numeric"`
	RedirectURL     string `yaml:"redirect_url"`
	Mode            string `yaml:"mode"`
	WebhookSecret   string `yaml:"webhook_secret"`
}

type WorkerConfig struct {
	ExpirationSweepSeconds int    `yaml:"expiration_sweep_seconds"`
	MetricsAddress         string `yaml:"metrics_address"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLSeconds) * time.Second
}

func (b BookingConfig) RoutesCacheTTL() time.Duration {
	return time.Duration(b.RoutesCacheTTLSeconds) * time.Second
}

func (b BookingConfig) RouteLockTTL() time.Duration {
	return time.Duration(b.RouteLockTTLSeconds) * time.Second
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.ExpirationSweepSeconds) * time.Second
}

// Default returns the configuration used for anything the YAML file leaves out.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Address: ":8080"},
		GRPC: GRPCConfig{Address: "127.0.0.1:9090"},
		Log:  LogConfig{Level: "info", Format: "json"},
		Kafka: KafkaConfig{
			BookingTopic:       "booking-events",
			NotificationsTopic: "booking-notifications",
			GroupID:            "seatreserve-worker",
			PublishRetries:     3,
		},
		PubNub: PubNubConfig{UserID: "seatreserve"},
		Auth:   AuthConfig{TokenTTLMinutes: 24 * 60},
		Booking: BookingConfig{
			HoldTTLSeconds:        600,
			RoutesCacheTTLSeconds: 30,
			RouteLockTTLSeconds:   10,
			MaxSeatsPerHold:       8,
		},
		Payment: PaymentConfig{
			Currency:        "NGN",
			CurrencyNumeric: 566,
			Mode:            "TEST",
		},
		Worker: WorkerConfig{ExpirationSweepSeconds: 30, MetricsAddress: ":9100"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("PAYMENT_WEBHOOK_SECRET"); v != "" {
		c.Payment.WebhookSecret = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Booking.HoldTTLSeconds <= 0 {
		errs = append(errs, errors.New("booking.hold_ttl_seconds must be positive"))
	}
	if c.Booking.MaxSeatsPerHold <= 0 {
		errs = append(errs, errors.New("booking.max_seats_per_hold must be positive"))
	}
	if c.Worker.ExpirationSweepSeconds <= 0 {
		errs = append(errs, errors.New("worker.expiration_sweep_seconds must be positive"))
	}
	// The app and the worker serialize hold and route changes through one lock
	// service; in-process locks are only safe with the in-process store.
	if c.Database.Enabled() && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when a database is configured"))
	}
	if c.Payment.Mode != "TEST" && c.Payment.Mode != "LIVE" {
		errs = append(errs, fmt.Errorf("payment.mode must be TEST or LIVE, got %q", c.Payment.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
