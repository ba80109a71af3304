package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	JWTSecret      string        `mapstructure:"AUTH_JWT_SECRET"`
	JWTAudience    string        `mapstructure:"AUTH_JWT_AUDIENCE"`

	AIAPIKey   string        `mapstructure:"AI_API_KEY"`
	AIBaseURL  string        `mapstructure:"AI_BASE_URL"`
	AIModelID  string        `mapstructure:"AI_MODEL_ID"`
	LLMTimeout time.Duration `mapstructure:"LLM_TIMEOUT"`

	KafkaBrokers       []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic         string        `mapstructure:"KAFKA_TOPIC"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxRetention    time.Duration `mapstructure:"OUTBOX_RETENTION"`

	NurseDefaultTeams []int `mapstructure:"-"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_JWT_SECRET", "AUTH_JWT_AUDIENCE",
	"AI_API_KEY", "AI_BASE_URL", "AI_MODEL_ID", "LLM_TIMEOUT",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE",
	"OUTBOX_RETENTION", "NURSE_DEFAULT_TEAMS",
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, reading environment only")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("AUTH_JWT_AUDIENCE", "authenticated")
	v.SetDefault("AI_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("AI_MODEL_ID", "google/gemini-2.0-flash-001")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("KAFKA_TOPIC", "medisync.tickets")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_RETENTION", "168h")
	v.SetDefault("NURSE_DEFAULT_TEAMS", "1,2,3")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	teams, err := parseTeams(v.GetString("NURSE_DEFAULT_TEAMS"))
	if err != nil {
		return nil, err
	}
	cfg.NurseDefaultTeams = teams

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ENV=development, every request is authenticated as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// KafkaEnabled reports whether outbox events should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Validate refuses to start a non-development server without a token secret.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if len(c.NurseDefaultTeams) == 0 {
		return fmt.Errorf("NURSE_DEFAULT_TEAMS must name at least one team")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTeams(s string) ([]int, error) {
	var teams []int
	for _, part := range splitList(s) {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("NURSE_DEFAULT_TEAMS: invalid team id %q", part)
		}
		teams = append(teams, id)
	}
	return teams, nil
}
