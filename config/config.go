package config

import (
	"log"
	"time"

	"github.com/spf13/viper"

	"huddle/services/convergence"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Candidate pool. With no DATABASE_URL the seed file is used.
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	CandidateSeedFile string `mapstructure:"CANDIDATE_SEED_FILE"`

	// Redis configuration. An empty address disables chat context, match
	// caching and reminders.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB         int    `mapstructure:"REDIS_CACHE_DB"`
	RedisContextDB       int    `mapstructure:"REDIS_CONTEXT_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`
	ContextTTLMinutes    int    `mapstructure:"CONTEXT_TTL_MINUTES"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Convergence loop.
	MaxConcurrentBookings  int     `mapstructure:"MAX_CONCURRENT_BOOKINGS"`
	DefaultSpeedMultiplier float64 `mapstructure:"DEFAULT_SPEED_MULTIPLIER"`
	PollTickMS             int     `mapstructure:"POLL_TICK_MS"`

	StandardBatchSize   int     `mapstructure:"STANDARD_BATCH_SIZE"`
	StandardWaitSeconds int     `mapstructure:"STANDARD_WAIT_SECONDS"`
	StandardAcceptProb  float64 `mapstructure:"STANDARD_ACCEPT_PROB"`
	StandardDeclineProb float64 `mapstructure:"STANDARD_DECLINE_PROB"`

	BackfillBatchSize   int     `mapstructure:"BACKFILL_BATCH_SIZE"`
	BackfillWaitSeconds int     `mapstructure:"BACKFILL_WAIT_SECONDS"`
	BackfillAcceptProb  float64 `mapstructure:"BACKFILL_ACCEPT_PROB"`
	BackfillDeclineProb float64 `mapstructure:"BACKFILL_DECLINE_PROB"`

	RescheduleAcceptProb  float64 `mapstructure:"RESCHEDULE_ACCEPT_PROB"`
	RescheduleWaitSeconds int     `mapstructure:"RESCHEDULE_WAIT_SECONDS"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "huddle")
	v.SetDefault("CANDIDATE_SEED_FILE", "data/candidates.json")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_CONTEXT_DB", 1)
	v.SetDefault("REDIS_REMINDER_QUEUE_DB", 2)
	v.SetDefault("CONTEXT_TTL_MINUTES", 60)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("MAX_CONCURRENT_BOOKINGS", 64)
	v.SetDefault("DEFAULT_SPEED_MULTIPLIER", 60.0)
	v.SetDefault("POLL_TICK_MS", 1000)

	standard := convergence.StandardPreset()
	v.SetDefault("STANDARD_BATCH_SIZE", standard.BatchSize)
	v.SetDefault("STANDARD_WAIT_SECONDS", int(standard.SimulatedWait.Seconds()))
	v.SetDefault("STANDARD_ACCEPT_PROB", standard.AcceptProb)
	v.SetDefault("STANDARD_DECLINE_PROB", standard.DeclineProb)

	backfill := convergence.BackfillPreset()
	v.SetDefault("BACKFILL_BATCH_SIZE", backfill.BatchSize)
	v.SetDefault("BACKFILL_WAIT_SECONDS", int(backfill.SimulatedWait.Seconds()))
	v.SetDefault("BACKFILL_ACCEPT_PROB", backfill.AcceptProb)
	v.SetDefault("BACKFILL_DECLINE_PROB", backfill.DeclineProb)

	reschedule := convergence.ReschedulePreset()
	v.SetDefault("RESCHEDULE_ACCEPT_PROB", reschedule.AcceptProb)
	v.SetDefault("RESCHEDULE_WAIT_SECONDS", int(reschedule.SimulatedWait.Seconds()))
}

// Load reads config.yaml (if any) from the given directories, overlays the
// environment and applies defaults.
func Load(v *viper.Viper, paths ...string) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig() {
	cfg, err := Load(viper.GetViper(), ".", "./config")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c Config) StandardPreset() convergence.Preset {
	p := convergence.StandardPreset()
	p.BatchSize = c.StandardBatchSize
	p.SimulatedWait = seconds(c.StandardWaitSeconds)
	p.AcceptProb = c.StandardAcceptProb
	p.DeclineProb = c.StandardDeclineProb
	return p
}

func (c Config) BackfillPreset() convergence.Preset {
	p := convergence.BackfillPreset()
	p.BatchSize = c.BackfillBatchSize
	p.SimulatedWait = seconds(c.BackfillWaitSeconds)
	p.AcceptProb = c.BackfillAcceptProb
	p.DeclineProb = c.BackfillDeclineProb
	return p
}

// ReschedulePreset declines whatever is not accepted.
func (c Config) ReschedulePreset() convergence.Preset {
	p := convergence.ReschedulePreset()
	p.SimulatedWait = seconds(c.RescheduleWaitSeconds)
	p.AcceptProb = c.RescheduleAcceptProb
	p.DeclineProb = 1 - c.RescheduleAcceptProb
	return p
}

// Clock is the real tick used by every loop.
func (c Config) Clock() convergence.Clock {
	tick := time.Duration(c.PollTickMS) * time.Millisecond
	if tick <= 0 {
		tick = time.Second
	}
	return convergence.Clock{Tick: tick, TickSeconds: tick.Seconds()}
}
