// Package config loads service configuration, environment-first with an
// optional .env file for local development. Every tunable has a default so
// the service boots with nothing but database credentials.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/database"
	"github.com/grandline-hms/service-reservation/internal/pricing"
)

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// KafkaConfig holds broker and consumer group settings.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	MigrationsDir string
	DB            database.PostgresConfig
	JWT           JWTConfig
	Kafka         KafkaConfig
	Pricing       pricing.Config
	Loyalty       application.LoyaltyConfig
}

// seasonalWindowSpec is the JSON shape accepted by RESERVATION_SEASONS.
type seasonalWindowSpec struct {
	Name       string  `json:"name"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Multiplier float64 `json:"multiplier"`
}

// Load reads configuration from environment variables and returns a
// ServiceConfig.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // the .env file is optional

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reservation")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")

	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA_GROUP_ID", "service-reservation")

	v.SetDefault("TAX_RATE", 0.13)
	v.SetDefault("WEEKDAY_MULTIPLIER", 1.0)
	v.SetDefault("WEEKEND_MULTIPLIER", 1.25)

	v.SetDefault("LOYALTY_EARN_RATE", 1.0)
	v.SetDefault("LOYALTY_CONVERSION_RATE", 100.0)
	v.SetDefault("LOYALTY_WELCOME_BONUS", 250)
	v.SetDefault("LOYALTY_REDEMPTION_CAP", 5000)

	windows, err := loadSeasonalWindows(v)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{
		Port:          v.GetString("SERVICE_PORT"),
		AppEnv:        v.GetString("APP_ENV"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		DB: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("KAFKA_BROKERS"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		Pricing: pricing.Config{
			TaxRate:           v.GetFloat64("TAX_RATE"),
			WeekdayMultiplier: v.GetFloat64("WEEKDAY_MULTIPLIER"),
			WeekendMultiplier: v.GetFloat64("WEEKEND_MULTIPLIER"),
			SeasonalWindows:   windows,
		},
		Loyalty: application.LoyaltyConfig{
			EarnRate:           v.GetFloat64("LOYALTY_EARN_RATE"),
			ConversionRate:     v.GetFloat64("LOYALTY_CONVERSION_RATE"),
			WelcomeBonusPoints: v.GetInt64("LOYALTY_WELCOME_BONUS"),
			RedemptionCap:      v.GetInt64("LOYALTY_REDEMPTION_CAP"),
		},
	}, nil
}

// loadSeasonalWindows parses RESERVATION_SEASONS, a JSON array of windows:
// [{"name":"summer","from":"2026-06-15","to":"2026-09-01","multiplier":1.5}]
func loadSeasonalWindows(v *viper.Viper) ([]pricing.SeasonalWindow, error) {
	raw := v.GetString("RESERVATION_SEASONS")
	if raw == "" {
		return nil, nil
	}

	var specs []seasonalWindowSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_SEASONS: %w", err)
	}

	windows := make([]pricing.SeasonalWindow, len(specs))
	for i, spec := range specs {
		from, err := time.ParseInLocation("2006-01-02", spec.From, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid RESERVATION_SEASONS window %q from date: %w", spec.Name, err)
		}
		to, err := time.ParseInLocation("2006-01-02", spec.To, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid RESERVATION_SEASONS window %q to date: %w", spec.Name, err)
		}
		windows[i] = pricing.SeasonalWindow{
			Name:       spec.Name,
			From:       from,
			To:         to,
			Multiplier: spec.Multiplier,
		}
	}
	return windows, nil
}
