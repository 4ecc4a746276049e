/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables. Money values are in
// coin units (1 coin = 100 units).
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	EventExchange          string `mapstructure:"EVENT_EXCHANGE"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	InternalAPIKey         string `mapstructure:"INTERNAL_API_KEY"`
	AllotmentPeriod        string `mapstructure:"ALLOTMENT_PERIOD"`
	AllotmentDefaultUnits  int64  `mapstructure:"ALLOTMENT_DEFAULT_UNITS"`
	JackpotContributionBps int64  `mapstructure:"JACKPOT_CONTRIBUTION_BPS"`
	PlayRateLimitPerMinute int    `mapstructure:"PLAY_RATE_LIMIT_PER_MINUTE"`
	TransferExpiryDays     int    `mapstructure:"TRANSFER_EXPIRY_DAYS"`
	JackpotDrawingCron     string `mapstructure:"JACKPOT_DRAWING_CRON"`
	TransferExpiryCron     string `mapstructure:"TRANSFER_EXPIRY_CRON"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "meritmint:ledger")
	viper.SetDefault("EVENT_EXCHANGE", "ledger_events")
	viper.SetDefault("ALLOTMENT_PERIOD", "monthly")
	viper.SetDefault("ALLOTMENT_DEFAULT_UNITS", 50000) // 500 coins per period
	viper.SetDefault("JACKPOT_CONTRIBUTION_BPS", 100)  // 1% of each losing bet
	viper.SetDefault("PLAY_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("TRANSFER_EXPIRY_DAYS", 30)
	viper.SetDefault("JACKPOT_DRAWING_CRON", "0 17 * * FRI")
	viper.SetDefault("TRANSFER_EXPIRY_CRON", "30 2 * * *")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("ALLOTMENT_PERIOD")
	_ = viper.BindEnv("ALLOTMENT_DEFAULT_UNITS")
	_ = viper.BindEnv("ALLOTMENT_DEFAULT_COINS")
	_ = viper.BindEnv("JACKPOT_CONTRIBUTION_BPS")
	_ = viper.BindEnv("PLAY_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("TRANSFER_EXPIRY_DAYS")
	_ = viper.BindEnv("JACKPOT_DRAWING_CRON")
	_ = viper.BindEnv("TRANSFER_EXPIRY_CRON")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "meritmint:ledger"
	}

	// Allow specifying the allotment in whole coins via ALLOTMENT_DEFAULT_COINS.
	if viper.IsSet("ALLOTMENT_DEFAULT_COINS") {
		coinsStr := strings.TrimSpace(viper.GetString("ALLOTMENT_DEFAULT_COINS"))
		if coinsStr != "" {
			coinsValue, parseErr := strconv.ParseFloat(coinsStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid ALLOTMENT_DEFAULT_COINS\" value=%q err=%v", coinsStr, parseErr)
			} else {
				config.AllotmentDefaultUnits = int64(math.Round(coinsValue * 100))
			}
		}
	}

	if config.AllotmentDefaultUnits < 0 {
		log.Printf("level=warn component=config msg=\"negative allotment configured; coercing to zero\" units=%d", config.AllotmentDefaultUnits)
		config.AllotmentDefaultUnits = 0
	}

	period := strings.ToLower(strings.TrimSpace(config.AllotmentPeriod))
	if period != "monthly" && period != "quarterly" {
		log.Printf("level=warn component=config msg=\"unknown allotment period; defaulting to monthly\" period=%q", config.AllotmentPeriod)
		period = "monthly"
	}
	config.AllotmentPeriod = period

	if config.JackpotContributionBps < 0 {
		log.Printf("level=warn component=config msg=\"negative jackpot contribution configured; coercing to zero\" bps=%d", config.JackpotContributionBps)
		config.JackpotContributionBps = 0
	}
	if config.JackpotContributionBps > 10000 {
		log.Printf("level=warn component=config msg=\"jackpot contribution too high; capping at 10000\" bps=%d", config.JackpotContributionBps)
		config.JackpotContributionBps = 10000
	}

	if config.PlayRateLimitPerMinute <= 0 {
		config.PlayRateLimitPerMinute = 30
	}
	if config.TransferExpiryDays <= 0 {
		config.TransferExpiryDays = 30
	}

	return
}
