package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Env string

	// Amount given to a budget created with no prior budget to clone.
	// Kept at zero by default to match long-standing behavior; deployments
	// that find zero-amount budgets surprising can override it.
	BudgetDefaultAmount decimal.Decimal
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:                 getEnv("ENV", "development"),
		BudgetDefaultAmount: decimal.Zero,
	}

	if raw := getEnv("BUDGET_DEFAULT_AMOUNT", ""); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			log.Printf("Warning: invalid BUDGET_DEFAULT_AMOUNT value '%s', falling back to 0\n", raw)
		} else {
			config.BudgetDefaultAmount = amount
		}
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
