package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// CORSAllowOrigins is a comma separated origin list; empty allows all
	// outside production.
	CORSAllowOrigins []string

	// DefaultAccounts are the chart-of-accounts codes the posting engine and
	// the event handlers post against.
	DefaultAccounts domain.DefaultAccounts
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Environment variables win over .env values.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("CORS_ALLOW_ORIGINS", "")
	viper.SetDefault("ACCOUNT_CODE_CASH", "1101")
	viper.SetDefault("ACCOUNT_CODE_BANK", "1102")
	viper.SetDefault("ACCOUNT_CODE_RECEIVABLE_ROOT", "1201")
	viper.SetDefault("ACCOUNT_CODE_REVENUE", "4101")
	viper.SetDefault("ACCOUNT_CODE_ADVANCE_LIABILITY", "2301")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:  viper.GetString("PGSQL_URL"),
		Port:         viper.GetString("PORT"),
		IsProduction: viper.GetBool("IS_PRODUCTION"),
		DefaultAccounts: domain.DefaultAccounts{
			CashCode:             viper.GetString("ACCOUNT_CODE_CASH"),
			BankCode:             viper.GetString("ACCOUNT_CODE_BANK"),
			ReceivableRootCode:   viper.GetString("ACCOUNT_CODE_RECEIVABLE_ROOT"),
			RevenueCode:          viper.GetString("ACCOUNT_CODE_REVENUE"),
			AdvanceLiabilityCode: viper.GetString("ACCOUNT_CODE_ADVANCE_LIABILITY"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PGSQL_URL environment variable is required")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if origins := strings.TrimSpace(viper.GetString("CORS_ALLOW_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowOrigins = append(cfg.CORSAllowOrigins, origin)
			}
		}
	}
	if cfg.IsProduction && len(cfg.CORSAllowOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ALLOW_ORIGINS is required in production")
	}

	return cfg, nil
}
