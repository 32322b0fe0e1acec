package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress string
	Environment   string
	APIToken      string
	Signature     SignatureConfig
	Validation    ValidationConfig
	Database      DatabaseConfig
	Ledger        LedgerConfig
	Migration     MigrationConfig
}

type SignatureConfig struct {
	Enabled bool
	KeyCode string
}

type ValidationConfig struct {
	// CurrencyRules enables the currency-aware amount rules on upload.
	// When disabled the handler behaves like the legacy variant: every
	// transaction is treated as local currency.
	CurrencyRules bool
	LocalCurrency string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   string
}

// LedgerConfig points at the external general-ledger database the sync job
// posts into. OfficeID and UserID are stamped on every gen_jn row; the first
// two characters of OfficeID scope the certify-ID sequence.
type LedgerConfig struct {
	DSN      string
	OfficeID string
	UserID   string
}

type MigrationConfig struct {
	Dir string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SIGNATURE_ENABLED", false)
	viper.SetDefault("CURRENCY_RULES", true)
	viper.SetDefault("LOCAL_CURRENCY", "LAK")
	viper.SetDefault("LEDGER_OFFICE_ID", "00-00")
	viper.SetDefault("LEDGER_USER_ID", "API_BOT")
	viper.SetDefault("MIGRATION_DIR", "migrations")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		Environment:   viper.GetString("ENVIRONMENT"),
		APIToken:      viper.GetString("API_TOKEN"),
		Signature: SignatureConfig{
			Enabled: viper.GetBool("SIGNATURE_ENABLED"),
			KeyCode: viper.GetString("SIGNATURE_KEY_CODE"),
		},
		Validation: ValidationConfig{
			CurrencyRules: viper.GetBool("CURRENCY_RULES"),
			LocalCurrency: viper.GetString("LOCAL_CURRENCY"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			Params:   viper.GetString("DB_PARAMS"),
		},
		Ledger: LedgerConfig{
			DSN:      viper.GetString("LEDGER_DB_DSN"),
			OfficeID: viper.GetString("LEDGER_OFFICE_ID"),
			UserID:   viper.GetString("LEDGER_USER_ID"),
		},
		Migration: MigrationConfig{
			Dir: viper.GetString("MIGRATION_DIR"),
		},
	}

	return config, nil
}

// GetDSN returns the MySQL DSN string for the staging store
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// GetMigrationDBURL returns the database URL for migrations
func (c *Config) GetMigrationDBURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// CompanyPrefix returns the two-character office prefix that scopes the
// certify-ID sequence in the general ledger.
func (c *Config) CompanyPrefix() string {
	if len(c.Ledger.OfficeID) < 2 {
		return c.Ledger.OfficeID
	}
	return c.Ledger.OfficeID[:2]
}
