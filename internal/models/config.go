package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Mirror   MirrorConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LedgerConfig holds settlement ledger settings
type LedgerConfig struct {
	TokensFile   string        // YAML file with token seed balances
	RegistryTTL  time.Duration // lifetime extension applied to registry state
	DefaultToken string        // token used by CLI tools when none is given
}

// MirrorConfig holds settings for the optional Formance audit mirror.
// The mirror is disabled unless StackURL is set.
type MirrorConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
