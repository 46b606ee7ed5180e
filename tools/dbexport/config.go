package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/datastore"
)

const maxBatchSize = 10000

// Config holds the configuration for the export tool.
type Config struct {
	SQLitePath string
	MySQL      conf.MySQLSettings

	BatchSize  int
	Clean      bool
	SkipVerify bool
	Verbose    bool

	// ConfigPath points at a debatetab config.yaml used for missing values
	ConfigPath string
}

// Load validates the configuration, filling connection details missing
// from flags out of config.yaml.
func (c *Config) Load() error {
	if c.SQLitePath == "" || c.MySQL.Host == "" {
		// Flags alone may still be enough.
		_ = c.loadFromConfigFile()
	}

	if c.SQLitePath == "" {
		return fmt.Errorf("--sqlite-path is required (or provide config.yaml)")
	}
	if _, err := os.Stat(c.SQLitePath); os.IsNotExist(err) {
		return fmt.Errorf("SQLite database not found: %s", c.SQLitePath)
	}
	if c.MySQL.Host == "" {
		return fmt.Errorf("--mysql-host is required (or provide config.yaml)")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch-size must be at least 1")
	}
	if c.BatchSize > maxBatchSize {
		return fmt.Errorf("batch-size too large (max %d)", maxBatchSize)
	}
	return nil
}

func (c *Config) loadFromConfigFile() error {
	v := viper.New()

	configPath := c.ConfigPath
	if configPath == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(homeDir, ".config", "debatetab", "config.yaml")
			if _, statErr := os.Stat(p); statErr == nil {
				configPath = p
			}
		}
		if configPath == "" {
			configPath = "config.yaml"
		}
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if c.SQLitePath == "" {
		c.SQLitePath = v.GetString("database.sqlite.path")
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = v.GetString("database.mysql.host")
		if port := v.GetString("database.mysql.port"); port != "" {
			c.MySQL.Port = port
		}
		if user := v.GetString("database.mysql.username"); user != "" {
			c.MySQL.Username = user
		}
		if pass := v.GetString("database.mysql.password"); pass != "" {
			c.MySQL.Password = pass
		}
		if db := v.GetString("database.mysql.database"); db != "" {
			c.MySQL.Database = db
		}
	}
	return nil
}

// SanitizedTarget returns the MySQL DSN with the password masked.
func (c *Config) SanitizedTarget() string {
	dsn := datastore.MySQLDSN(&c.MySQL)
	if idx := strings.Index(dsn, ":"); idx != -1 {
		if atIdx := strings.Index(dsn, "@"); atIdx > idx {
			return dsn[:idx+1] + "****" + dsn[atIdx:]
		}
	}
	return dsn
}
