package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Sessions run in UTC: reminder windows are compared against UTC timestamps.
var postgresDefaults = map[string]string{
	"sslmode":  "disable",
	"TimeZone": "UTC",
}

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	params := []string{
		"host=" + withDefault(cfg.Host, "localhost"),
		fmt.Sprintf("port=%d", withDefault(cfg.Port, 5432)),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}
	params = append(params, mergeOptions(postgresDefaults, cfg.Options)...)

	return strings.Join(params, " "), nil
}
