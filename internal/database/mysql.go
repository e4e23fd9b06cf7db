package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// parseTime and loc=UTC keep DATETIME columns round-tripping as UTC time.Time values.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "UTC",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials += ":" + cfg.Password
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		credentials,
		withDefault(cfg.Host, "127.0.0.1"),
		withDefault(cfg.Port, 3306),
		cfg.Name,
		strings.Join(mergeOptions(mysqlDefaults, cfg.Options), "&"),
	), nil
}
