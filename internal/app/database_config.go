package app

import (
	"strings"

	"github.com/charlesng35/cabinet/internal/database"
)

// ConnectionConfig converts the database section into the database package representation.
// Unknown drivers are passed through so that database.Open reports them.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth *DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = &c.Postgres
	case "mysql":
		auth = &c.MySQL
	}

	if auth != nil {
		dbCfg.Host = strings.TrimSpace(auth.Host)
		dbCfg.Port = auth.Port
		dbCfg.Name = strings.TrimSpace(auth.Database)
		dbCfg.User = strings.TrimSpace(auth.Username)
		dbCfg.Password = auth.Password
	}
	return dbCfg
}
