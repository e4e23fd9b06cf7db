package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "cabinet", Name: "cabinet"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=cabinet dbname=cabinet TimeZone=UTC sslmode=disable", dsn)
}

func TestBuildPostgresDSNOverridesDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "cabinet",
		Name:     "practice",
		Host:     "db.internal",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "reminders",
		},
	})
	require.NoError(t, err)
	require.Equal(t,
		"host=db.internal port=6543 user=cabinet dbname=practice password=pass TimeZone=UTC search_path=reminders sslmode=require",
		dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "cabinet", Name: "cabinet"})
	require.NoError(t, err)
	require.Equal(t, "cabinet@tcp(127.0.0.1:3306)/cabinet?charset=utf8mb4&loc=UTC&parseTime=True", dsn)

	dsn, err = buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.internal",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "loc": "Local"},
	})
	require.NoError(t, err)
	require.Equal(t, "user:secret@tcp(db.internal:3307)/db?charset=utf8mb4&loc=Local&parseTime=True&tls=skip-verify", dsn)
}

func TestDSNOverrideWins(t *testing.T) {
	for _, build := range []func(Config) (string, error){buildPostgresDSN, buildMySQLDSN} {
		dsn, err := build(Config{DSN: "custom"})
		require.NoError(t, err)
		require.Equal(t, "custom", dsn)
	}
}

func TestDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestMergeOptionsDoesNotMutateDefaults(t *testing.T) {
	defaults := map[string]string{"a": "1"}
	pairs := mergeOptions(defaults, map[string]string{"a": "2", "b": "3"})
	require.Equal(t, []string{"a=2", "b=3"}, pairs)
	require.Equal(t, "1", defaults["a"])
}
