package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "store",
		Password: "secret",
		Name:     "storefront",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "dbname=storefront")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{Host: "db"})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "store", Password: "pw", Name: "storefront"})
	require.NoError(t, err)
	require.Contains(t, dsn, "store:pw@tcp(127.0.0.1:3306)/storefront")
	require.Contains(t, dsn, "parseTime=True")
	require.Contains(t, dsn, "loc=UTC")
}

func TestBuildMySQLDSNOptionOverride(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:    "store",
		Name:    "storefront",
		Options: map[string]string{"loc": "Local", "tls": "preferred"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "loc=Local")
	require.Contains(t, dsn, "tls=preferred")
}

func TestDSNOverrideWins(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
