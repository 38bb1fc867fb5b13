package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENTITY_TEST_PASSWORD", "s3cret")

	path := writeConfig(t, `
driver: pgx
host: db.internal
database: library
user: app
password: ${ENTITY_TEST_PASSWORD}
params:
  sslmode: require
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Driver)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, map[string]string{"sslmode": "require"}, cfg.Params)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = LoadConfig(writeConfig(t, "driver: [pgx"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = LoadConfig(writeConfig(t, "host: localhost\n"))
	assert.ErrorContains(t, err, "driver is required")
}

func TestConfigDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "postgres defaults",
			cfg:  Config{Driver: "pgx", Database: "library", User: "app", Password: "pw"},
			want: "postgres://app:pw@localhost:5432/library?sslmode=disable",
		},
		{
			name: "postgres params",
			cfg:  Config{Driver: "postgres", Host: "db", Port: "6432", Database: "library", User: "app", Password: "pw", Params: map[string]string{"sslmode": "require"}},
			want: "postgres://app:pw@db:6432/library?sslmode=require",
		},
		{
			name: "sqlite memory",
			cfg:  Config{Driver: "sqlite"},
			want: ":memory:",
		},
		{
			name: "sqlite params",
			cfg:  Config{Driver: "sqlite", Path: "library.db", Params: map[string]string{"_pragma": "foreign_keys(1)", "cache": "shared"}},
			want: "file:library.db?_pragma=foreign_keys%281%29&cache=shared",
		},
		{
			name: "mysql",
			cfg:  Config{Driver: "mysql", Database: "library", User: "app", Password: "pw"},
			want: "app:pw@tcp(localhost:3306)/library?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Config{Driver: "oracle"}.DSN()
	assert.ErrorContains(t, err, `unsupported driver "oracle"`)
}

func TestOpenSqlite(t *testing.T) {
	t.Parallel()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())
	assert.Equal(t, "sqlite", db.DriverName())
}
