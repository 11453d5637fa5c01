package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  sqlite:
    path: /tmp/reservations.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/reservations.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 5*time.Minute, cfg.Reservation.HoldTTL())
	assert.Equal(t, 30*time.Second, cfg.Worker.SweepInterval())
	assert.Equal(t, "08:00", cfg.Catalog.BusinessHours["appointment"].Open)
	assert.Equal(t, "24:00", cfg.Catalog.BusinessHours["parking"].Close)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":9090"
database:
  host: db
  port: 6543
  user: u
  password: p
  name: reservations
reservation:
  hold_ttl_seconds: 120
catalog:
  location: Europe/Berlin
  directory:
    - resource_class: appointment
      resource_identifier: drA
      service_tag: consult
      slot_minutes: 30
worker:
  sweep_interval_seconds: 45
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "host=db port=6543 user=u password=p dbname=reservations sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 2*time.Minute, cfg.Reservation.HoldTTL())
	assert.Equal(t, 45*time.Second, cfg.Worker.SweepInterval())
	require.Len(t, cfg.Catalog.Directory, 1)
	assert.Equal(t, "drA", cfg.Catalog.Directory[0].ResourceIdentifier)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "database:\n  driver: mysql\n"},
		{name: "ttl above max", body: "reservation:\n  hold_ttl_seconds: 600\n  max_hold_ttl_seconds: 60\n"},
		{name: "bad location", body: "catalog:\n  location: Nowhere/Atlantis\n"},
		{name: "directory without hours", body: "catalog:\n  directory:\n    - resource_class: boat\n      resource_identifier: b1\n      slot_minutes: 30\n"},
		{name: "directory without duration", body: "catalog:\n  directory:\n    - resource_class: parking\n      resource_identifier: p1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.SQLite.BusyTimeout())
	assert.Len(t, cfg.Catalog.Directory, 2)
	assert.Equal(t, time.Hour, cfg.Worker.GenerationInterval())
}
