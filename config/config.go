package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Worker      WorkerConfig      `yaml:"worker"`
	Log         LogConfig         `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Driver   string       `yaml:"driver"`
	Host     string       `yaml:"host"`
	Port     int          `yaml:"port"`
	User     string       `yaml:"user"`
	Password string       `yaml:"password"`
	Name     string       `yaml:"name"`
	SSLMode  string       `yaml:"ssl_mode"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type SQLiteConfig struct {
	Path               string `yaml:"path"`
	BusyTimeoutSeconds int    `yaml:"busy_timeout_seconds"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
}

func (s SQLiteConfig) BusyTimeout() time.Duration {
	return time.Duration(s.BusyTimeoutSeconds) * time.Second
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	AuditTopic         string   `yaml:"audit_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type ReservationConfig struct {
	HoldTTLSeconds           int `yaml:"hold_ttl_seconds"`
	MaxHoldTTLSeconds        int `yaml:"max_hold_ttl_seconds"`
	AvailabilityCacheSeconds int `yaml:"availability_cache_ttl_seconds"`
	AuditTimeoutMillis       int `yaml:"audit_timeout_ms"`
}

func (r ReservationConfig) HoldTTL() time.Duration {
	return time.Duration(r.HoldTTLSeconds) * time.Second
}

func (r ReservationConfig) MaxHoldTTL() time.Duration {
	return time.Duration(r.MaxHoldTTLSeconds) * time.Second
}

func (r ReservationConfig) AvailabilityCacheTTL() time.Duration {
	return time.Duration(r.AvailabilityCacheSeconds) * time.Second
}

func (r ReservationConfig) AuditTimeout() time.Duration {
	return time.Duration(r.AuditTimeoutMillis) * time.Millisecond
}

// BusinessHours describes when slots may be generated for a resource class.
// Open and Close are "HH:MM" in the catalog location; Close "24:00" means midnight.
type BusinessHours struct {
	Open     string   `yaml:"open"`
	Close    string   `yaml:"close"`
	Weekdays []string `yaml:"weekdays"`
}

// DirectoryEntry is one resource the worker keeps generated ahead of time.
type DirectoryEntry struct {
	ResourceClass      string `yaml:"resource_class"`
	ResourceIdentifier string `yaml:"resource_identifier"`
	ServiceTag         string `yaml:"service_tag"`
	SlotMinutes        int    `yaml:"slot_minutes"`
}

type CatalogConfig struct {
	Location      string                   `yaml:"location"`
	BusinessHours map[string]BusinessHours `yaml:"business_hours"`
	MaxWindowDays int                      `yaml:"max_window_days"`
	HorizonDays   int                      `yaml:"horizon_days"`
	Directory     []DirectoryEntry         `yaml:"directory"`
}

type WorkerConfig struct {
	SweepIntervalSeconds      int `yaml:"sweep_interval_seconds"`
	GenerationIntervalMinutes int `yaml:"generation_interval_minutes"`
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.SweepIntervalSeconds) * time.Second
}

func (w WorkerConfig) GenerationInterval() time.Duration {
	return time.Duration(w.GenerationIntervalMinutes) * time.Minute
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "reservations.db"
	}
	if c.Database.SQLite.BusyTimeoutSeconds == 0 {
		c.Database.SQLite.BusyTimeoutSeconds = 5
	}
	if c.Database.SQLite.MaxOpenConns == 0 {
		c.Database.SQLite.MaxOpenConns = 4
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "reservation-notifier"
	}
	if c.Reservation.HoldTTLSeconds == 0 {
		c.Reservation.HoldTTLSeconds = 300
	}
	if c.Reservation.MaxHoldTTLSeconds == 0 {
		c.Reservation.MaxHoldTTLSeconds = 1800
	}
	if c.Reservation.AvailabilityCacheSeconds == 0 {
		c.Reservation.AvailabilityCacheSeconds = 10
	}
	if c.Reservation.AuditTimeoutMillis == 0 {
		c.Reservation.AuditTimeoutMillis = 2000
	}
	if c.Catalog.Location == "" {
		c.Catalog.Location = "UTC"
	}
	if c.Catalog.MaxWindowDays == 0 {
		c.Catalog.MaxWindowDays = 62
	}
	if c.Catalog.HorizonDays == 0 {
		c.Catalog.HorizonDays = 14
	}
	if c.Catalog.BusinessHours == nil {
		c.Catalog.BusinessHours = map[string]BusinessHours{}
	}
	if _, ok := c.Catalog.BusinessHours["appointment"]; !ok {
		c.Catalog.BusinessHours["appointment"] = BusinessHours{
			Open:     "08:00",
			Close:    "17:00",
			Weekdays: []string{"mon", "tue", "wed", "thu", "fri"},
		}
	}
	if _, ok := c.Catalog.BusinessHours["parking"]; !ok {
		c.Catalog.BusinessHours["parking"] = BusinessHours{
			Open:     "00:00",
			Close:    "24:00",
			Weekdays: []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
		}
	}
	if c.Worker.SweepIntervalSeconds == 0 {
		c.Worker.SweepIntervalSeconds = 30
	}
	if c.Worker.GenerationIntervalMinutes == 0 {
		c.Worker.GenerationIntervalMinutes = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Reservation.HoldTTLSeconds < 0 || c.Reservation.MaxHoldTTLSeconds < 0 {
		return errors.New("hold ttl must be positive")
	}
	if c.Reservation.HoldTTLSeconds > c.Reservation.MaxHoldTTLSeconds {
		return errors.New("hold_ttl_seconds exceeds max_hold_ttl_seconds")
	}
	if c.Worker.SweepIntervalSeconds < 0 {
		return errors.New("sweep_interval_seconds must be positive")
	}
	if _, err := time.LoadLocation(c.Catalog.Location); err != nil {
		return fmt.Errorf("catalog location: %w", err)
	}
	for i, e := range c.Catalog.Directory {
		if e.ResourceIdentifier == "" {
			return fmt.Errorf("directory[%d]: resource_identifier is required", i)
		}
		if _, ok := c.Catalog.BusinessHours[e.ResourceClass]; !ok {
			return fmt.Errorf("directory[%d]: no business hours for resource class %q", i, e.ResourceClass)
		}
		if e.SlotMinutes <= 0 {
			return fmt.Errorf("directory[%d]: slot_minutes must be positive", i)
		}
	}
	return nil
}
