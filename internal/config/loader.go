package config

import (
	"log/slog"

	"github.com/reflexity/ingest/internal/db"

	"github.com/spf13/viper"
)

// Storage holds the storage-provider settings used by the webhook path.
type Storage struct {
	URL        string
	ServiceKey string
}

// Workers bounds the background ingestion pool.
type Workers struct {
	Count      int
	QueueDepth int
}

// Config is the process configuration, built once at startup and passed into
// constructors explicitly.
type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	MigrationsPath string
	Database       db.Config
	Storage        Storage
	Workers        Workers
}

// Default returns the configuration used when neither config.yaml nor
// environment variables override a value.
func Default() Config {
	return Config{
		ServerAddr:     ":8000",
		AllowedOrigins: []string{"*"},
		MigrationsPath: "./migrations",
		Database:       db.DefaultConfig(),
		Workers: Workers{
			Count:      4,
			QueueDepth: 64,
		},
	}
}

// Load reads config.yaml from the given path when present and applies
// environment overrides (APP_DATABASE_HOST, APP_STORAGE_URL, ...). A missing
// config file is not an error; env vars and defaults cover everything.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	v.BindEnv("database.host", "APP_DATABASE_HOST", "DB_HOST")
	v.BindEnv("database.port", "APP_DATABASE_PORT", "DB_PORT")
	v.BindEnv("database.user", "APP_DATABASE_USER", "DB_USER")
	v.BindEnv("database.password", "APP_DATABASE_PASSWORD", "DB_PASSWORD")
	v.BindEnv("database.dbname", "APP_DATABASE_DBNAME", "DB_DBNAME")
	v.BindEnv("database.sslmode", "APP_DATABASE_SSLMODE", "DB_SSLMODE")
	v.BindEnv("storage.url", "APP_STORAGE_URL", "STORAGE_URL")
	v.BindEnv("storage.service_key", "APP_STORAGE_SERVICE_KEY", "STORAGE_SERVICE_KEY")
	v.BindEnv("server.addr", "APP_SERVER_ADDR")
	v.BindEnv("workers.count", "APP_WORKERS_COUNT")
	v.BindEnv("workers.queue_depth", "APP_WORKERS_QUEUE_DEPTH")

	if err := v.ReadInConfig(); err != nil {
		slog.Info("no config.yaml found, using defaults and env vars")
	} else {
		slog.Info("loaded config.yaml", "path", v.ConfigFileUsed())
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("storage.url") {
		cfg.Storage.URL = v.GetString("storage.url")
	}
	if v.IsSet("storage.service_key") {
		cfg.Storage.ServiceKey = v.GetString("storage.service_key")
	}
	if v.IsSet("server.addr") {
		cfg.ServerAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}
	if v.IsSet("workers.count") {
		cfg.Workers.Count = v.GetInt("workers.count")
	}
	if v.IsSet("workers.queue_depth") {
		cfg.Workers.QueueDepth = v.GetInt("workers.queue_depth")
	}

	return cfg, nil
}
