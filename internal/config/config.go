// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and an
// optional JSON or YAML config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MISSIOND_DATABASE_DSN.
const EnvPrefix = "MISSIOND"

// Supported store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `mapstructure:"address"`

	// Store selects the persistence backend: postgres or mongo.
	Store string `mapstructure:"store"`
	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `mapstructure:"database_dsn"`
	// MongoURI and MongoDatabase locate the MongoDB store.
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	// JWTSecret signs bearer tokens.
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// ExpoPushURL is the Expo push endpoint; ExpoAccessToken is optional.
	ExpoPushURL     string        `mapstructure:"expo_push_url"`
	ExpoAccessToken string        `mapstructure:"expo_access_token"`
	NotifyTimeout   time.Duration `mapstructure:"notify_timeout"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	LogLevel             string        `mapstructure:"log_level"`
	TokenCleanupInterval time.Duration `mapstructure:"token_cleanup_interval"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`

	// Config is the path to the config file.
	Config string `mapstructure:"config"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"address":                "address",
	"store":                  "store",
	"database-dsn":           "database_dsn",
	"mongo-uri":              "mongo_uri",
	"mongo-database":         "mongo_database",
	"jwt-secret":             "jwt_secret",
	"token-ttl":              "token_ttl",
	"expo-push-url":          "expo_push_url",
	"expo-access-token":      "expo_access_token",
	"notify-timeout":         "notify_timeout",
	"tls-cert-file":          "tls_cert_file",
	"tls-key-file":           "tls_key_file",
	"log-level":              "log_level",
	"token-cleanup-interval": "token_cleanup_interval",
	"shutdown-timeout":       "shutdown_timeout",
	"config":                 "config",
}

// RegisterFlags defines the server flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("address", "a", "localhost:8080", "run on ip:port server")
	fs.String("store", StorePostgres, "persistence backend: postgres or mongo")
	fs.StringP("database-dsn", "d", "", "postgres connection string")
	fs.String("mongo-uri", "mongodb://localhost:27017", "mongodb connection uri")
	fs.String("mongo-database", "missiond", "mongodb database name")
	fs.String("jwt-secret", "", "secret used to sign bearer tokens")
	fs.Duration("token-ttl", 7*24*time.Hour, "lifetime of issued bearer tokens")
	fs.String("expo-push-url", "https://exp.host/--/api/v2/push/send", "expo push endpoint")
	fs.String("expo-access-token", "", "expo push access token")
	fs.Duration("notify-timeout", 15*time.Second, "upper bound for one notification dispatch")
	fs.String("tls-cert-file", "", "serve HTTPS with this certificate")
	fs.String("tls-key-file", "", "private key for --tls-cert-file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Duration("token-cleanup-interval", time.Hour, "interval of the invalid push token cleanup")
	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	fs.StringP("config", "c", "", "path to a JSON or YAML config file")
}

// Load resolves the options from, in increasing precedence, flag defaults,
// the config file, MISSIOND_* environment variables and explicitly set flags.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Options, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	opts := &Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	opts.Store = strings.ToLower(strings.TrimSpace(opts.Store))
	return opts, nil
}

// Parse parses args as server flags and returns the validated options.
func Parse(args []string) (*Options, error) {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts, err := Load(viper.New(), fs)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// ValidateStore checks the settings needed to open the store.
func (o *Options) ValidateStore() error {
	switch o.Store {
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("database_dsn is required for the postgres store")
		}
	case StoreMongo:
		if o.MongoURI == "" || o.MongoDatabase == "" {
			return errors.New("mongo_uri and mongo_database are required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store %q", o.Store)
	}
	return nil
}

// Validate checks everything the server needs to start.
func (o *Options) Validate() error {
	if err := o.ValidateStore(); err != nil {
		return err
	}
	if strings.TrimSpace(o.JWTSecret) == "" {
		return errors.New("jwt_secret is required")
	}
	if (o.TLSCertFile == "") != (o.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}
