package config

import (
	"fmt"
	"net/url"

	env "github.com/caarlos0/env/v11"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Common struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront-api"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Port string `env:"PORT" envDefault:"5000"`
}

func (h HTTPConfig) Addr() string { return ":" + h.Port }

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASS"`
	Host     string `env:"DB_HOST" envDefault:"cluster0.rqp1u.mongodb.net"`
	Database string `env:"DB_NAME" envDefault:"heroRunner"`
}

// ConnectionURI returns MONGO_URI when set, otherwise an Atlas style
// srv URI built from the credentials and host.
func (m MongoConfig) ConnectionURI() string {
	if m.URI != "" {
		return m.URI
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(m.User, m.Password),
		Host:     m.Host,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

type PostgresConfig struct {
	DSN       string `env:"POSTGRES_DSN"`
	DSNLegacy string `env:"PG_DSN"`
}

type FirebaseConfig struct {
	// ServiceAccount is the raw service account JSON of the identity issuer.
	ServiceAccount string `env:"FIREBASE_SERVICE_ACCOUNT"`
	CertsURL       string `env:"FIREBASE_CERTS_URL" envDefault:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
}

type Config struct {
	Common   Common
	HTTP     HTTPConfig
	Storage  StorageConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
}

func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadEnv parses the configuration from the given variables only,
// ignoring the process environment.
func LoadEnv(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, err
	}
	if cfg.Postgres.DSN == "" {
		cfg.Postgres.DSN = cfg.Postgres.DSNLegacy
	}

	switch cfg.Storage.Driver {
	case DriverMongo:
		if cfg.Mongo.URI == "" && (cfg.Mongo.User == "" || cfg.Mongo.Password == "") {
			return Config{}, fmt.Errorf("mongo credentials are empty: set MONGO_URI or DB_USER and DB_PASS")
		}
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return Config{}, fmt.Errorf("postgres dsn is empty: set POSTGRES_DSN (or legacy PG_DSN)")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return cfg, nil
}
