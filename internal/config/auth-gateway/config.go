package auth_gateway_config

import (
	"time"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/obs"
	"github.com/NordCoder/bazaar/internal/outbox"
	pg "github.com/NordCoder/bazaar/internal/repository/postgres"
	rdb "github.com/NordCoder/bazaar/internal/repository/redis"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DB struct {
	Driver    string `mapstructure:"driver"`
	pg.Config `mapstructure:",squash"`
}

// Outbox routes identity events through postgres before Kafka. It only
// applies to the postgres driver.
type Outbox struct {
	Enable        bool `mapstructure:"enable"`
	outbox.Config `mapstructure:",squash"`
}

type Kafka struct {
	Enable            bool     `mapstructure:"enable"`
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	Outbox            Outbox   `mapstructure:"outbox"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "bazaar/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// Keys holds PEM-encoded RSA keys, one pair per token kind. They come from
// the environment only.
type Keys struct {
	AccessPrivate  string `mapstructure:"access_private"`
	AccessPublic   string `mapstructure:"access_public"`
	RefreshPrivate string `mapstructure:"refresh_private"`
	RefreshPublic  string `mapstructure:"refresh_public"`
}

type Auth struct {
	Keys             Keys                `mapstructure:"keys"`
	Pepper           string              `mapstructure:"pepper"`
	Password         auth.PasswordConfig `mapstructure:"password"`
	AccessTTL        time.Duration       `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration       `mapstructure:"refresh_ttl"`
	RenewalThreshold time.Duration       `mapstructure:"renewal_threshold"`
	DefaultCurrency  string              `mapstructure:"default_currency"`
}

type Config struct {
	App    App        `mapstructure:"app"`
	Server Server     `mapstructure:"server"`
	DB     DB         `mapstructure:"db"`
	Redis  rdb.Config `mapstructure:"redis"`
	Kafka  Kafka      `mapstructure:"kafka"`
	OTEL   OTEL       `mapstructure:"otel"`
	Log    Log        `mapstructure:"log"`
	Auth   Auth       `mapstructure:"auth"`
}

// CookieSecure reports whether auth cookies need the Secure attribute.
// Local and test environments run over plain HTTP.
func (c *Config) CookieSecure() bool {
	switch c.App.Env {
	case "local", "test":
		return false
	default:
		return true
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
