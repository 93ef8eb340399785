package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig is the optional TOML configuration file. Keys left out of the
// file keep their environment or default value, and an environment variable
// that is set always wins over the file.
type FileConfig struct {
	Port            *string   `toml:"port"`
	ShutdownTimeout *duration `toml:"shutdown_timeout"`
	RateLimit       *int      `toml:"rate_limit_per_minute"`
	TrustedProxies  []string  `toml:"trusted_proxies"`

	DataBackend  *string `toml:"data_backend"`
	SQLiteDBName *string `toml:"sqlite_db_name"`

	AMQPURL           *string `toml:"amqp_url"`
	AMQPExchange      *string `toml:"amqp_exchange"`
	AMQPRoutingPrefix *string `toml:"amqp_routing_prefix"`
	AMQPQueue         *string `toml:"amqp_queue"`

	DefaultBaseAmount *float64  `toml:"default_base_amount"`
	SummaryCacheTTL   *duration `toml:"summary_cache_ttl"`

	LogLevel  *string `toml:"log_level"`
	LogFormat *string `toml:"log_format"`
}

// duration decodes TOML strings such as "30s" or "1m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadFile decodes a TOML configuration file. Unknown keys are an error so
// typos do not go unnoticed.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return &fc, nil
}

// ApplyTo copies every value set in the file onto c unless the matching
// environment variable is set.
func (f *FileConfig) ApplyTo(c *Config) {
	setString(&c.Port, f.Port, "PORT")
	setDuration(&c.ShutdownTimeout, f.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	if f.RateLimit != nil && !envSet("RATE_LIMIT_PER_MINUTE") {
		c.RateLimit = *f.RateLimit
	}

	if f.TrustedProxies != nil && !envSet("TRUSTED_PROXIES") {
		c.TrustedProxies = f.TrustedProxies
	}

	setString(&c.DataBackend, f.DataBackend, "DATA_BACKEND")
	setString(&c.SQLiteDBName, f.SQLiteDBName, "SQLITE_DB_NAME")

	setString(&c.AMQPURL, f.AMQPURL, "AMQP_URL")
	setString(&c.AMQPExchange, f.AMQPExchange, "AMQP_EXCHANGE")
	setString(&c.AMQPRoutingPrefix, f.AMQPRoutingPrefix, "AMQP_ROUTING_PREFIX")
	setString(&c.AMQPQueue, f.AMQPQueue, "AMQP_QUEUE")

	if f.DefaultBaseAmount != nil && !envSet("DEFAULT_BASE_AMOUNT") {
		c.DefaultBaseAmount = *f.DefaultBaseAmount
	}
	setDuration(&c.SummaryCacheTTL, f.SummaryCacheTTL, "SUMMARY_CACHE_TTL")

	if f.LogLevel != nil && !envSet("LOG_LEVEL") {
		c.LogLevel = strings.ToLower(*f.LogLevel)
	}
	if f.LogFormat != nil && !envSet("LOG_FORMAT") {
		c.LogFormat = strings.ToLower(*f.LogFormat)
	}
}

func envSet(key string) bool {
	return os.Getenv(key) != ""
}

func setString(dst *string, v *string, key string) {
	if v != nil && !envSet(key) {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *duration, key string) {
	if v != nil && !envSet(key) {
		*dst = v.Duration
	}
}
