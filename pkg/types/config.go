package types

import "time"

// HTTPConfig holds shared HTTP settings used by every provider client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "patent-chooser/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PrimaryConfig configures the primary bibliographic data provider.
type PrimaryConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxResults is the number of hits the provider lets a client page
	// through (default 2000).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// PageSize is the default display page size (default 10).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
}

// DatasourceConfig configures one auxiliary search provider.
type DatasourceConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxResults is the number of hits reachable through paging.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// APIKey is an optional provider credential.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// NormalizerConfig configures the number normalization service.
type NormalizerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// BasketConfig selects the persistent entry store.
type BasketConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the data source name handed to database/sql.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// Project is the project activated by CLI commands.
	Project string `json:"project" yaml:"project" mapstructure:"project"`
}

// CacheConfig configures the memoized primary-provider query layer.
type CacheConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr     string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int           `json:"db" yaml:"db" mapstructure:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// SignalsConfig configures forwarding of signal-bus events to Kafka.
type SignalsConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `json:"topic" yaml:"topic" mapstructure:"topic"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups the settings of every component.
type Config struct {
	Log         LogConfig                   `json:"log" yaml:"log" mapstructure:"log"`
	HTTP        HTTPConfig                  `json:"http" yaml:"http" mapstructure:"http"`
	Primary     PrimaryConfig               `json:"primary" yaml:"primary" mapstructure:"primary"`
	Datasources map[string]DatasourceConfig `json:"datasources" yaml:"datasources" mapstructure:"datasources"`
	Normalizer  NormalizerConfig            `json:"normalizer" yaml:"normalizer" mapstructure:"normalizer"`
	Basket      BasketConfig                `json:"basket" yaml:"basket" mapstructure:"basket"`
	Cache       CacheConfig                 `json:"cache" yaml:"cache" mapstructure:"cache"`
	Signals     SignalsConfig               `json:"signals" yaml:"signals" mapstructure:"signals"`
	Server      ServerConfig                `json:"server" yaml:"server" mapstructure:"server"`
}

// MaxResults returns the paging limit for a datasource, or 0 when unknown.
func (c Config) MaxResults(datasource string) int {
	if datasource == DatasourceOPS {
		return c.Primary.MaxResults
	}
	if ds, ok := c.Datasources[datasource]; ok {
		return ds.MaxResults
	}
	return 0
}
