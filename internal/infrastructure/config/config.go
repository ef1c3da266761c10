package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Broker port defaults used when MQTT_BROKER omits the port.
const (
	defaultMQTTPort    = 1883
	defaultMQTTTLSPort = 8883

	// registryFileName is the registry file created inside DATA_PATH.
	registryFileName = "registry.json"
)

// Config is the root configuration structure for the bot.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Registry RegistryConfig `yaml:"registry"`
	Relay    RelayConfig    `yaml:"relay"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DiscordConfig contains Discord bot settings.
type DiscordConfig struct {
	Token string `yaml:"token"`

	// GuildID registers slash commands on a single guild (instant update).
	// Empty registers them globally.
	GuildID string `yaml:"guild_id"`

	// SyncAttempts bounds slash command sync retries at startup.
	SyncAttempts int `yaml:"sync_attempts"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Topic       string              `yaml:"topic"`
	StatusTopic string              `yaml:"status_topic"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// RegistryConfig contains the registration file location.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// RelayConfig contains message dispatch settings.
type RelayConfig struct {
	// DeliveryTimeout bounds a single Discord delivery (seconds).
	DeliveryTimeout int    `yaml:"delivery_timeout"`
	DefaultSource   string `yaml:"default_source"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite settings for the audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// envOverrides lists the environment variables understood by the bot.
// The names match the variables used by existing deployments.
type envOverrides struct {
	DiscordToken   string `envconfig:"DISCORD_TOKEN"`
	DiscordGuildID string `envconfig:"DISCORD_GUILD_ID"`
	MQTTBroker     string `envconfig:"MQTT_BROKER"`
	MQTTUsername   string `envconfig:"MQTT_USERNAME"`
	MQTTPassword   string `envconfig:"MQTT_PASSWORD"`
	MQTTTopic      string `envconfig:"MQTT_TOPIC"`
	MQTTClientID   string `envconfig:"MQTT_CLIENT_ID"`
	DataPath       string `envconfig:"DATA_PATH"`
	RegistryPath   string `envconfig:"REGISTRY_PATH"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	InfluxDBToken  string `envconfig:"INFLUXDB_TOKEN"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (skipped when path is empty)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for environment-only setups
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. Variables already set are not overwritten and a missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			SyncAttempts: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     defaultMQTTPort,
				ClientID: "discord-mqtt-bot",
			},
			QoS:         1,
			Topic:       "/home/discord-bot/messages",
			StatusTopic: "discord-bot/status",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Registry: RegistryConfig{
			Path: filepath.Join("data", registryFileName),
		},
		Relay: RelayConfig{
			DeliveryTimeout: 10,
			DefaultSource:   "Unknown",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        filepath.Join("data", "audit.db"),
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Only variables that are set and non-empty replace file values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	setIf(&cfg.Discord.Token, env.DiscordToken)
	setIf(&cfg.Discord.GuildID, env.DiscordGuildID)

	if env.MQTTBroker != "" {
		host, port, tls, err := ParseBrokerURL(env.MQTTBroker)
		if err != nil {
			return err
		}
		cfg.MQTT.Broker.Host = host
		cfg.MQTT.Broker.Port = port
		cfg.MQTT.Broker.TLS = tls
	}
	setIf(&cfg.MQTT.Auth.Username, env.MQTTUsername)
	setIf(&cfg.MQTT.Auth.Password, env.MQTTPassword)
	setIf(&cfg.MQTT.Topic, env.MQTTTopic)
	setIf(&cfg.MQTT.Broker.ClientID, env.MQTTClientID)

	// DATA_PATH keeps the registry file name; REGISTRY_PATH wins when both are set.
	if env.DataPath != "" {
		cfg.Registry.Path = filepath.Join(env.DataPath, registryFileName)
		cfg.Database.Path = filepath.Join(env.DataPath, "audit.db")
	}
	setIf(&cfg.Registry.Path, env.RegistryPath)

	setIf(&cfg.Logging.Level, env.LogLevel)
	setIf(&cfg.InfluxDB.Token, env.InfluxDBToken)

	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ParseBrokerURL splits an MQTT broker address into host, port and TLS flag.
//
// Accepted forms:
//   - mqtt://host:port, tcp://host:port (plain)
//   - mqtts://host:port, ssl://host:port, tls://host:port (TLS)
//   - host:port or host (plain)
//
// The port defaults to 1883 (8883 for TLS) when omitted.
func ParseBrokerURL(raw string) (host string, port int, tls bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, false, fmt.Errorf("mqtt broker address is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "mqtt://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("parsing mqtt broker %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mqtt", "tcp":
	case "mqtts", "ssl", "tls":
		tls = true
	default:
		return "", 0, false, fmt.Errorf("unsupported mqtt broker scheme %q", u.Scheme)
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("mqtt broker %q has no host", raw)
	}

	port = defaultMQTTPort
	if tls {
		port = defaultMQTTTLSPort
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return "", 0, false, fmt.Errorf("invalid mqtt broker port %q", p)
		}
	}

	return host, port, tls, nil
}

// Validate checks the configuration for errors.
//
// The Discord token is not checked here; commands that talk to Discord
// call RequireDiscord.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required (set MQTT_TOPIC environment variable)")
	}
	if c.MQTT.Auth.Username == "" && c.MQTT.Auth.Password != "" {
		errs = append(errs, "mqtt.auth.password is set without mqtt.auth.username")
	}

	// Registry validation
	if c.Registry.Path == "" {
		errs = append(errs, "registry.path is required")
	}

	// Relay validation
	if c.Relay.DeliveryTimeout < 1 {
		errs = append(errs, "relay.delivery_timeout must be at least 1 second")
	}
	if c.Relay.DefaultSource == "" {
		errs = append(errs, "relay.default_source is required")
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 0 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 0 and 65535")
		}
		if ip := net.ParseIP(c.API.Host); c.API.Host != "" && c.API.Host != "localhost" && ip == nil {
			errs = append(errs, "api.host must be an IP address or localhost")
		}
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the audit database is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set INFLUXDB_TOKEN)")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RequireDiscord verifies the settings needed to log in to Discord.
func (c *Config) RequireDiscord() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return fmt.Errorf("discord.token is required (set DISCORD_TOKEN environment variable)")
	}
	if c.Discord.SyncAttempts < 1 {
		return fmt.Errorf("discord.sync_attempts must be at least 1")
	}
	return nil
}

// BrokerAddress returns host:port of the configured broker.
func (c *Config) BrokerAddress() string {
	return net.JoinHostPort(c.MQTT.Broker.Host, strconv.Itoa(c.MQTT.Broker.Port))
}

// GetDeliveryTimeout returns the per-message delivery timeout as a Duration.
func (c *Config) GetDeliveryTimeout() time.Duration {
	return time.Duration(c.Relay.DeliveryTimeout) * time.Second
}
