package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// envVars lists every variable applyEnvOverrides reads.
var envVars = []string{
	"DISCORD_TOKEN", "DISCORD_GUILD_ID",
	"MQTT_BROKER", "MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_TOPIC", "MQTT_CLIENT_ID",
	"DATA_PATH", "REGISTRY_PATH", "LOG_LEVEL", "INFLUXDB_TOKEN",
}

// clearEnv blanks the override variables so the host environment cannot leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)

	content := `
discord:
  token: "file-token"
mqtt:
  broker:
    host: "broker.local"
    port: 1884
    client_id: "test-client"
  qos: 2
  topic: "home/notify"
registry:
  path: "/tmp/registry.json"
relay:
  delivery_timeout: 3
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.MQTT.Topic != "home/notify" {
		t.Errorf("MQTT.Topic = %q, want %q", cfg.MQTT.Topic, "home/notify")
	}
	if cfg.Registry.Path != "/tmp/registry.json" {
		t.Errorf("Registry.Path = %q, want %q", cfg.Registry.Path, "/tmp/registry.json")
	}
	if cfg.Discord.Token != "file-token" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "file-token")
	}
	// Untouched sections keep their defaults
	if cfg.Relay.DefaultSource != "Unknown" {
		t.Errorf("Relay.DefaultSource = %q, want %q", cfg.Relay.DefaultSource, "Unknown")
	}
	if got := cfg.GetDeliveryTimeout().Seconds(); got != 3 {
		t.Errorf("GetDeliveryTimeout() = %vs, want 3s", got)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.MQTT.Topic != "/home/discord-bot/messages" {
		t.Errorf("MQTT.Topic = %q, want default", cfg.MQTT.Topic)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Registry.Path != filepath.Join("data", "registry.json") {
		t.Errorf("Registry.Path = %q, want data/registry.json", cfg.Registry.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	clearEnv(t)

	content := `
mqtt:
  qos: 5
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for qos 5, got nil")
	}
	if !strings.Contains(err.Error(), "mqtt.qos") {
		t.Errorf("error = %v, want mention of mqtt.qos", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("MQTT_BROKER", "mqtts://mosquitto.home")
	t.Setenv("MQTT_USERNAME", "bot")
	t.Setenv("MQTT_PASSWORD", "secret")
	t.Setenv("MQTT_TOPIC", "/custom/topic")
	t.Setenv("DATA_PATH", "/srv/bot")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discord.Token != "env-token" {
		t.Errorf("Discord.Token = %q, want env-token", cfg.Discord.Token)
	}
	if cfg.MQTT.Broker.Host != "mosquitto.home" || cfg.MQTT.Broker.Port != 8883 || !cfg.MQTT.Broker.TLS {
		t.Errorf("Broker = %+v, want mosquitto.home:8883 with TLS", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Auth.Username != "bot" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("Auth = %+v, want bot/secret", cfg.MQTT.Auth)
	}
	if cfg.MQTT.Topic != "/custom/topic" {
		t.Errorf("MQTT.Topic = %q, want /custom/topic", cfg.MQTT.Topic)
	}
	if cfg.Registry.Path != filepath.Join("/srv/bot", "registry.json") {
		t.Errorf("Registry.Path = %q, want /srv/bot/registry.json", cfg.Registry.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_RegistryPathBeatsDataPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PATH", "/srv/bot")
	t.Setenv("REGISTRY_PATH", "/var/lib/bot/names.json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Registry.Path != "/var/lib/bot/names.json" {
		t.Errorf("Registry.Path = %q, want /var/lib/bot/names.json", cfg.Registry.Path)
	}
}

func TestLoad_InvalidBrokerEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MQTT_BROKER", "http://broker:1883")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for unsupported broker scheme")
	}
}

func TestParseBrokerURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantPort int
		wantTLS  bool
		wantErr  bool
	}{
		{name: "mqtt with port", input: "mqtt://localhost:1883", wantHost: "localhost", wantPort: 1883},
		{name: "mqtt default port", input: "mqtt://mosquitto.home", wantHost: "mosquitto.home", wantPort: 1883},
		{name: "mqtts default port", input: "mqtts://broker", wantHost: "broker", wantPort: 8883, wantTLS: true},
		{name: "ssl explicit port", input: "ssl://broker:9999", wantHost: "broker", wantPort: 9999, wantTLS: true},
		{name: "tcp scheme", input: "tcp://10.0.0.5:1884", wantHost: "10.0.0.5", wantPort: 1884},
		{name: "bare host and port", input: "broker:1885", wantHost: "broker", wantPort: 1885},
		{name: "bare host", input: "broker", wantHost: "broker", wantPort: 1883},
		{name: "surrounding whitespace", input: "  mqtt://broker:1883 ", wantHost: "broker", wantPort: 1883},
		{name: "empty", input: "", wantErr: true},
		{name: "unsupported scheme", input: "http://broker", wantErr: true},
		{name: "bad port", input: "mqtt://broker:abc", wantErr: true},
		{name: "port out of range", input: "mqtt://broker:70000", wantErr: true},
		{name: "missing host", input: "mqtt://:1883", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, tls, err := ParseBrokerURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBrokerURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost || port != tt.wantPort || tls != tt.wantTLS {
				t.Errorf("ParseBrokerURL(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.input, host, port, tls, tt.wantHost, tt.wantPort, tt.wantTLS)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty broker host", mutate: func(c *Config) { c.MQTT.Broker.Host = "" }, wantErr: true},
		{name: "invalid broker port", mutate: func(c *Config) { c.MQTT.Broker.Port = 0 }, wantErr: true},
		{name: "negative qos", mutate: func(c *Config) { c.MQTT.QoS = -1 }, wantErr: true},
		{name: "empty topic", mutate: func(c *Config) { c.MQTT.Topic = "" }, wantErr: true},
		{name: "password without username", mutate: func(c *Config) { c.MQTT.Auth.Password = "x" }, wantErr: true},
		{name: "empty registry path", mutate: func(c *Config) { c.Registry.Path = "" }, wantErr: true},
		{name: "zero delivery timeout", mutate: func(c *Config) { c.Relay.DeliveryTimeout = 0 }, wantErr: true},
		{name: "empty default source", mutate: func(c *Config) { c.Relay.DefaultSource = "" }, wantErr: true},
		{name: "api host not an ip", mutate: func(c *Config) { c.API.Host = "example.com" }, wantErr: true},
		{name: "api disabled skips api checks", mutate: func(c *Config) { c.API.Enabled = false; c.API.Host = "example.com" }},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "influxdb enabled without settings",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name: "influxdb fully configured",
			mutate: func(c *Config) {
				c.InfluxDB = InfluxDBConfig{Enabled: true, URL: "http://influx:8086", Token: "t", Org: "home", Bucket: "bot"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_RequireDiscord(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.RequireDiscord(); err == nil {
		t.Error("RequireDiscord() expected error without token")
	}

	cfg.Discord.Token = "   "
	if err := cfg.RequireDiscord(); err == nil {
		t.Error("RequireDiscord() expected error for blank token")
	}

	cfg.Discord.Token = "token"
	if err := cfg.RequireDiscord(); err != nil {
		t.Errorf("RequireDiscord() error = %v, want nil", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) error = %v, want nil", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") error = %v, want nil", err)
	}

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("MQTT_TOPIC=from/dotenv\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// godotenv does not override variables that are already set, even when empty.
	os.Unsetenv("MQTT_TOPIC")
	t.Cleanup(func() { os.Unsetenv("MQTT_TOPIC") })

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Topic != "from/dotenv" {
		t.Errorf("MQTT.Topic = %q, want from/dotenv", cfg.MQTT.Topic)
	}
}

func TestConfig_BrokerAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.Broker.Host = "broker"
	cfg.MQTT.Broker.Port = 1884
	if got := cfg.BrokerAddress(); got != "broker:1884" {
		t.Errorf("BrokerAddress() = %q, want broker:1884", got)
	}
}
