package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
	"github.com/nerrad567/discord-mqtt-bot/internal/relay"
)

// clearEnv blanks every variable config.Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "DISCORD_GUILD_ID",
		"MQTT_BROKER", "MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_TOPIC", "MQTT_CLIENT_ID",
		"DATA_PATH", "REGISTRY_PATH", "LOG_LEVEL", "INFLUXDB_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func writeRegistry(t *testing.T, entries []registry.Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := registry.NewFileStore(path).Save(entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, sub := range []string{"serve", "send", "registrations", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q command:\n%s", sub, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "discordbot "+version) {
		t.Errorf("version output = %q", out)
	}
}

func TestRegistrationsCommand_Table(t *testing.T) {
	registered := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path := writeRegistry(t, []registry.Entry{
		{Name: "alice", Recipient: registry.UserRecipient("111"), RegisteredAt: registered},
		{Name: "alerts", Recipient: registry.ChannelRecipient("222")},
	})

	out, err := execute(t, "registrations", "--file", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"NAME", "KIND", "alice", "user", "111", "2026-03-01T12:00:00Z", "alerts", "channel", "222"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "alice") > strings.Index(out, "alerts") {
		t.Errorf("entries not in registration order:\n%s", out)
	}
}

func TestRegistrationsCommand_JSON(t *testing.T) {
	path := writeRegistry(t, []registry.Entry{
		{Name: "alice", Recipient: registry.UserRecipient("111")},
	})

	out, err := execute(t, "registrations", "--file", path, "--json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got []registry.Entry
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Name != "alice" || got[0].Kind != registry.KindUser || got[0].PlatformID != "111" {
		t.Errorf("entries = %+v", got)
	}
}

func TestRegistrationsCommand_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.json")

	out, err := execute(t, "registrations", "--file", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "no registrations") {
		t.Errorf("output = %q", out)
	}
}

func TestRegistrationsCommand_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "registrations", "--file", path)
	if !errors.Is(err, registry.ErrCorruptFile) {
		t.Errorf("error = %v, want ErrCorruptFile", err)
	}
}

func TestRegistrationsCommand_PathFromConfig(t *testing.T) {
	clearEnv(t)
	regPath := writeRegistry(t, []registry.Entry{
		{Name: "from-config", Recipient: registry.ChannelRecipient("333")},
	})
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("registry:\n  path: "+regPath+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "registrations", "--config", cfgPath)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "from-config") {
		t.Errorf("output missing entry:\n%s", out)
	}
}

func TestRegistrationsCommand_PathFromEnv(t *testing.T) {
	clearEnv(t)
	regPath := writeRegistry(t, []registry.Entry{
		{Name: "from-env", Recipient: registry.UserRecipient("444")},
	})
	t.Setenv("DATA_PATH", filepath.Dir(regPath))

	out, err := execute(t, "registrations")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "from-env") {
		t.Errorf("output missing entry:\n%s", out)
	}
}

func TestSendCommand_DryRun(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name       string
		args       []string
		wantTopic  string
		wantSource any
	}{
		{
			name:       "default topic and source",
			args:       []string{"send", "alice", "disk full", "--dry-run"},
			wantTopic:  "/home/discord-bot/messages",
			wantSource: defaultSendSource,
		},
		{
			name:       "custom topic with source",
			args:       []string{"send", "alice", "disk full", "NAS", "--topic", "alerts/discord", "--dry-run"},
			wantTopic:  "alerts/discord",
			wantSource: "NAS",
		},
		{
			name:       "empty source omitted",
			args:       []string{"send", "alice", "disk full", "", "--dry-run"},
			wantTopic:  "/home/discord-bot/messages",
			wantSource: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			topic, payload, ok := strings.Cut(strings.TrimSpace(out), " <- ")
			if !ok {
				t.Fatalf("unexpected output %q", out)
			}
			if topic != tt.wantTopic {
				t.Errorf("topic = %q, want %q", topic, tt.wantTopic)
			}

			var raw map[string]any
			if err := json.Unmarshal([]byte(payload), &raw); err != nil {
				t.Fatalf("payload %q is not JSON: %v", payload, err)
			}
			if raw["target_id"] != "alice" || raw["message"] != "disk full" {
				t.Errorf("payload = %v", raw)
			}
			source, present := raw["source"]
			if tt.wantSource == nil {
				if present {
					t.Errorf("payload carries source %v, want none", source)
				}
			} else if source != tt.wantSource {
				t.Errorf("source = %v, want %v", source, tt.wantSource)
			}

			if _, err := relay.ParseNotification([]byte(payload)); err != nil {
				t.Errorf("payload %q rejected by the relay parser: %v", payload, err)
			}
		})
	}
}

func TestSendCommand_Rejects(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing message", []string{"send", "alice"}},
		{"too many args", []string{"send", "a", "b", "c", "d"}},
		{"empty target", []string{"send", "", "hello", "--dry-run"}},
		{"empty message", []string{"send", "alice", "", "--dry-run"}},
		{"qos out of range", []string{"send", "alice", "hi", "--qos", "3", "--dry-run"}},
		{"wildcard topic", []string{"send", "alice", "hi", "--topic", "alerts/#", "--dry-run"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("Execute() should fail")
			}
		})
	}
}

func TestBuildPayload_OmitsEmptySource(t *testing.T) {
	payload, err := buildPayload("alice", "hello", "")
	if err != nil {
		t.Fatalf("buildPayload() error = %v", err)
	}
	if strings.Contains(string(payload), "source") {
		t.Errorf("payload %s should not carry a source", payload)
	}
}

func TestPublisherConfig(t *testing.T) {
	base := config.MQTTConfig{
		Broker:      config.MQTTBrokerConfig{Host: "broker", Port: 1883, ClientID: "discord-mqtt-bot"},
		Topic:       "/home/discord-bot/messages",
		StatusTopic: "discord-bot/status",
	}

	got := publisherConfig(base)

	if !strings.HasPrefix(got.Broker.ClientID, "discord-mqtt-bot-send-") {
		t.Errorf("ClientID = %q", got.Broker.ClientID)
	}
	if got.Broker.ClientID == base.Broker.ClientID {
		t.Error("publisher must not reuse the bot's client ID")
	}
	if got.StatusTopic != "" {
		t.Errorf("StatusTopic = %q, want empty", got.StatusTopic)
	}
	if got.Broker.Host != "broker" || got.Topic != base.Topic {
		t.Errorf("connection settings changed: %+v", got)
	}
	if base.StatusTopic != "discord-bot/status" {
		t.Error("publisherConfig modified its argument")
	}
}

func TestServeCommand_RequiresToken(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "serve")
	if err == nil {
		t.Fatal("serve should fail without a Discord token")
	}
	if !strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Errorf("error = %v, want a hint about DISCORD_TOKEN", err)
	}
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("serve should fail with a missing config file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not-exist", err)
	}
}
