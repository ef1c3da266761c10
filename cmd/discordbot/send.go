package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/mqtt"
	"github.com/nerrad567/discord-mqtt-bot/internal/relay"
)

// sendTimeout bounds connect plus publish.
const sendTimeout = 15 * time.Second

// defaultSendSource labels test notifications when no source is given.
const defaultSendSource = "Test Script"

// sendConfig holds flags for the send command.
type sendConfig struct {
	topic  string
	qos    int
	dryRun bool
}

// newSendCmd creates the send subcommand, a test publisher for the relay.
func newSendCmd(root *rootOptions) *cobra.Command {
	cfg := &sendConfig{qos: -1}

	cmd := &cobra.Command{
		Use:   "send <target> <message> [source]",
		Short: "Publish a test notification to the relay topic",
		Long: `Publish one notification payload to the configured MQTT topic, as an
external service would. The running bot delivers it to the Discord user or
channel registered as <target>.

[source] defaults to "Test Script". Pass "" to omit it so the bot applies
its own default.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, root, cfg, args)
		},
	}

	cmd.Flags().StringVar(&cfg.topic, "topic", "", "topic to publish on (default: mqtt.topic from config)")
	cmd.Flags().IntVar(&cfg.qos, "qos", -1, "QoS level 0-2 (default: mqtt.qos from config)")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "print the payload instead of publishing")

	return cmd
}

// buildPayload encodes a notification the way external publishers do.
// The source field is omitted when empty so the bot applies its default.
func buildPayload(target, message, source string) ([]byte, error) {
	n := relay.Notification{TargetID: target, Message: message}
	if source != "" {
		n.Source = &source
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	// Reject anything the bot itself would discard.
	if _, err := relay.ParseNotification(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// runSend executes the send command.
func runSend(cmd *cobra.Command, root *rootOptions, sc *sendConfig, args []string) error {
	source := defaultSendSource
	if len(args) == 3 {
		source = args[2]
	}
	payload, err := buildPayload(args[0], args[1], source)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	topic := cfg.MQTT.Topic
	if sc.topic != "" {
		topic = sc.topic
	}
	if err := mqtt.ValidateTopicName(topic); err != nil {
		return err
	}

	qos := cfg.MQTT.QoS
	if sc.qos >= 0 {
		qos = sc.qos
	}
	if qos > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", qos)
	}

	out := cmd.OutOrStdout()
	if sc.dryRun {
		fmt.Fprintf(out, "%s <- %s\n", topic, payload)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	client, err := mqtt.Connect(ctx, publisherConfig(cfg.MQTT))
	if err != nil {
		return fmt.Errorf("connecting to MQTT broker %s: %w", cfg.BrokerAddress(), err)
	}
	defer client.Close() //nolint:errcheck // best-effort disconnect

	if err := client.Publish(ctx, topic, payload, byte(qos), false); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}

	fmt.Fprintf(out, "published to %s (qos %d): %s\n", topic, qos, payload)
	return nil
}

// publisherConfig derives a one-shot publisher connection from the bot's
// settings: a distinct client ID so the running bot is not kicked off the
// broker, and no status topic so the bot's online status is left alone.
func publisherConfig(cfg config.MQTTConfig) config.MQTTConfig {
	cfg.Broker.ClientID = fmt.Sprintf("%s-send-%s", cfg.Broker.ClientID, uuid.NewString()[:8])
	cfg.StatusTopic = ""
	return cfg
}
