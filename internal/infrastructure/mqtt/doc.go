// Package mqtt provides MQTT client connectivity for the bot.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Subscription to the notification topic, restored after reconnects
//   - Publishing (used by the `send` CLI and the status topic)
//   - Last Will and Testament (LWT) for offline detection
//   - Panic-safe message handlers
//
// # Architecture
//
// External services publish JSON notifications; the bot only consumes them.
//
//	Publishers → MQTT Broker → Bot (relay.Dispatcher) → Discord
//
// Handlers run concurrently (paho OrderMatters is disabled) so a slow
// Discord call never holds up the next notification.
//
// # Status Topic
//
// When mqtt.status_topic is set, the client publishes a retained
// {"status":"online"} on connect, {"status":"offline","reason":"shutdown"}
// on Close, and registers an LWT with reason "unexpected_disconnect".
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(ctx, cfg.MQTT.Topic, 1,
//	    func(topic string, payload []byte) error {
//	        return dispatcher.HandleMessage(topic, payload)
//	    })
package mqtt
