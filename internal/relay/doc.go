// Package relay forwards MQTT notifications to registered Discord recipients.
//
// A Dispatcher subscribes to a single topic. Each payload is parsed as
//
//	{"target_id": "<registered name>", "message": "<text>", "source": "<optional>"}
//
// then the target name is resolved through the registry and the formatted
// text is sent as a DM (user entries) or a channel post (channel entries).
//
// Nothing is retried. Every message ends in exactly one Outcome
// (delivered, invalid_payload, unknown_target or failed) which is logged and
// handed to the configured Recorders: Prometheus metrics, the SQLite audit
// trail and InfluxDB.
//
// Deliveries run in the MQTT client's per-message goroutines under a bounded
// timeout, so one slow Discord call never holds up other notifications.
package relay
