// Package api implements the operator HTTP API for the Discord MQTT bot.
//
// This package provides:
//   - Health endpoint aggregating the MQTT, Discord, database and InfluxDB checks
//   - Read-only registry endpoints
//   - Delivery and command audit trail endpoints (when auditing is enabled)
//   - Dispatcher counters and Go runtime statistics
//   - Prometheus exposition at /metrics
//   - Middleware stack (request ID, logging, recovery, request metrics)
//
// The API never mutates the registry; registration happens only through
// Discord slash commands.
package api
