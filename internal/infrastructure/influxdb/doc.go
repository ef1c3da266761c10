// Package influxdb writes delivery telemetry to InfluxDB 2.x.
//
// It wraps influxdb-client-go v2 with the connection lifecycle used by the
// rest of the bot: Connect pings the server, writes are batched and
// non-blocking, and Close flushes pending points.
//
// InfluxDB is optional. When influxdb.enabled is false the bot never calls
// Connect and no telemetry is written.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePoint("notifications",
//	    map[string]string{"outcome": "delivered", "kind": "user"},
//	    map[string]any{"duration_ms": 84.0},
//	    time.Now())
//
// # Error Handling
//
// Write errors surface asynchronously through the SetOnError callback.
package influxdb
