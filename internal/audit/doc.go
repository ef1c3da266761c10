// Package audit stores an append-only trail of registry changes and
// notification deliveries in SQLite.
//
// Records are written by the command handler (register, unregister) and by
// the relay dispatcher (one record per notification). The HTTP API reads
// them back through List.
package audit
