// Package registry maps human-chosen target names to Discord recipients.
//
// A recipient is either a user (messages go to a DM) or a channel. Each name
// maps to exactly one recipient and each recipient holds at most one name.
//
// The Registry is the single owner of this state. It is loaded from a Store
// at startup and every mutation is persisted before it becomes visible.
//
// Thread Safety:
//   - Register and Unregister are serialised by a mutex.
//   - Lookup, EntryFor, List and Count read an immutable snapshot and never
//     wait on disk I/O.
//
// Usage:
//
//	reg := registry.NewRegistry(registry.NewFileStore("data/registry.json"))
//	if err := reg.Load(); err != nil {
//	    log.Fatal(err)
//	}
//	entry, err := reg.Register(ctx, "john", registry.UserRecipient("123456789"))
package registry
