package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// snapshot is an immutable view of the registry. It is replaced wholesale
// on every successful mutation and never modified in place.
type snapshot struct {
	entries     []Entry
	byName      map[string]int
	byRecipient map[Recipient]int
}

func newSnapshot(entries []Entry) (*snapshot, error) {
	s := &snapshot{
		entries:     entries,
		byName:      make(map[string]int, len(entries)),
		byRecipient: make(map[Recipient]int, len(entries)),
	}
	for i, e := range entries {
		if _, dup := s.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate name %q", e.Name)
		}
		if _, dup := s.byRecipient[e.Recipient]; dup {
			return nil, fmt.Errorf("recipient %s holds more than one name", e.Recipient)
		}
		s.byName[e.Name] = i
		s.byRecipient[e.Recipient] = i
	}
	return s, nil
}

// Registry is the name → recipient mapping shared by the command handler
// and the dispatcher.
type Registry struct {
	store Store
	now   func() time.Time

	// mu serialises mutations (check, persist, swap).
	mu      sync.Mutex
	current atomic.Pointer[snapshot]

	logger Logger
}

// NewRegistry creates an empty registry persisted through store.
// Call Load to read existing entries.
func NewRegistry(store Store) *Registry {
	r := &Registry{
		store:  store,
		now:    time.Now,
		logger: noopLogger{},
	}
	r.current.Store(&snapshot{
		byName:      map[string]int{},
		byRecipient: map[Recipient]int{},
	})
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the in-memory state with the store's contents.
// Invalid entries or duplicate names/recipients return ErrCorruptFile.
func (r *Registry) Load() error {
	entries, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	for _, e := range entries {
		if err := ValidateName(e.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptFile, err)
		}
		if err := e.Recipient.Validate(); err != nil {
			return fmt.Errorf("%w: entry %q: %w", ErrCorruptFile, e.Name, err)
		}
	}

	snap, err := newSnapshot(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	r.mu.Lock()
	r.current.Store(snap)
	r.mu.Unlock()

	r.logger.Info("registry loaded", "entries", len(entries))
	return nil
}

// Register maps name to recipient and persists the registry.
//
// Errors:
//   - ErrNameTaken: name belongs to a different recipient
//   - ErrAlreadyRegistered: recipient holds a different name; the existing
//     entry is returned with the error
//   - ErrPersistFailed: the store write failed; nothing changed
//
// Registering the same name for the same recipient again succeeds without
// writing.
func (r *Registry) Register(ctx context.Context, name string, recipient Recipient) (Entry, error) {
	if err := ValidateName(name); err != nil {
		return Entry{}, err
	}
	if err := recipient.Validate(); err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	snap := r.current.Load()

	if i, ok := snap.byRecipient[recipient]; ok {
		existing := snap.entries[i]
		if existing.Name == name {
			return existing, nil
		}
		return existing, fmt.Errorf("%w: %s is registered as %q", ErrAlreadyRegistered, recipient, existing.Name)
	}
	if _, ok := snap.byName[name]; ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}

	entry := Entry{
		Name:         name,
		Recipient:    recipient,
		RegisteredAt: r.now().UTC(),
	}

	entries := make([]Entry, len(snap.entries), len(snap.entries)+1)
	copy(entries, snap.entries)
	entries = append(entries, entry)

	if err := r.commit(entries); err != nil {
		return Entry{}, err
	}

	r.logger.Info("name registered", "name", name, "kind", recipient.Kind, "platform_id", recipient.PlatformID)
	return entry, nil
}

// Unregister removes the entry held by recipient and returns it.
// Returns ErrNotRegistered if the recipient has no entry.
func (r *Registry) Unregister(ctx context.Context, recipient Recipient) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	snap := r.current.Load()
	i, ok := snap.byRecipient[recipient]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotRegistered, recipient)
	}
	removed := snap.entries[i]

	entries := lo.Reject(snap.entries, func(e Entry, _ int) bool {
		return e.Recipient == recipient
	})

	if err := r.commit(entries); err != nil {
		return Entry{}, err
	}

	r.logger.Info("name unregistered", "name", removed.Name, "kind", recipient.Kind, "platform_id", recipient.PlatformID)
	return removed, nil
}

// commit persists entries and then publishes them as the current snapshot.
// Must be called with r.mu held.
func (r *Registry) commit(entries []Entry) error {
	snap, err := newSnapshot(entries)
	if err != nil {
		// Unreachable given the checks in Register/Unregister.
		return fmt.Errorf("building snapshot: %w", err)
	}

	if err := r.store.Save(entries); err != nil {
		r.logger.Error("failed to persist registry", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	r.current.Store(snap)
	return nil
}

// Lookup returns the entry registered under name (exact, case-sensitive).
func (r *Registry) Lookup(name string) (Entry, bool) {
	snap := r.current.Load()
	i, ok := snap.byName[name]
	if !ok {
		return Entry{}, false
	}
	return snap.entries[i], true
}

// EntryFor returns the entry held by recipient.
func (r *Registry) EntryFor(recipient Recipient) (Entry, bool) {
	snap := r.current.Load()
	i, ok := snap.byRecipient[recipient]
	if !ok {
		return Entry{}, false
	}
	return snap.entries[i], true
}

// List returns all entries in registration order.
// The returned slice is a copy.
func (r *Registry) List() []Entry {
	snap := r.current.Load()
	out := make([]Entry, len(snap.entries))
	copy(out, snap.entries)
	return out
}

// Count returns the number of registered names.
func (r *Registry) Count() int {
	return len(r.current.Load().entries)
}
