package registry

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Kind identifies what a registered name delivers to.
type Kind string

const (
	// KindUser delivers as a direct message to a user.
	KindUser Kind = "user"

	// KindChannel posts into a guild channel.
	KindChannel Kind = "channel"
)

// MaxNameLength is the longest accepted name, in characters.
const MaxNameLength = 64

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindUser || k == KindChannel
}

// Recipient is a Discord user or channel addressed by its snowflake ID.
type Recipient struct {
	Kind       Kind   `json:"kind"`
	PlatformID string `json:"platform_id"`
}

// UserRecipient returns the recipient for a user's DM channel.
func UserRecipient(userID string) Recipient {
	return Recipient{Kind: KindUser, PlatformID: userID}
}

// ChannelRecipient returns the recipient for a guild channel.
func ChannelRecipient(channelID string) Recipient {
	return Recipient{Kind: KindChannel, PlatformID: channelID}
}

// Validate checks the kind and platform ID.
func (r Recipient) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecipient, r.Kind)
	}
	if strings.TrimSpace(r.PlatformID) == "" {
		return fmt.Errorf("%w: platform ID is empty", ErrInvalidRecipient)
	}
	return nil
}

func (r Recipient) String() string {
	return string(r.Kind) + ":" + r.PlatformID
}

// Entry is one registration. Entries are never modified after creation.
type Entry struct {
	Name string `json:"name"`
	Recipient
	RegisteredAt time.Time `json:"registered_at"`
}

// ValidateName checks the name rules: non-blank, at most MaxNameLength
// characters and no control characters. Names are case-sensitive and are
// otherwise stored exactly as given.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return fmt.Errorf("%w: name is %d characters, maximum is %d", ErrInvalidName, n, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name contains control characters", ErrInvalidName)
		}
	}
	return nil
}
