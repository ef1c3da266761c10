package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DefaultSource is used when a payload has no source.
const DefaultSource = "Unknown"

// MaxMessageLength is Discord's limit for a message body, in characters.
const MaxMessageLength = 2000

// Notification is one parsed MQTT payload.
type Notification struct {
	TargetID string `json:"target_id" validate:"required"`
	Message  string `json:"message" validate:"required"`

	// Source is nil when the field was absent or null.
	Source *string `json:"source,omitempty"`
}

// Parser decodes and validates notification payloads.
type Parser struct {
	validate      *validator.Validate
	defaultSource string
}

// NewParser returns a parser that substitutes defaultSource for a missing,
// null or empty source. An empty defaultSource means DefaultSource.
func NewParser(defaultSource string) *Parser {
	if defaultSource == "" {
		defaultSource = DefaultSource
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	return &Parser{validate: v, defaultSource: defaultSource}
}

var defaultParser = NewParser(DefaultSource)

// ParseNotification parses payload using the default source "Unknown".
func ParseNotification(payload []byte) (Notification, error) {
	return defaultParser.Parse(payload)
}

// Parse decodes payload as a JSON object. target_id and message must be
// non-empty strings; unknown fields are ignored. The returned notification
// always has a non-nil Source.
func (p *Parser) Parse(payload []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if err := p.validate.Struct(n); err != nil {
		return Notification{}, fmt.Errorf("%w: %s", ErrInvalidPayload, describeValidation(err))
	}

	if n.Source == nil || strings.TrimSpace(*n.Source) == "" {
		src := p.defaultSource
		n.Source = &src
	}
	return n, nil
}

// SourceName returns the source, or DefaultSource if unset.
func (n Notification) SourceName() string {
	if n.Source == nil || *n.Source == "" {
		return DefaultSource
	}
	return *n.Source
}

// describeValidation turns validator errors into "missing target_id" style text.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing " + strings.Join(fields, ", ")
}

// Format renders the text sent to Discord:
//
//	**<source>**
//	<message>
//
// Text over MaxMessageLength characters is cut and ends with an ellipsis.
func Format(n Notification) string {
	text := "**" + n.SourceName() + "**\n" + n.Message
	return truncate(text, MaxMessageLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
