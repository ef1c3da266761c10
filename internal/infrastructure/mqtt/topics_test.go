package mqtt

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTopicName(t *testing.T) {
	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"/home/discord-bot/messages", false},
		{"discord-bot/status", false},
		{"a", false},
		{"", true},
		{"a/+/b", true},
		{"a/#", true},
		{"a\x00b", true},
		{string([]byte{0xff, 0xfe}), true},
		{strings.Repeat("a", maxTopicLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateTopicName(tt.topic)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTopicName(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ValidateTopicName(%q) error = %v, want ErrInvalidTopic", tt.topic, err)
		}
	}
}

func TestValidateTopicFilter(t *testing.T) {
	tests := []struct {
		filter  string
		wantErr bool
	}{
		{"/home/discord-bot/messages", false},
		{"#", false},
		{"+", false},
		{"a/+/c", false},
		{"a/#", false},
		{"+/+/#", false},
		{"", true},
		{"a/#/c", true},
		{"a/b#", true},
		{"a/b+/c", true},
		{"a/++", true},
	}

	for _, tt := range tests {
		err := ValidateTopicFilter(tt.filter)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTopicFilter(%q) error = %v, wantErr %v", tt.filter, err, tt.wantErr)
		}
	}
}
