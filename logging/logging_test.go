package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	type test struct {
		description string
		level       string
		want        zerolog.Level
	}

	tests := []test{
		{"empty level is info", "", zerolog.InfoLevel},
		{"debug", "debug", zerolog.DebugLevel},
		{"case insensitive", "WARN", zerolog.WarnLevel},
		{"unknown level is info", "loud", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		logger := New(Config{Level: tc.level, JSON: true, Writer: &buf})
		if got := logger.GetLevel(); got != tc.want {
			t.Errorf("description: %s, got %s, want %s", tc.description, got, tc.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf})
	logger.Info().Str("path", "main.py").Msg("analyzed")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("expected a JSON event, got %q: %v", buf.String(), err)
	}
	if event["path"] != "main.py" || event["message"] != "analyzed" || event["level"] != "info" {
		t.Errorf("unexpected event: %v", event)
	}
}
