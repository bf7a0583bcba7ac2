package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	l.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered out at warn level, got %q", buf.String())
	}

	l.Warn("should appear", "tag", "h1->s1")
	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["tag"] != "h1->s1" {
		t.Fatalf("expected tag field, got %v", record)
	}
	if record["message"] != "should appear" {
		t.Fatalf("expected message field, got %v", record)
	}
}

func TestAddFieldsOddCount(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	l.Info("odd fields", "only-key")

	if !strings.Contains(buf.String(), "odd number of fields") {
		t.Fatalf("expected odd-field-count marker, got %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})
	child := l.WithFields(map[string]interface{}{"component": "registry"})

	child.Info("hello")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["component"] != "registry" {
		t.Fatalf("expected inherited field, got %v", record)
	}
}
