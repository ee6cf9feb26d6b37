package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerRenamesStandardKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))
	logger.Info("claim committed", "height", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["message"] != "claim committed" {
		t.Fatalf("unexpected message field: %v", line["message"])
	}
	if line["severity"] != "INFO" {
		t.Fatalf("unexpected severity field: %v", line["severity"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp missing: %v", line)
	}
}

func TestHandlerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, ParseLevel("warn")))
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info line to be filtered, got %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected warn line to be written")
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if ParseLevel("") != slog.LevelInfo || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unknown levels must map to info")
	}
	if ParseLevel("DEBUG") != slog.LevelDebug {
		t.Fatalf("level parsing must be case-insensitive")
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("rpcToken", "secret"); got.Value.String() != RedactedValue {
		t.Fatalf("expected secret to be redacted, got %v", got.Value)
	}
	if got := MaskField("component", "rpc"); got.Value.String() != "rpc" {
		t.Fatalf("allowlisted key should pass through, got %v", got.Value)
	}
	if got := MaskField("rpcToken", ""); got.Value.String() != "" {
		t.Fatalf("empty values stay empty")
	}
}

func TestMaskURL(t *testing.T) {
	cases := map[string]string{
		"https://hooks.example.org/claims/abc?token=1": "https://hooks.example.org/" + RedactedValue,
		"https://user:pw@hooks.example.org":            "https://hooks.example.org/" + RedactedValue,
		"http://collector:4318":                        "http://collector:4318",
		"not a url":                                    RedactedValue,
	}
	for raw, want := range cases {
		if got := MaskURL("url", raw).Value.String(); got != want {
			t.Fatalf("MaskURL(%q) = %q, want %q", raw, got, want)
		}
	}
}
