package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "referrald", "test", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("applied", slog.String("type", "claim"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"message":  "applied",
		"severity": "INFO",
		"service":  "referrald",
		"env":      "test",
		"type":     "claim",
	} {
		if got := line[key]; got != want {
			t.Fatalf("%s = %v, want %q", key, got, want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("warn") != slog.LevelWarn || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level mapping")
	}
}

func TestMaskHelpers(t *testing.T) {
	if got := MaskField("signature", "0xdead").Value.String(); got != RedactedValue {
		t.Fatalf("signature not redacted: %s", got)
	}
	if got := MaskField("txHash", "0xbeef").Value.String(); got != "0xbeef" {
		t.Fatalf("allowlisted key redacted: %s", got)
	}
	if got := MaskBearer("Bearer abc.def.ghi"); got != "Bearer "+RedactedValue {
		t.Fatalf("bearer mask = %q", got)
	}
	if got := MaskBearer(""); got != "" {
		t.Fatalf("empty header mask = %q", got)
	}
	if got := MaskBearer("opaque-token"); got != RedactedValue {
		t.Fatalf("schemeless header mask = %q", got)
	}
	if got := MaskField("indexer_dsn", "postgres://refchain:hunter2@db/events").Value.String(); got != RedactedValue {
		t.Fatalf("dsn not redacted: %s", got)
	}
	if got := MaskField("reference", "").Value.String(); got != "" {
		t.Fatalf("empty value masked: %q", got)
	}
	if !IsPlain(" From ") || IsPlain("reference") {
		t.Fatalf("unexpected plain key classification")
	}
}
