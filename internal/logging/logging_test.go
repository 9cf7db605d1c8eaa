package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "info", input: "info", expected: LevelInfo, ok: true},
		{name: "warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "error", input: "error", expected: LevelError, ok: true},
		{name: "case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "whitespace", input: "  error ", expected: LevelError, ok: true},
		{name: "unknown falls back to info", input: "verbose", expected: LevelInfo, ok: false},
		{name: "empty", input: "", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), expected (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		logLevel string
		expected LogLevel
	}{
		{name: "DEBUG wins", debug: "true", logLevel: "error", expected: LevelDebug},
		{name: "DEBUG=1", debug: "1", expected: LevelDebug},
		{name: "DEBUG false uses LOG_LEVEL", debug: "false", logLevel: "warn", expected: LevelWarn},
		{name: "nothing set", expected: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEBUG", tt.debug)
			t.Setenv("LOG_LEVEL", tt.logLevel)
			if got := levelFromEnv(); got != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prev := GetLevel()
	defer func() {
		log.SetOutput(os.Stderr)
		SetLevel(prev)
	}()

	SetLevel(LevelWarn)
	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")
	Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") || !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("Expected warn and error lines, got %q", out)
	}
	if IsDebugEnabled() {
		t.Error("Expected debug to be disabled at warn level")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}
