// Structured logging tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(prefix string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(prefix)
	logger.SetWriter(&buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)
	return logger, &buf
}

func TestLoggerBasic(t *testing.T) {
	logger, buf := newBufferLogger("gcode")

	logger.Info("rewrote %d lines", 3)

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("expected INFO level, got: %s", output)
	}
	if !strings.Contains(output, "gcode:") {
		t.Errorf("expected prefix 'gcode:', got: %s", output)
	}
	if !strings.Contains(output, "rewrote 3 lines") {
		t.Errorf("expected formatted message, got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newBufferLogger("test")
	logger.SetLevel(WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG and INFO to be filtered, got: %s", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected WARN to pass, got: %s", buf.String())
	}

	buf.Reset()
	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected ERROR to pass, got: %s", buf.String())
	}
}

func TestLoggerMessageWithoutArgsIsLiteral(t *testing.T) {
	logger, buf := newBufferLogger("test")

	logger.Info("100% done")

	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("expected literal message, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	logger, buf := newBufferLogger("test")
	logger.SetFormat(FormatJSON)

	logger.WithFields(Fields{"line": 7, "code": "GCODE_NON_FINITE"}).Warn("passing line through")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v, output: %s", err, buf.String())
	}
	if entry.Level != "WARN" {
		t.Errorf("expected level WARN, got: %s", entry.Level)
	}
	if entry.Logger != "test" {
		t.Errorf("expected logger 'test', got: %s", entry.Logger)
	}
	if entry.Fields["code"] != "GCODE_NON_FINITE" {
		t.Errorf("expected code field, got: %v", entry.Fields)
	}
	// JSON numbers decode as float64
	if entry.Fields["line"] != float64(7) {
		t.Errorf("expected line=7, got: %v", entry.Fields["line"])
	}
}

func TestLoggerFieldsSortedInText(t *testing.T) {
	logger, buf := newBufferLogger("test")

	logger.WithField("z", 1).WithField("a", 2).Info("fields")

	if !strings.Contains(buf.String(), "{a=2, z=1}") {
		t.Errorf("expected sorted fields, got: %s", buf.String())
	}
}

func TestEntryWithFieldDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger("test")

	base := logger.WithField("run", 1)
	base.WithField("extra", true).Info("child")
	buf.Reset()
	base.Info("parent")

	if strings.Contains(buf.String(), "extra") {
		t.Errorf("parent entry picked up child field: %s", buf.String())
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestLoggerWithError(t *testing.T) {
	logger, buf := newBufferLogger("test")
	logger.SetFormat(FormatJSON)

	logger.WithError(&testError{"bad token"}).Error("run aborted")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry.Fields["error"] != "bad token" {
		t.Errorf("expected error field, got: %v", entry.Fields)
	}
}

func TestLoggerWithPrefixSharesWriter(t *testing.T) {
	logger, buf := newBufferLogger("parent")

	child := logger.WithPrefix("child")
	child.Info("child message")

	if !strings.Contains(buf.String(), "child: child message") {
		t.Errorf("expected prefix 'child:', got: %s", buf.String())
	}

	child.SetLevel(ERROR)
	if logger.GetLevel() != DEBUG {
		t.Errorf("child level change leaked to parent: %v", logger.GetLevel())
	}
}

func TestLoggerCaller(t *testing.T) {
	logger, buf := newBufferLogger("test")
	logger.SetCaller(true)

	logger.Info("caller test")
	logger.WithField("k", "v").Info("entry caller test")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, "logger_test.go:") {
			t.Errorf("expected caller info 'logger_test.go:', got: %s", l)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"warning", WARN},
		{"ERROR", ERROR},
		{" error ", ERROR},
		{"invalid", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("GCODE_EXTRUDE_LOG_LEVEL", "error")
	t.Setenv("GCODE_EXTRUDE_LOG_FORMAT", "json")
	t.Setenv("GCODE_EXTRUDE_LOG_CALLER", "1")

	logger, buf := newBufferLogger("env")
	ConfigureFromEnv(logger)

	if logger.GetLevel() != ERROR {
		t.Errorf("expected ERROR level, got %v", logger.GetLevel())
	}
	logger.Error("boom")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output: %v, output: %s", err, buf.String())
	}
	if entry.Caller == "" {
		t.Error("expected caller to be set")
	}
}

func TestIsTerminalOnBuffer(t *testing.T) {
	logger := New("test")
	logger.SetColorize(true)
	logger.SetWriter(&bytes.Buffer{})
	logger.SetLevel(DEBUG)

	var buf bytes.Buffer
	logger.SetWriter(&buf)
	logger.Info("plain")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected no ANSI codes for non-terminal writer, got: %q", buf.String())
	}
}
