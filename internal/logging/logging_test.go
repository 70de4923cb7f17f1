package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facecompare.log")
	logger, err := NewLogger(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("comparison finished")
	_ = logger.Sync()

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one rotated file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "comparison finished") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestOperationErrorFormatting(t *testing.T) {
	base := errors.New("boom")
	err := NewOperationError("repository.save_log", "req-1", base)
	if got := err.Error(); got != "repository.save_log (request_id=req-1): boom" {
		t.Fatalf("unexpected message: %s", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match")
	}
	if NewOperationError("x", "", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := NewOperationError("cache.get", "", base).Error(); got != "cache.get: boom" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", NewOperationError("op", "", timeoutError{}), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}
