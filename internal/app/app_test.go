package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"testing"
	"time"

	"github.com/heartmarshall/labassist-backend/internal/config"
)

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, config.ServerConfig{Host: "127.0.0.1", Port: 0}, http.NotFoundHandler(), logger)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := serve(context.Background(), config.ServerConfig{Host: "256.0.0.1", Port: 1}, http.NotFoundHandler(), logger)
	if err == nil {
		t.Fatal("expected listen error for invalid host")
	}
}

func TestShutdownTimeout_Default(t *testing.T) {
	if got := shutdownTimeout(config.ServerConfig{}); got != 10*time.Second {
		t.Fatalf("default shutdown timeout = %s, want 10s", got)
	}
	if got := shutdownTimeout(config.ServerConfig{ShutdownTimeout: time.Second}); got != time.Second {
		t.Fatalf("shutdown timeout = %s, want 1s", got)
	}
}

func TestCommit_FromBuildInfo(t *testing.T) {
	info := func(settings ...debug.BuildSetting) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) { return &debug.BuildInfo{Settings: settings}, true }
	}

	if got := commit(info(debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"})); got != "0123456789ab" {
		t.Errorf("commit = %q, want truncated revision", got)
	}
	got := commit(info(
		debug.BuildSetting{Key: "vcs.revision", Value: "abc"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	))
	if got != "abc+dirty" {
		t.Errorf("commit = %q, want abc+dirty", got)
	}
	if got := commit(info()); got != "unknown" {
		t.Errorf("commit = %q, want unknown", got)
	}
	if got := commit(func() (*debug.BuildInfo, bool) { return nil, false }); got != "unknown" {
		t.Errorf("commit = %q, want unknown", got)
	}
}
