package zaplogger

import (
	"context"
	"testing"

	"github.com/goliatone/go-peers/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_PassesKeyValues(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(obs))

	logger.Info("hello", "peer", "A", "attempt", 2)
	logger.Trace("trace maps to debug")

	entries := logs.FilterMessage("hello").All()
	if len(entries) != 1 {
		t.Fatalf("expected one hello entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["peer"] != "A" || fields["attempt"] != int64(2) {
		t.Fatalf("unexpected fields %#v", fields)
	}
	if logs.FilterMessage("trace maps to debug").All()[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected trace to log at debug")
	}
}

func TestLogger_WithFieldsAndProvider(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	provider := NewProvider(Wrap(zap.New(obs)))

	named := provider.GetLogger("peers")
	child := named.(*Logger).WithFields(map[string]any{"backend": "memory"})
	child.Warn("rejected")

	entries := logs.FilterMessage("rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "peers" {
		t.Fatalf("expected named logger, got %q", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["backend"] != "memory" {
		t.Fatalf("expected backend field, got %#v", entries[0].ContextMap())
	}
}

func TestLogger_BacksServiceLogging(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	provider := NewProvider(Wrap(zap.New(obs)))

	svc, err := core.NewService(core.DefaultConfig(), core.WithLoggerProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	_ = svc.RegisterPeer(ctx, core.StaticCallContext{Caller: "X", Owner: "O"}, "Y")

	rejected := logs.FilterMessage("register rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("expected one rejection log, got %d", len(rejected))
	}
	if rejected[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", rejected[0].Level)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	logger, err := New(Config{Level: "debug", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("ok")
}
