package internal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// unreachableConfig points at a port nothing listens on.
func unreachableConfig(selection time.Duration) *Config {
	cfg := NewDefaultConfig()
	cfg.Mongo.URI = "mongodb://127.0.0.1:1"
	cfg.Mongo.ServerSelectionTimeout = selection
	return cfg
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestCheckTextIndex_GivesUpAfterTimeout(t *testing.T) {
	var logs bytes.Buffer
	app, err := newApplication([]Option{
		WithConfig(unreachableConfig(30 * time.Second)),
		WithLogOutput(&logs),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	logger := app.newLogger()
	holder, store := app.connect(ctx, logger)
	defer disconnect(holder, logger)

	start := time.Now()
	checkTextIndex(ctx, store, logger, 200*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("check took %v, want it bounded by its own timeout", elapsed)
	}
	if !strings.Contains(logs.String(), "text index check failed") {
		t.Errorf("logs = %s", logs.String())
	}
}

func TestRunEnsureIndex_Unreachable(t *testing.T) {
	var logs bytes.Buffer
	err := RunEnsureIndex(context.Background(),
		WithConfig(unreachableConfig(200*time.Millisecond)),
		WithLogOutput(&logs),
	)
	if err == nil || !strings.Contains(err.Error(), "ensure index") {
		t.Fatalf("err = %v", err)
	}
}
