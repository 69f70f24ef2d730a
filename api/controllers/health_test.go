package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/angelmondragon/bundlehub-backend/pkg/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := serve(HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": healthy}), newRequest(http.MethodGet, "/health/ready", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = serve(HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": down}), newRequest(http.MethodGet, "/health/ready", ""))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
