package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFromAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PB_TOKEN":    "secret",
		"PB_DOT_PATH": "/tmp/pasarbot",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DiscordToken != "secret" {
		t.Fatalf("unexpected token: %q", cfg.DiscordToken)
	}
	if cfg.Market.Channel != "jual-beli" || cfg.Market.TranscriptChannel != "bukti-transaksi" {
		t.Fatalf("unexpected channels: %#v", cfg.Market)
	}
	if cfg.Verification.Timeout != 15*time.Minute {
		t.Fatalf("unexpected verification timeout: %s", cfg.Verification.Timeout)
	}
	if cfg.SpamControl.MaxMessages != 7 || cfg.SpamControl.Window != time.Minute || cfg.SpamControl.MuteBase != 20*time.Minute {
		t.Fatalf("unexpected spam control: %#v", cfg.SpamControl)
	}
	if cfg.Market.SweepInterval != time.Hour {
		t.Fatalf("unexpected sweep interval: %s", cfg.Market.SweepInterval)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected storage driver: %q", cfg.Storage.Driver)
	}
}

func TestLoadFromRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected missing token error")
	}
}
