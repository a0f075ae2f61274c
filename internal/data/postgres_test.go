package data

import (
	"testing"
	"time"

	"nohate/internal/conf"
)

func TestNewPgxPoolConfig(t *testing.T) {
	const source = "postgres://u:p@localhost:5432/nohate"

	cfg, err := newPgxPoolConfig(&conf.Database{Source: source})
	if err != nil {
		t.Fatalf("newPgxPoolConfig() err = %v", err)
	}
	defaults := cfg.MaxConns

	cfg, err = newPgxPoolConfig(&conf.Database{
		Source: source,
		Pool:   &conf.DatabasePool{MaxOpenConns: 7, MinIdleConns: 2, MaxConnLifetime: 30, MaxConnIdleTime: 5},
	})
	if err != nil {
		t.Fatalf("newPgxPoolConfig() err = %v", err)
	}
	if cfg.MaxConns != 7 || cfg.MinConns != 2 {
		t.Errorf("conns = %d/%d; want 7/2", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnLifetime != 30*time.Minute || cfg.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("lifetimes = %v/%v", cfg.MaxConnLifetime, cfg.MaxConnIdleTime)
	}

	cfg, _ = newPgxPoolConfig(&conf.Database{Source: source, Pool: &conf.DatabasePool{}})
	if cfg.MaxConns != defaults {
		t.Errorf("zero pool changed MaxConns to %d; want %d", cfg.MaxConns, defaults)
	}

	if _, err := newPgxPoolConfig(&conf.Database{Source: "postgres://%zz"}); err == nil {
		t.Error("bad source parsed without error")
	}
}
