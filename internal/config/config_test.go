package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "hello")
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "12")
	t.Setenv("X_BADINT", "twelve")
	t.Setenv("X_DUR", "150ms")
	t.Setenv("X_SET", "get, head ,")

	if envStr("X_STR", "d") != "hello" || envStr("X_MISSING", "d") != "d" {
		t.Fatal("envStr")
	}
	if envBool("X_BOOL", true) || !envBool("X_MISSING", true) {
		t.Fatal("envBool")
	}
	if envInt("X_INT", 1) != 12 || envInt("X_BADINT", 1) != 1 {
		t.Fatal("envInt")
	}
	if envDur("X_DUR", time.Second) != 150*time.Millisecond {
		t.Fatal("envDur")
	}
	set := envSet("X_SET", "")
	if len(set) != 2 || !set["GET"] || !set["HEAD"] {
		t.Fatalf("envSet = %v", set)
	}
}

func TestLoadLockConfigClamps(t *testing.T) {
	t.Setenv("LOCK_WAIT", "4s")
	t.Setenv("LOCK_TTL", "1s")
	t.Setenv("LOCK_RETRY", "-5ms")

	cfg := LoadLockConfig()
	if cfg.Wait != 4*time.Second {
		t.Fatalf("wait = %s", cfg.Wait)
	}
	if cfg.TTL != 8*time.Second {
		t.Fatalf("ttl must not be shorter than wait, got %s", cfg.TTL)
	}
	if cfg.Retry != 25*time.Millisecond {
		t.Fatalf("retry = %s", cfg.Retry)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 || cfg.TTL != 10*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRedisOptionsHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	opts := RedisOptions()
	if opts.Addr != "redis.internal:6380" || opts.DB != 2 || opts.TLSConfig != nil {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_HOST", "")
	c := NewRedisClient()
	if c == nil {
		t.Fatal("expected a client for a reachable server")
	}
	_ = c.Close()

	mr.Close()
	if NewRedisClient() != nil {
		t.Fatal("unreachable server must yield nil")
	}
}
