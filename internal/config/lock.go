package config

import "time"

// LockConfig controls the per-car booking lock.  Wait bounds how long a
// request waits for a busy car before failing.  TTL is the lease of a Redis
// lock, so a crashed holder blocks the car for at most that long.  Retry is
// the polling interval while waiting on a Redis lock and Prefix namespaces
// its keys.
type LockConfig struct {
	Wait   time.Duration
	TTL    time.Duration
	Retry  time.Duration
	Prefix string
}

func LoadLockConfig() LockConfig {
	cfg := LockConfig{
		Wait:   envDur("LOCK_WAIT", 3*time.Second),
		TTL:    envDur("LOCK_TTL", 10*time.Second),
		Retry:  envDur("LOCK_RETRY", 25*time.Millisecond),
		Prefix: envStr("LOCK_PREFIX", "lock"),
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	// TTL is never shorter than Wait
	if cfg.TTL < cfg.Wait {
		cfg.TTL = 2 * cfg.Wait
	}
	return cfg
}
