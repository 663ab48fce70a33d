// Package cachetest connects tests to a real Redis and skips them when none
// is reachable.
package cachetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ImmoMap/internal/pkg/env"
)

func candidates() (hosts, ports, passwords []string) {
	hosts = unique(env.GetEnv("CACHE_HOST", ""), "cache", "immomap-cache", "localhost", "127.0.0.1")
	ports = unique(env.GetEnv("CACHE_PORT", "6379"), "6379")
	passwords = append(unique(env.GetEnv("CACHE_PASSWORD", "")), "")
	passwords = unique(passwords...)
	return hosts, ports, passwords
}

func unique(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func resolve(t *testing.T) (addr, password string) {
	t.Helper()

	hosts, ports, passwords := candidates()
	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		for _, port := range ports {
			for _, pw := range passwords {
				c := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port), Password: pw})
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				err := c.Ping(ctx).Err()
				cancel()
				_ = c.Close()
				if err == nil {
					return fmt.Sprintf("%s:%s", host, port), pw
				}
				lastErr = err
			}
		}
	}
	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", ""
}

// NewIsolatedClient returns a client on the given logical database, flushed
// before and after the test.
func NewIsolatedClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	addr, pw := resolve(t)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: pw, DB: db})
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: flushing db %d failed (%v)", db, err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}
