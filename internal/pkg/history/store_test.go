package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NalimovStudio/TraumaBot/internal/pkg/env"
)

const isolatedHistoryTestRedisDB = 13

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	hosts := []string{
		env.GetEnv("CACHE_HOST", ""),
		"cache",
		"localhost",
		"127.0.0.1",
	}
	port := env.GetEnv("CACHE_PORT", "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: password,
			DB:       isolatedHistoryTestRedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		_, err := client.Ping(ctx).Result()
		cancel()
		if err != nil {
			_ = client.Close()
			lastErr = err
			continue
		}

		if err := client.FlushDB(context.Background()).Err(); err != nil {
			_ = client.Close()
			t.Fatalf("failed to flush isolated redis db: %v", err)
		}
		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
		return client
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}

func TestStoreRoundTrip(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewStore(client, 20, time.Hour)
	ctx := context.Background()

	t1 := Turn{Role: "user", Message: "hello"}
	t2 := Turn{Role: "assistant", Message: "hi, how are you feeling?"}

	if err := store.Append(ctx, "1001", "venting", t1); err != nil {
		t.Fatalf("append t1: %v", err)
	}
	if err := store.Append(ctx, "1001", "venting", t2); err != nil {
		t.Fatalf("append t2: %v", err)
	}

	got := store.Read(ctx, "1001", "venting")
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0] != t1 || got[1] != t2 {
		t.Fatalf("turns out of order: %+v", got)
	}
}

func TestStoreReadMissingKeyReturnsEmpty(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewStore(client, 20, time.Hour)

	got := store.Read(context.Background(), "9999", "cbt")
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(got))
	}
}

func TestStoreTrimsOldestBeyondMax(t *testing.T) {
	client := newTestRedisClient(t)
	const maxTurns = 5
	store := NewStore(client, maxTurns, time.Hour)
	ctx := context.Background()

	const extra = 3
	for i := 0; i < maxTurns+extra; i++ {
		turn := Turn{Role: "user", Message: fmt.Sprintf("msg-%d", i)}
		if err := store.Append(ctx, "1002", "venting", turn); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got := store.Read(ctx, "1002", "venting")
	if len(got) != maxTurns {
		t.Fatalf("expected %d turns after trim, got %d", maxTurns, len(got))
	}
	// The survivors must be the most recent ones, still oldest-first.
	for i, turn := range got {
		want := fmt.Sprintf("msg-%d", extra+i)
		if turn.Message != want {
			t.Fatalf("turn %d = %q, want %q", i, turn.Message, want)
		}
	}
}

func TestStoreClearIsIdempotent(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewStore(client, 20, time.Hour)
	ctx := context.Background()

	if err := store.Append(ctx, "1003", "calming", Turn{Role: "user", Message: "breathe"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx, "1003", "calming"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := store.Read(ctx, "1003", "calming"); len(got) != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", len(got))
	}
	// Clearing again must not error.
	if err := store.Clear(ctx, "1003", "calming"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestStoreScopesAreIsolated(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewStore(client, 20, time.Hour)
	ctx := context.Background()

	if err := store.Append(ctx, "1004", "venting", Turn{Role: "user", Message: "vent"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "1004", "cbt", Turn{Role: "user", Message: "diary"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if got := store.Read(ctx, "1004", "venting"); len(got) != 1 || got[0].Message != "vent" {
		t.Fatalf("venting scope polluted: %+v", got)
	}
	if got := store.Read(ctx, "1004", "cbt"); len(got) != 1 || got[0].Message != "diary" {
		t.Fatalf("cbt scope polluted: %+v", got)
	}
}
