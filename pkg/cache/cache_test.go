package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %q, %v, %v, want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get(missing) should miss")
	}

	if err := c.Set(ctx, "source:1", []byte(`{"name":"customers"}`), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "source:1")
	if err != nil || !hit {
		t.Fatalf("Get() hit = %v, err = %v", hit, err)
	}
	if string(data) != `{"name":"customers"}` {
		t.Errorf("Get() = %s", data)
	}

	if err := c.Delete(ctx, "source:1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if _, hit, _ := c.Get(ctx, "source:1"); hit {
		t.Error("Get() after Delete should miss")
	}
	if err := c.Delete(ctx, "source:1"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("a"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("b"), 0)

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("bad")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte("not json"), 0o644)

	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("Get(corrupt) = %v, %v, want silent miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatalf("cache dir missing after Clear: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Clear() left %d entries", len(entries))
	}
}

func TestKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	if got := k.SourceKey("a"); !strings.HasPrefix(got, "source:") || len(got) != len("source:")+64 {
		t.Errorf("SourceKey() = %q", got)
	}
	if k.SourceKey("a") == k.SourceKey("b") {
		t.Error("SourceKey() collides for different ids")
	}
	if k.SourceKey("a") == k.LayoutKey("a") {
		t.Error("SourceKey() and LayoutKey() share a key")
	}

	scoped := NewScopedKeyer(nil, "tenant:")
	if got := scoped.LayoutKey("a"); got != "tenant:"+k.LayoutKey("a") {
		t.Errorf("scoped LayoutKey() = %q", got)
	}
}

func TestHash(t *testing.T) {
	if got := Hash([]byte("")); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Hash(\"\") = %s", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"DefaultFile", Options{Dir: t.TempDir()}, "*cache.FileCache", false},
		{"None", Options{Backend: BackendNone}, "*cache.NullCache", false},
		{"RedisWithoutAddr", Options{Backend: BackendRedis}, "", true},
		{"Unknown", Options{Backend: "memcached"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Open(ctx, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				defer c.Close()
				if got := typeName(c); got != tt.want {
					t.Errorf("Open() = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func typeName(c Cache) string {
	switch c.(type) {
	case *FileCache:
		return "*cache.FileCache"
	case *NullCache:
		return "*cache.NullCache"
	case *RedisCache:
		return "*cache.RedisCache"
	}
	return "unknown"
}

// TestRedisCache runs against a live server named by FLOWCRAFT_TEST_REDIS.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("FLOWCRAFT_TEST_REDIS")
	if addr == "" {
		t.Skip("FLOWCRAFT_TEST_REDIS not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	c := NewRedisCache(client, "flowcraft-test:")
	defer c.Delete(ctx, "k")

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Fatalf("Get(missing) = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}
	if ttl := client.TTL(ctx, "flowcraft-test:k").Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within a minute", ttl)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on borrowed client = %v", err)
	}
}
