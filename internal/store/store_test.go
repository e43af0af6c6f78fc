package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

func drivers(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		DriverMemory: NewMemory(),
		DriverFile:   NewFile(filepath.Join(t.TempDir(), "state.json")),
		DriverSQLite: sqlite,
		DriverRedis:  NewRedis(client, ""),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "demoUser"); err != nil || ok {
				t.Fatalf("Get on empty store = %v, %v", ok, err)
			}
			if err := s.Set(ctx, "demoUser", `{"email":"a@b.com"}`); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "isAuthenticated", "true"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "demoUser", `{"email":"c@d.com"}`); err != nil {
				t.Fatal(err)
			}

			v, ok, err := s.Get(ctx, "demoUser")
			if err != nil || !ok || v != `{"email":"c@d.com"}` {
				t.Errorf("Get after overwrite = %q, %v, %v", v, ok, err)
			}

			if err := s.Delete(ctx, "isAuthenticated"); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := s.Get(ctx, "isAuthenticated"); ok {
				t.Error("key survived Delete")
			}
			if err := s.Delete(ctx, "missing"); err != nil {
				t.Errorf("Delete missing key = %v", err)
			}
		})
	}
}

func TestRedisPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedis(client, "dash:")
	if err := s.Set(context.Background(), "isAuthenticated", "true"); err != nil {
		t.Fatal(err)
	}
	if got, err := mr.Get("dash:isAuthenticated"); err != nil || got != "true" {
		t.Errorf("raw key = %q, %v", got, err)
	}
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	if err := NewFile(path).Set(ctx, "isAuthenticated", "true"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := NewFile(path).Get(ctx, "isAuthenticated")
	if err != nil || !ok || v != "true" {
		t.Errorf("reopened Get = %q, %v, %v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != fileMode {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestFileConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := NewFile(path).Set(ctx, k, k); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	s := NewFile(path)
	for _, k := range keys {
		if v, ok, _ := s.Get(ctx, k); !ok || v != k {
			t.Errorf("key %s lost", k)
		}
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFile(path).Get(context.Background(), "x"); err == nil {
		t.Error("expected parse error")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	f, ok := s.(*File)
	if !ok || f.Path() != filepath.Join(dir, "state.json") {
		t.Errorf("default store = %#v", s)
	}

	s, err = Open(ctx, Options{Driver: "SQLite", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "state.db")); err != nil {
		t.Errorf("sqlite file: %v", err)
	}

	mr := miniredis.RunT(t)
	r, err := Open(ctx, Options{Driver: DriverRedis, RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	r.Close()

	if _, err := Open(ctx, Options{Driver: "etcd"}); !clierr.Is(err, clierr.InvalidInput) {
		t.Errorf("unknown driver = %v", err)
	}
}
