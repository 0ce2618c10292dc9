package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/starford/redisnotes/internal/connector"
	"github.com/starford/redisnotes/internal/notestore"
	"github.com/starford/redisnotes/internal/sse"
	"github.com/starford/redisnotes/internal/testutil"
)

func testHandler(t *testing.T) (http.Handler, *connector.Connector) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Backend = BackendSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "notes.db")

	kv, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	broker := sse.NewBroker(0)
	t.Cleanup(broker.Close)

	conn := connector.New(notestore.New(kv, testutil.Logger()), cfg.Connectors,
		connector.WithEventCallback(broker.PublishNoteEvent))
	return NewHandler(cfg, kv, conn, broker), conn
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := testHandler(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Errorf("%s body = %s", path, rec.Body.String())
		}
	}
}

func TestHealthReady_StoreDown(t *testing.T) {
	kv, mr := testutil.TestRedis(t)
	conn := connector.New(notestore.New(kv, testutil.Logger()), "redis_notes")
	h := NewHandler(NewDefaultConfig(), kv, conn, nil)

	mr.Close()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with store down = %d", rec.Code)
	}
}

func TestHandler_MountsAPI(t *testing.T) {
	h, conn := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{"timestamp":1373500800,"text":"hello #world"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}

	ids, err := conn.FindNotes(context.Background(), []string{"#world"})
	if err != nil || len(ids) != 1 || ids[0] != 1373500800 {
		t.Errorf("find = %v, %v", ids, err)
	}

	conn.SetConnectors("local_notes")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled list = %d", rec.Code)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Backend = "memcached"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err != errConfigRequired {
		t.Errorf("Run without config = %v", err)
	}
	if err := RunMCP(context.Background()); err != errConfigRequired {
		t.Errorf("RunMCP without config = %v", err)
	}
}

func TestWatchConnectors_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(connectors string) {
		t.Helper()
		data := "store:\n  backend: sqlite\nconnectors: \"" + connectors + "\"\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("redis_notes")

	conn := connector.New(notestore.New(testutil.TestSQLite(t), testutil.Logger()), "redis_notes")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchConnectors(ctx, path, conn, testutil.Logger()) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	write("local_notes")

	deadline := time.Now().Add(3 * time.Second)
	for conn.IsEnabled() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if conn.IsEnabled() {
		t.Error("connector still enabled after config edit")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch returned %v", err)
	}
}

func TestRun_StopsOnSignalWithConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	cfg.Store.Backend = BackendSQLite
	cfg.SQLite.Path = filepath.Join(dir, "notes.db")

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), WithConfig(cfg), WithConfigPath(path))
	}()

	// Let Run install its signal handler.
	time.Sleep(300 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after SIGTERM")
	}
}
