package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := decodeResult(t, rec); body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

func TestReadyz(t *testing.T) {
	pass := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "database", Check: pass},
				{Name: "storage", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"database": "ok", "storage": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "database", Check: func(context.Context) error {
					return errors.New("connection refused")
				}},
				{Name: "storage", Check: pass},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{
				"database": "fail: connection refused",
				"storage":  "ok",
			},
		},
		{
			name: "all fail",
			checkers: []Checker{
				{Name: "database", Check: func(context.Context) error {
					return errors.New("timeout")
				}},
				{Name: "storage", Check: func(context.Context) error {
					return errors.New("read-only file system")
				}},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{
				"database": "fail: timeout",
				"storage":  "fail: read-only file system",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tc.checkers...).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			body := decodeResult(t, rec)
			if body.Status != tc.wantStatus {
				t.Errorf("body status = %q, want %q", body.Status, tc.wantStatus)
			}
			for name, want := range tc.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyzRespectsContextCancellation(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New(Checker{Name: "database", Check: func(context.Context) error { return nil }}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestStorageRootChecker(t *testing.T) {
	t.Run("creates missing root and writes", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "uploads")
		c := StorageRoot(root)
		if c.Name != "storage" {
			t.Errorf("name = %q, want storage", c.Name)
		}
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := os.Stat(root); err != nil {
			t.Errorf("root not created: %v", err)
		}
		// The write check must not leave temp files behind.
		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("leftover entries in root: %d", len(entries))
		}
	})

	t.Run("fails when root is a file", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "not-a-dir")
		if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if err := StorageRoot(root).Run(context.Background()); err == nil {
			t.Error("Run with file as root: got nil, want error")
		}
	})
}

func TestDatabaseChecker(t *testing.T) {
	pingErr := errors.New("dial tcp: connection refused")
	c := Database(func(context.Context) error { return pingErr })
	if c.Name != "database" {
		t.Errorf("name = %q, want database", c.Name)
	}
	if err := c.Run(context.Background()); !errors.Is(err, pingErr) {
		t.Errorf("Run = %v, want %v", err, pingErr)
	}
}
