package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRegisterPageRoutes(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"index.html":   "landing",
		"control.html": "control panel",
		"display.html": "big clock",
		"app.js":       "console.log('timer')",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := chi.NewRouter()
	if !RegisterPageRoutes(r, dir) {
		t.Fatal("RegisterPageRoutes returned false for an existing directory")
	}

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, "landing"},
		{"/control", http.StatusOK, "control panel"},
		{"/display", http.StatusOK, "big clock"},
		{"/app.js", http.StatusOK, "console.log"},
		{"/missing.css", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			body, _ := io.ReadAll(rec.Body)
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestRegisterPageRoutesMissingDir(t *testing.T) {
	for _, dir := range []string{"", filepath.Join(t.TempDir(), "nope")} {
		r := chi.NewRouter()
		if RegisterPageRoutes(r, dir) {
			t.Errorf("RegisterPageRoutes(%q) = true, want false", dir)
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/control", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	}
}
