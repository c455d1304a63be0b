package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestContainsWildcard(t *testing.T) {
	if !containsWildcard([]string{"http://a", " * "}) {
		t.Error("expected wildcard to be detected")
	}
	if containsWildcard([]string{"http://a", "http://b"}) {
		t.Error("unexpected wildcard")
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-ID") == "" || w.Body.String() != w.Header().Get("X-Request-ID") {
		t.Errorf("expected a minted request ID, header=%q body=%q", w.Header().Get("X-Request-ID"), w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc" {
		t.Errorf("expected caller's request ID to be echoed, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestOpenBackend(t *testing.T) {
	t.Cleanup(viper.Reset)
	ctx := context.Background()

	tests := []struct {
		backend  string
		wantName string
		wantErr  bool
	}{
		{"file", "file", false},
		{"none", "none", false},
		{"s3", "", true},
	}
	for _, tt := range tests {
		viper.Set("persistence.backend", tt.backend)
		viper.Set("persistence.file_path", t.TempDir()+"/r.snap")

		b, closeFn, err := openBackend(ctx, zap.NewNop())
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.backend, err, tt.wantErr)
			continue
		}
		if err == nil {
			if b.Name() != tt.wantName {
				t.Errorf("%s: backend name = %q, want %q", tt.backend, b.Name(), tt.wantName)
			}
			closeFn()
		}
	}
}
