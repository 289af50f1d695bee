package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "mw-secret", JWTExpiry: time.Hour})
}

func tokenFor(t *testing.T, auth *service.AuthService, role model.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken(&model.User{ID: uuid.New(), Email: "x@y.z", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestRequireAuthAndRole(t *testing.T) {
	auth := newAuth()
	r := gin.New()
	r.GET("/admin", RequireAuth(auth), RequireRole(model.RoleSuperadmin), func(c *gin.Context) {
		c.String(http.StatusOK, string(GetClaims(c).Role))
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
		code   string
	}{
		{"missing token", "", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"malformed token", "Bearer not-a-jwt", "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"wrong scheme", "Basic " + tokenFor(t, auth, model.RoleSuperadmin), "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"role mismatch", "Bearer " + tokenFor(t, auth, model.RoleTeacher), "", http.StatusForbidden, "FORBIDDEN"},
		{"superadmin", "Bearer " + tokenFor(t, auth, model.RoleSuperadmin), "", http.StatusOK, ""},
		{"query token", "", tokenFor(t, auth, model.RoleSuperadmin), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/admin"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if tt.code != "" && !strings.Contains(w.Body.String(), `"code":"`+tt.code+`"`) {
				t.Errorf("body = %s, want code %s", w.Body.String(), tt.code)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if hit() != http.StatusNoContent || hit() != http.StatusNoContent {
		t.Fatal("first two requests should pass")
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}

	now = now.Add(time.Minute)
	if code := hit(); code != http.StatusNoContent {
		t.Errorf("after refill = %d, want 204", code)
	}

	if !rl.Allow("10.0.0.2") {
		t.Error("other IP should have its own bucket")
	}
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("cbt ", 1024)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func(path, accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", accept)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/large", "gzip, br")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("large body not compressed: %v", w.Header())
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != large {
		t.Error("decompressed body differs")
	}

	w = get("/small", "br")
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body: encoding %q body %q", w.Header().Get("Content-Encoding"), w.Body.String())
	}

	w = get("/large", "gzip")
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != large {
		t.Error("client without br received compressed body")
	}
}

func TestBrotliFlushDrainsBuffer(t *testing.T) {
	tail := strings.Repeat("x", 2048)
	w := httptest.NewRecorder()
	var afterFlush string

	r := gin.New()
	r.Use(Brotli())
	r.GET("/events", func(c *gin.Context) {
		c.Writer.Write([]byte("data: hello\n\n"))
		c.Writer.Flush()
		afterFlush = w.Body.String()
		c.Writer.Write([]byte(tail))
	})

	// No Accept: text/event-stream, so the compressor is in the chain.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)

	if afterFlush != "data: hello\n\n" {
		t.Fatalf("body after flush = %q", afterFlush)
	}
	if !w.Flushed {
		t.Error("underlying writer not flushed")
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q after a plain flush", enc)
	}
	if w.Body.String() != "data: hello\n\n"+tail {
		t.Errorf("body length = %d, want plain passthrough", w.Body.Len())
	}
}

func TestBrotliFlushCompressedStream(t *testing.T) {
	head := strings.Repeat("cbt ", 512)
	w := httptest.NewRecorder()
	var flushedBytes int

	r := gin.New()
	r.Use(Brotli())
	r.GET("/stream", func(c *gin.Context) {
		c.Writer.Write([]byte(head))
		c.Writer.Flush()
		flushedBytes = w.Body.Len()
		c.Writer.Write([]byte("end"))
	})

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)

	if flushedBytes == 0 {
		t.Fatal("compressed bytes held back by flush")
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != head+"end" {
		t.Error("decompressed body differs")
	}
}
