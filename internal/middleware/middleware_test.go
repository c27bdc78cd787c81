package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(origin string) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), Gin(RequestID), AccessLog(), Gin(CORS(origin)), Gin(NoStore))
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c.Request.Context()))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestRequestID(t *testing.T) {
	r := newRouter("")

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		got := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("header %q is not a uuid", got)
		}
		if w.Body.String() != got {
			t.Fatalf("context id %q != header id %q", w.Body.String(), got)
		}
	})

	t.Run("client id reused", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Body.String() != id {
			t.Fatalf("got %q, want %q", w.Body.String(), id)
		}
	})

	t.Run("malformed client id replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Body.String() == "<script>" {
			t.Fatal("malformed id was propagated")
		}
	})
}

func TestCORS(t *testing.T) {
	r := newRouter("http://localhost:3000")

	t.Run("preflight answered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/id", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Fatal("missing allow-origin")
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatal("missing allow-credentials")
		}
	})

	t.Run("foreign origin ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Fatal("foreign origin must not be allowed")
		}
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestNoStore(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
