package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

func serve(router *gin.Engine, method, ip string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/test", nil)
	if ip != "" {
		req.RemoteAddr = ip + ":1234"
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "any origin",
			cfg:        DefaultCORSConfig(),
			method:     http.MethodGet,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "preflight",
			cfg:        DefaultCORSConfig(),
			method:     http.MethodOptions,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusNoContent,
			wantOrigin: "*",
		},
		{
			name:       "no origin header",
			cfg:        DefaultCORSConfig(),
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name: "listed origin",
			cfg: CORSConfig{
				AllowOrigins: []string{"https://play.example.com"},
				AllowMethods: []string{"GET"},
				MaxAge:       time.Hour,
			},
			method:     http.MethodGet,
			origin:     "https://play.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "https://play.example.com",
		},
		{
			name: "unlisted origin",
			cfg: CORSConfig{
				AllowOrigins: []string{"https://play.example.com"},
				AllowMethods: []string{"GET"},
			},
			method:     http.MethodGet,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.Use(CORS(tt.cfg))
			router.GET("/test", ok)

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				header.Set("Access-Control-Request-Method", "GET")
			}

			w := serve(router, tt.method, "", header)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "PUT")
	assert.Contains(t, cfg.AllowHeaders, RequestIDHeader)
	assert.Contains(t, cfg.ExposeHeaders, "ETag")
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))
	router.GET("/test", ok)

	for i := 0; i < 2; i++ {
		w := serve(router, http.MethodGet, "192.168.1.1", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := serve(router, http.MethodGet, "192.168.1.1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// other clients have their own bucket
	w = serve(router, http.MethodGet, "192.168.1.2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))
	router.GET("/test", ok)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "10.0.0.2", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "10.0.0.3", nil).Code)
}

func TestLimiterEvictsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Clients())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 1, l.Clients())
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 100, cfg.RequestsPerSecond)
	assert.Equal(t, 200, cfg.Burst)
	assert.Equal(t, 10*time.Minute, cfg.IdleTTL)
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := serve(router, http.MethodGet, "", nil)
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = serve(router, http.MethodGet, "", http.Header{RequestIDHeader: {"client-42"}})
	assert.Equal(t, "client-42", w.Header().Get(RequestIDHeader))

	w = serve(router, http.MethodGet, "", http.Header{RequestIDHeader: {"bad id!"}})
	assert.NotEqual(t, "bad id!", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	router := setupTestRouter()
	router.Use(RequestID(), Recovery(zap.New(core)))
	router.GET("/test", func(c *gin.Context) {
		panic("kaboom")
	})

	w := serve(router, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Handler panicked", logs.All()[0].Message)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := setupTestRouter()
	router.Use(Logger(zap.New(core)))
	router.GET("/test", ok)
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(router, http.MethodGet, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zap.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, zap.WarnLevel, logs.All()[1].Level)
}

func TestBodyLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(BodyLimit(8))
	router.POST("/test", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("tiny"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	large := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("far too large"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, large)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1 << 20, Burst: 1 << 20}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestCompress(t *testing.T) {
	router := setupTestRouter()
	router.GET("/small", ok)
	router.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": strings.Repeat("console.log(1) ", 200)})
	})

	h, err := Compress(router)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		accept   string
		wantGzip bool
	}{
		{name: "large body", path: "/large", accept: "gzip", wantGzip: true},
		{name: "small body", path: "/small", accept: "gzip"},
		{name: "client without gzip", path: "/large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			if tt.wantGzip {
				assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			} else {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
			}
		})
	}
}
