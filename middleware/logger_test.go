package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

func newObservedRouter(level zapcore.Level, quiet ...string) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	log := zap.New(core)
	r := gin.New()
	r.Use(TraceID(), Recovery(log), Logger(log, quiet...))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	return r, logs
}

func TestLogger_LevelByStatus(t *testing.T) {
	r, logs := newObservedRouter(zapcore.DebugLevel)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("http").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
	assert.Len(t, entries[0].ContextMap()["trace_id"], 36)
}

func TestLogger_QuietPathsAtDebug(t *testing.T) {
	r, logs := newObservedRouter(zapcore.InfoLevel, "/stream")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Zero(t, logs.FilterMessage("http").Len())
}

func TestRecovery_Returns500WithTraceID(t *testing.T) {
	r, logs := newObservedRouter(zapcore.DebugLevel)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(TraceIDHeader, "panic-trace")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "panic-trace")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
