package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReportsOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(t.TempDir())

	router := gin.New()
	router.GET("/api/health", handler.Check)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "available", body["persistence"])
}

func TestCheckDegradedWhenDirMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler("/definitely/not/a/real/dir")

	router := gin.New()
	router.GET("/api/health", handler.Check)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	// Liveness holds even when durability is degraded.
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "degraded", body["persistence"])
}
