package health

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sp201004/CollabCanvas/backend/go/internal/v1/logging"
)

// Handler serves the liveness endpoint.
type Handler struct {
	dataDir string
}

// NewHandler creates a health check handler for the given snapshot directory.
func NewHandler(dataDir string) *Handler {
	return &Handler{dataDir: dataDir}
}

// Check responds 200 {"status":"ok"}. The persistence field is advisory: a
// read-only data directory degrades durability but not liveness.
func (h *Handler) Check(c *gin.Context) {
	persistence := "available"
	if !h.dataDirWritable() {
		persistence = "degraded"
		logging.Warn(c.Request.Context(), "Snapshot directory is not writable",
			zap.String("data_dir", h.dataDir))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": persistence,
	})
}

func (h *Handler) dataDirWritable() bool {
	probe := filepath.Join(h.dataDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
