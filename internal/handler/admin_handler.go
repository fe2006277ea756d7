package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/service"
)

// AdminHandler exposes the manual snapshot rebuild, guarded by the same
// shared secret the bind command uses.
type AdminHandler struct {
	snapshots  *service.SnapshotService
	bindingKey string
}

func NewAdminHandler(snapshots *service.SnapshotService, bindingKey string) *AdminHandler {
	return &AdminHandler{snapshots: snapshots, bindingKey: bindingKey}
}

func (h *AdminHandler) RebuildSnapshots(c *gin.Context) {
	supplied := c.GetHeader("binding-key")
	if supplied == "" {
		supplied = c.Query("binding-key")
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.bindingKey)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "未经授权"})
		return
	}
	if err := h.snapshots.RebuildAll(c.Request.Context()); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("snapshot rebuild failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "BBtalk 最新数据分页 JSON 上传成功！"})
}
