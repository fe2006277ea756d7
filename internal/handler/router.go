package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	WeChat *WeChatHandler
	Admin  *AdminHandler
}

func RegisterRoutes(r gin.IRouter, deps RouterDeps) {
	r.GET("/wechat", deps.WeChat.Verify)
	r.POST("/wechat", deps.WeChat.Receive)

	r.POST("/admin/snapshots/rebuild", deps.Admin.RebuildSnapshots)
}
