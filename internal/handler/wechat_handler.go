package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/service"
	"github.com/xxxsen/bbtalk/internal/wechat"
)

// maxBodyBytes caps the callback body so an oversized payload cannot pin
// memory.
const maxBodyBytes = 1 << 20

type WeChatHandler struct {
	codec    *wechat.Codec
	messages *service.MessageService
}

func NewWeChatHandler(codec *wechat.Codec, messages *service.MessageService) *WeChatHandler {
	return &WeChatHandler{codec: codec, messages: messages}
}

// Verify answers the GET verification handshake with the echo string.
func (h *WeChatHandler) Verify(c *gin.Context) {
	signature := c.Query("signature")
	timestamp := c.Query("timestamp")
	nonce := c.Query("nonce")
	echostr := c.Query("echostr")
	if signature == "" || timestamp == "" || nonce == "" || echostr == "" {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}
	if !h.codec.VerifyHandshake(signature, timestamp, nonce) {
		logutil.GetLogger(c.Request.Context()).Warn("handshake signature mismatch")
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	logutil.GetLogger(c.Request.Context()).Info("handshake verified")
	c.String(http.StatusOK, echostr)
}

// Receive handles one POST delivery. Structural failures get an HTTP error;
// anything after a successful parse ends in a reply (or a bare ack) so the
// platform always gets its idempotency signal.
func (h *WeChatHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}
	msg, err := wechat.ParseMessage(body)
	if err != nil {
		logutil.GetLogger(ctx).Warn("malformed message body", zap.Error(err))
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}
	logutil.GetLogger(ctx).Info("message received",
		zap.String("msg_type", msg.MsgType),
		zap.String("msg_id", msg.MsgID),
		zap.String("from", msg.FromUserName),
		zap.String("event", msg.Event))

	reply := h.messages.HandleMessage(ctx, msg)
	if reply == "" || reply == "success" {
		c.String(http.StatusOK, "success")
		return
	}
	envelope, err := h.codec.EncryptedReply(reply, msg.FromUserName, msg.ToUserName, time.Now())
	if err != nil {
		logutil.GetLogger(ctx).Error("encrypt reply failed", zap.Error(err))
		c.String(http.StatusOK, "success")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(envelope))
}
