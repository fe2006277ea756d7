package wechat

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

const (
	MsgTypeText       = "text"
	MsgTypeImage      = "image"
	MsgTypeVoice      = "voice"
	MsgTypeVideo      = "video"
	MsgTypeShortVideo = "shortvideo"
	MsgTypeLocation   = "location"
	MsgTypeLink       = "link"
	MsgTypeEvent      = "event"
)

const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// IncomingMessage is one platform message as delivered on the POST webhook.
// Which fields are populated depends on MsgType.
type IncomingMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	MsgID        string   `xml:"MsgId"`
	Content      string   `xml:"Content"`
	MediaID      string   `xml:"MediaId"`
	PicURL       string   `xml:"PicUrl"`
	Format       string   `xml:"Format"`
	ThumbMediaID string   `xml:"ThumbMediaId"`
	LocationX    string   `xml:"Location_X"`
	LocationY    string   `xml:"Location_Y"`
	Scale        string   `xml:"Scale"`
	Label        string   `xml:"Label"`
	Title        string   `xml:"Title"`
	Description  string   `xml:"Description"`
	URL          string   `xml:"Url"`
	Event        string   `xml:"Event"`
	EventKey     string   `xml:"EventKey"`
}

func ParseMessage(body []byte) (*IncomingMessage, error) {
	var msg IncomingMessage
	if err := xml.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrBadEnvelope, err)
	}
	if msg.MsgType == "" {
		return nil, appErr.ErrBadEnvelope
	}
	return &msg, nil
}

// EncryptedReply wraps a text reply in the fixed XML envelope of secure
// mode: the encrypted body rides next to the plain content, signed with a
// per-message signature over {token, timestamp, nonce, encrypted}.
func (c *Codec) EncryptedReply(reply, toUser, fromUser string, now time.Time) (string, error) {
	encrypted, err := c.Encrypt(reply)
	if err != nil {
		return "", err
	}
	timestamp := fmt.Sprintf("%d", now.Unix())
	nonce := randomNonce()
	signature := c.Signature(timestamp, nonce, encrypted)
	return fmt.Sprintf(`<xml>
<ToUserName><![CDATA[%s]]></ToUserName>
<FromUserName><![CDATA[%s]]></FromUserName>
<CreateTime>%s</CreateTime>
<MsgType><![CDATA[text]]></MsgType>
<Content><![CDATA[%s]]></Content>
<Encrypt><![CDATA[%s]]></Encrypt>
<MsgSignature><![CDATA[%s]]></MsgSignature>
<Nonce><![CDATA[%s]]></Nonce>
</xml>`, toUser, fromUser, timestamp, cdataSafe(reply), encrypted, signature, nonce), nil
}

// DecryptReply extracts the plain text out of an envelope produced by
// EncryptedReply, verifying the message signature first.
func (c *Codec) DecryptReply(envelope []byte) (string, error) {
	var env struct {
		Encrypt      string `xml:"Encrypt"`
		MsgSignature string `xml:"MsgSignature"`
		CreateTime   string `xml:"CreateTime"`
		Nonce        string `xml:"Nonce"`
	}
	if err := xml.Unmarshal(envelope, &env); err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrBadEnvelope, err)
	}
	if env.Encrypt == "" {
		return "", appErr.ErrBadEnvelope
	}
	expect := c.Signature(env.CreateTime, env.Nonce, env.Encrypt)
	if expect != env.MsgSignature {
		return "", appErr.ErrUnauthorized
	}
	return c.Decrypt(env.Encrypt)
}

// cdataSafe breaks any "]]>" inside user text so it cannot terminate the
// CDATA section early.
func cdataSafe(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
