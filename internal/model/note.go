package model

const (
	KindText       = "text"
	KindImage      = "image"
	KindVoice      = "voice"
	KindVideo      = "video"
	KindShortVideo = "shortvideo"
	KindLocation   = "location"
	KindLink       = "link"
)

// DefaultAuthor is the display label attached to every note published
// through the chat channel.
const DefaultAuthor = "✨ WeChat"

// Note is one published micro-blog entry. Content may hold plain text, a
// media URL or an HTML fragment; Auxiliary carries a secondary payload such
// as a map-rendering script.
type Note struct {
	ID        string `json:"objectId"`
	Content   string `json:"content"`
	Author    string `json:"from"`
	Kind      string `json:"MsgType"`
	Auxiliary string `json:"other"`
	Ctime     int64  `json:"createdAt"`
	Mtime     int64  `json:"updatedAt"`
}
