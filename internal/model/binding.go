package model

// Binding links a messaging-platform user id to the permission to post and
// manage notes.
type Binding struct {
	UserID    string `json:"user_id"`
	IsBinding bool   `json:"is_binding"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}
