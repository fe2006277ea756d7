package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/command"
	"github.com/xxxsen/bbtalk/internal/track"
	"github.com/xxxsen/bbtalk/internal/wechat"
)

// ackSuccess is the bare acknowledgment the platform expects when there is
// nothing to say but the delivery must not be retried.
const ackSuccess = "success"

const (
	retryPollInterval = 1 * time.Second
	retryPollAttempts = 3
)

// MessageService is the per-delivery state machine: dedupe, binding check,
// then command dispatch, plain publishing or the async media pipeline. It
// always produces a reply string; protocol-level failures are the handler's
// business, everything after a successful parse ends in a chat message.
type MessageService struct {
	talks      *TalkService
	media      *MediaService
	bindings   *BindingService
	idem       *track.IdempotencyTracker
	completion *track.CompletionTracker
}

func NewMessageService(talks *TalkService, media *MediaService, bindings *BindingService,
	idem *track.IdempotencyTracker, completion *track.CompletionTracker) *MessageService {
	return &MessageService{
		talks:      talks,
		media:      media,
		bindings:   bindings,
		idem:       idem,
		completion: completion,
	}
}

// deliveryKey is the stable identifier one delivery is deduped on. Media
// messages key on the media id so a re-sent media message never restarts an
// upload already underway.
func deliveryKey(msg *wechat.IncomingMessage) string {
	switch msg.MsgType {
	case wechat.MsgTypeImage, wechat.MsgTypeVoice, wechat.MsgTypeVideo, wechat.MsgTypeShortVideo:
		if msg.MediaID != "" {
			return "media:" + msg.MediaID
		}
	}
	if msg.MsgID != "" {
		return "msg:" + msg.MsgID
	}
	return ""
}

// bindingFree lists the verbs usable before a binding exists.
func bindingFree(verb string) bool {
	switch verb {
	case command.VerbHelp, command.VerbUnbind, command.VerbBind:
		return true
	}
	return false
}

// HandleMessage processes one inbound delivery and returns the reply text.
func (s *MessageService) HandleMessage(ctx context.Context, msg *wechat.IncomingMessage) string {
	if msg.MsgType == wechat.MsgTypeEvent {
		return s.handleEvent(msg)
	}

	key := deliveryKey(msg)
	if key != "" && s.idem.Seen(key) {
		return s.handleRedelivery(ctx, key)
	}
	if key != "" {
		s.idem.MarkSeen(key)
	}

	userID := msg.FromUserName

	if msg.MsgType == wechat.MsgTypeText {
		content := strings.TrimSpace(msg.Content)
		if command.IsCommand(content) {
			cmd, _ := command.Parse(content)
			if !bindingFree(cmd.Verb) {
				if reply := s.requireBinding(ctx, userID); reply != "" {
					return reply
				}
			}
			return s.completeSync(ctx, key, func() string {
				return s.talks.Dispatch(ctx, userID, cmd)
			})
		}
	}

	if reply := s.requireBinding(ctx, userID); reply != "" {
		return reply
	}

	switch msg.MsgType {
	case wechat.MsgTypeText:
		return s.completeSync(ctx, key, func() string {
			return s.talks.Publish(ctx, strings.TrimSpace(msg.Content), wechat.MsgTypeText, "")
		})
	case wechat.MsgTypeImage, wechat.MsgTypeVoice, wechat.MsgTypeVideo, wechat.MsgTypeShortVideo:
		return s.startMedia(ctx, key, msg)
	case wechat.MsgTypeLocation:
		return s.completeSync(ctx, key, func() string {
			// Location_X is latitude, Location_Y longitude
			return s.talks.PublishLocation(ctx, msg.Scale, msg.Label, msg.LocationY, msg.LocationX)
		})
	case wechat.MsgTypeLink:
		return s.completeSync(ctx, key, func() string {
			return s.talks.PublishLink(ctx, msg.Title, msg.Description, msg.URL)
		})
	default:
		return replyUnsupported
	}
}

func (s *MessageService) handleEvent(msg *wechat.IncomingMessage) string {
	switch msg.Event {
	case wechat.EventSubscribe:
		return replySubscribe
	case wechat.EventUnsubscribe:
		return replyUnsubscribe
	default:
		return ackSuccess
	}
}

// handleRedelivery answers a duplicate delivery: the side effects already
// ran (or are running), so either hand back the recorded result or a bare
// ack after a bounded wait.
func (s *MessageService) handleRedelivery(ctx context.Context, key string) string {
	status, ok := s.completion.Poll(key)
	if !ok {
		return ackSuccess
	}
	if !status.Done {
		status = s.completion.Wait(ctx, key, retryPollInterval, retryPollAttempts)
	}
	if status.Done {
		return status.Result
	}
	return ackSuccess
}

// completeSync runs fn on the request goroutine and records the outcome so
// a redelivery can fetch it instead of re-executing.
func (s *MessageService) completeSync(ctx context.Context, key string, fn func() string) string {
	_ = ctx
	if key != "" {
		s.completion.Begin(key)
	}
	reply := fn()
	if key != "" {
		s.completion.Complete(key, reply)
	}
	return reply
}

// startMedia acks immediately and lets the pipeline finish in the
// background; the completion tracker carries the real outcome to whichever
// delivery asks next.
func (s *MessageService) startMedia(ctx context.Context, key string, msg *wechat.IncomingMessage) string {
	if key == "" || s.completion.Begin(key) {
		msgType, mediaID := msg.MsgType, msg.MediaID
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
			defer cancel()
			result := s.media.Process(bgCtx, msgType, mediaID)
			if key != "" {
				s.completion.Complete(key, result)
			}
		}()
	}
	return mediaAck(msg.MsgType)
}

func (s *MessageService) requireBinding(ctx context.Context, userID string) string {
	bound, err := s.bindings.IsBound(ctx, userID)
	if err != nil {
		logutil.GetLogger(ctx).Error("binding lookup failed", zap.String("user_id", userID), zap.Error(err))
		return replyTryAgain
	}
	if !bound {
		return replyNotBound
	}
	return ""
}
