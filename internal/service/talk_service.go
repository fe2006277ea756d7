package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/command"
	"github.com/xxxsen/bbtalk/internal/filestore"
	"github.com/xxxsen/bbtalk/internal/model"
	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
	"github.com/xxxsen/bbtalk/internal/repo"
	"github.com/xxxsen/bbtalk/internal/track"
)

const (
	defaultListLimit = 10

	// bounded short-poll for a retried delete delivery
	deletePollInterval = 500 * time.Millisecond
	deletePollAttempts = 4
	deleteRetryBudget  = 3

	backgroundTimeout = 2 * time.Minute
)

type amendMode int

const (
	amendAppend amendMode = iota
	amendPrepend
	amendReplace
)

// TalkService owns the command state machine: it resolves parsed commands
// against the note store and converts every failure into a user-facing chat
// string. Nothing below it is allowed to leak an error to the HTTP layer.
type TalkService struct {
	notes      *repo.NoteRepo
	snapshots  *SnapshotService
	bindings   *BindingService
	store      filestore.Store
	completion *track.CompletionTracker
	mediaURLRe *regexp.Regexp
}

func NewTalkService(notes *repo.NoteRepo, snapshots *SnapshotService, bindings *BindingService,
	store filestore.Store, completion *track.CompletionTracker, mediaDomain string) *TalkService {
	return &TalkService{
		notes:      notes,
		snapshots:  snapshots,
		bindings:   bindings,
		store:      store,
		completion: completion,
		mediaURLRe: regexp.MustCompile(`https?://` + regexp.QuoteMeta(mediaDomain) + `/[^\s"'<>)]+`),
	}
}

// Dispatch routes one parsed command. Unknown verbs get the help hint, not
// an error.
func (s *TalkService) Dispatch(ctx context.Context, userID string, cmd command.Command) string {
	if !cmd.Known {
		return replyUnknownCommand
	}
	switch cmd.Verb {
	case command.VerbHelp:
		return replyHelp
	case command.VerbList:
		return s.list(ctx, cmd)
	case command.VerbSearch:
		return s.search(ctx, cmd)
	case command.VerbAppend:
		return s.amend(ctx, cmd, amendAppend)
	case command.VerbPrepend:
		return s.amend(ctx, cmd, amendPrepend)
	case command.VerbEdit:
		return s.amend(ctx, cmd, amendReplace)
	case command.VerbDelete:
		return s.delete(ctx, userID, cmd)
	case command.VerbBind:
		return s.bind(ctx, userID, cmd)
	case command.VerbUnbind:
		return s.unbind(ctx, userID)
	}
	return replyUnknownCommand
}

// Publish creates a note and rebuilds the public snapshots. Any failure is
// reported as a chat string.
func (s *TalkService) Publish(ctx context.Context, content, kind, auxiliary string) string {
	now := time.Now().UnixMilli()
	note := &model.Note{
		ID:        uuid.NewString(),
		Content:   content,
		Author:    model.DefaultAuthor,
		Kind:      kind,
		Auxiliary: auxiliary,
		Ctime:     now,
		Mtime:     now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		logutil.GetLogger(ctx).Error("create note failed", zap.String("kind", kind), zap.Error(err))
		return replyTryAgain
	}
	logutil.GetLogger(ctx).Info("note published", zap.String("id", note.ID), zap.String("kind", kind))
	if err := s.snapshots.RebuildAll(ctx); err != nil {
		logutil.GetLogger(ctx).Error("snapshot rebuild failed", zap.Error(err))
	}
	return publishReply(kind, content)
}

// PublishLocation publishes a map card; the rendering script rides in the
// auxiliary slot.
func (s *TalkService) PublishLocation(ctx context.Context, scale, label, lon, lat string) string {
	dom, script := locationFragment(scale, label, lon, lat)
	return s.Publish(ctx, dom, model.KindLocation, script)
}

func (s *TalkService) PublishLink(ctx context.Context, title, description, linkURL string) string {
	return s.Publish(ctx, linkFragment(title, description, linkURL), model.KindLink, "")
}

func (s *TalkService) list(ctx context.Context, cmd command.Command) string {
	limit := uint(defaultListLimit)
	if cmd.HasIndex && cmd.Index > 0 {
		limit = cmd.Index
	}
	notes, err := s.notes.MostRecent(ctx, limit)
	if err != nil {
		logutil.GetLogger(ctx).Error("list notes failed", zap.Error(err))
		return replyTryAgain
	}
	return renderList(noteContents(notes))
}

func (s *TalkService) search(ctx context.Context, cmd command.Command) string {
	keyword := strings.TrimSpace(cmd.Payload)
	if keyword == "" {
		return replySearchMissing
	}
	notes, err := s.notes.Search(ctx, keyword)
	if err != nil {
		logutil.GetLogger(ctx).Error("search notes failed", zap.String("keyword", keyword), zap.Error(err))
		return replyTryAgain
	}
	return renderSearch(keyword, noteContents(notes))
}

func (s *TalkService) amend(ctx context.Context, cmd command.Command, mode amendMode) string {
	if cmd.Payload == "" {
		switch mode {
		case amendAppend:
			return replyAppendUsage
		case amendPrepend:
			return replyPrependUsage
		default:
			return replyUnknownCommand
		}
	}
	pos := uint(1)
	if cmd.HasIndex {
		pos = cmd.Index
	}
	note, err := s.notes.ByPosition(ctx, pos)
	if err != nil {
		if appErr.IsOutOfRange(err) {
			return replyInvalidIndex
		}
		logutil.GetLogger(ctx).Error("resolve position failed", zap.Uint("pos", pos), zap.Error(err))
		return replyTryAgain
	}
	var content string
	switch mode {
	case amendAppend:
		content = note.Content + cmd.Payload
	case amendPrepend:
		content = cmd.Payload + note.Content
	default:
		content = cmd.Payload
	}
	if err := s.notes.UpdateContent(ctx, note.ID, content, time.Now().UnixMilli()); err != nil {
		logutil.GetLogger(ctx).Error("update note failed", zap.String("id", note.ID), zap.Error(err))
		return replyTryAgain
	}
	// note count is unchanged, only the page holding this note shifts
	if err := s.snapshots.RegeneratePage(ctx, s.snapshots.PageForPosition(pos)); err != nil {
		logutil.GetLogger(ctx).Error("snapshot page regenerate failed", zap.Error(err))
	}
	switch mode {
	case amendAppend:
		return fmt.Sprintf("已追加文本到第 %d 条", pos)
	case amendPrepend:
		return fmt.Sprintf("已插入文本到第 %d 条", pos)
	default:
		return fmt.Sprintf("已修改第 %d 条内容为：%s", pos, cmd.Payload)
	}
}

// delete runs asynchronously: the object-store round trip can blow the
// platform's response window, so the first delivery gets a processing ack
// and retried deliveries observe the tracked outcome.
func (s *TalkService) delete(ctx context.Context, userID string, cmd command.Command) string {
	if !cmd.HasIndex || cmd.Index == 0 {
		return replyDeleteUsage
	}
	key := fmt.Sprintf("delete:%s:%d", userID, cmd.Index)
	if s.completion.Begin(key) {
		go s.processDelete(key, cmd.Index)
		return replyDeletePending
	}
	status, ok := s.completion.Poll(key)
	if !ok {
		return replyDeletePending
	}
	if status.Done {
		s.completion.Forget(key)
		return status.Result
	}
	if status.Retries <= deleteRetryBudget {
		status = s.completion.Wait(ctx, key, deletePollInterval, deletePollAttempts)
		if status.Done {
			s.completion.Forget(key)
			return status.Result
		}
	}
	return replyDeletePending
}

func (s *TalkService) processDelete(key string, pos uint) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	logger := logutil.GetLogger(ctx).With(zap.String("key", key), zap.Uint("pos", pos))

	note, err := s.notes.ByPosition(ctx, pos)
	if err != nil {
		if appErr.IsOutOfRange(err) {
			s.completion.Complete(key, replyInvalidIndex)
			return
		}
		logger.Error("resolve delete target failed", zap.Error(err))
		s.completion.Complete(key, replyTryAgain)
		return
	}
	// media object removal is best effort, the note record wins
	if mediaURL := s.extractMediaURL(note.Content); mediaURL != "" {
		if objKey := storageKeyFromURL(mediaURL); objKey != "" {
			if err := s.store.Delete(ctx, objKey); err != nil {
				logger.Warn("delete media object failed", zap.String("key", objKey), zap.Error(err))
			}
		}
	}
	if err := s.notes.Delete(ctx, note.ID); err != nil {
		logger.Error("delete note failed", zap.String("id", note.ID), zap.Error(err))
		s.completion.Complete(key, replyTryAgain)
		return
	}
	logger.Info("note deleted", zap.String("id", note.ID))
	// deleting shifts every subsequent page
	if err := s.snapshots.RebuildAll(ctx); err != nil {
		logger.Error("snapshot rebuild failed", zap.Error(err))
	}
	s.completion.Complete(key, replyDeleteOK)
}

func (s *TalkService) bind(ctx context.Context, userID string, cmd command.Command) string {
	ok, err := s.bindings.Bind(ctx, userID, strings.TrimSpace(cmd.Payload))
	if err != nil {
		logutil.GetLogger(ctx).Error("bind failed", zap.String("user_id", userID), zap.Error(err))
		return replyTryAgain
	}
	if !ok {
		return replyBindFailed
	}
	return replyBindOK
}

func (s *TalkService) unbind(ctx context.Context, userID string) string {
	existed, err := s.bindings.Unbind(ctx, userID)
	if err != nil {
		logutil.GetLogger(ctx).Error("unbind failed", zap.String("user_id", userID), zap.Error(err))
		return replyTryAgain
	}
	if !existed {
		return replyUnbindMissing
	}
	return replyUnbindOK
}

func (s *TalkService) extractMediaURL(content string) string {
	return s.mediaURLRe.FindString(content)
}

func storageKeyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

func noteContents(notes []model.Note) []string {
	contents := make([]string, 0, len(notes))
	for _, note := range notes {
		contents = append(contents, note.Content)
	}
	return contents
}
