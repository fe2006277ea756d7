package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/filestore"
	"github.com/xxxsen/bbtalk/internal/model"
	"github.com/xxxsen/bbtalk/internal/repo"
)

// rebuildFetchLimit bounds one backing-store query during a full rebuild.
const rebuildFetchLimit = 1000

// SnapshotService denormalizes notes into numbered JSON pages on the object
// store so a CDN can serve the public micro-blog without touching the
// database. Page N holds notes ranked (N-1)*pageSize .. N*pageSize-1 in
// newest-first order.
type SnapshotService struct {
	notes    *repo.NoteRepo
	store    filestore.Store
	jsonPath string
	pageSize int
}

func NewSnapshotService(notes *repo.NoteRepo, store filestore.Store, jsonPath string, pageSize int) *SnapshotService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &SnapshotService{notes: notes, store: store, jsonPath: jsonPath, pageSize: pageSize}
}

type snapshotEntry struct {
	MsgType   string      `json:"MsgType"`
	Content   string      `json:"content"`
	Other     interface{} `json:"other"`
	From      string      `json:"from"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
	ObjectID  string      `json:"objectId"`
}

type snapshotPage struct {
	Results []snapshotEntry `json:"results"`
	Count   int             `json:"count"`
}

func (s *SnapshotService) PageSize() int {
	return s.pageSize
}

// PageForPosition returns the page number holding the note at the given
// 1-based position.
func (s *SnapshotService) PageForPosition(pos uint) int {
	if pos == 0 {
		return 1
	}
	return (int(pos)-1)/s.pageSize + 1
}

func (s *SnapshotService) pageKey(pageNum int) string {
	return path.Join(s.jsonPath, fmt.Sprintf("bbtalk_page%d.json", pageNum))
}

// RegeneratePage rewrites a single page. Suitable after in-place edits,
// where membership of every page is unchanged.
func (s *SnapshotService) RegeneratePage(ctx context.Context, pageNum int) error {
	if pageNum < 1 {
		pageNum = 1
	}
	count, err := s.notes.Count(ctx)
	if err != nil {
		return fmt.Errorf("count notes: %w", err)
	}
	notes, err := s.notes.Page(ctx, uint((pageNum-1)*s.pageSize), uint(s.pageSize))
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", pageNum, err)
	}
	return s.writePage(ctx, pageNum, notes, count)
}

// RebuildAll regenerates every page. Required after a create or delete,
// which shifts the membership of all subsequent pages. Trailing page
// objects left over from a shrink are removed best effort.
func (s *SnapshotService) RebuildAll(ctx context.Context) error {
	all := make([]model.Note, 0)
	for offset := uint(0); ; offset += rebuildFetchLimit {
		batch, err := s.notes.Page(ctx, offset, rebuildFetchLimit)
		if err != nil {
			return fmt.Errorf("fetch notes at %d: %w", offset, err)
		}
		all = append(all, batch...)
		if len(batch) < rebuildFetchLimit {
			break
		}
	}
	count := len(all)
	pageCount := (count + s.pageSize - 1) / s.pageSize
	if pageCount == 0 {
		pageCount = 1 // keep an empty page 1 so the front end never 404s
	}
	for i := 1; i <= pageCount; i++ {
		start := (i - 1) * s.pageSize
		end := i * s.pageSize
		if end > count {
			end = count
		}
		if err := s.writePage(ctx, i, all[start:end], count); err != nil {
			return err
		}
	}
	// a shrink can strand more than one trailing page; sweep until a miss
	for page := pageCount + 1; ; page++ {
		if err := s.store.Delete(ctx, s.pageKey(page)); err != nil {
			logutil.GetLogger(ctx).Debug("no trailing snapshot page to remove",
				zap.Int("page", page), zap.Error(err))
			break
		}
	}
	return nil
}

func (s *SnapshotService) writePage(ctx context.Context, pageNum int, notes []model.Note, count int) error {
	page := snapshotPage{
		Results: make([]snapshotEntry, 0, len(notes)),
		Count:   count,
	}
	for _, note := range notes {
		page.Results = append(page.Results, toSnapshotEntry(note))
	}
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page %d: %w", pageNum, err)
	}
	key := s.pageKey(pageNum)
	if err := s.store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logutil.GetLogger(ctx).Info("snapshot page uploaded",
		zap.String("key", key), zap.Int("entries", len(notes)), zap.Int("count", count))
	return nil
}

func toSnapshotEntry(note model.Note) snapshotEntry {
	entry := snapshotEntry{
		MsgType:   note.Kind,
		Content:   note.Content,
		Other:     note.Auxiliary,
		From:      note.Author,
		CreatedAt: formatSnapshotTime(note.Ctime),
		UpdatedAt: formatSnapshotTime(note.Mtime),
		ObjectID:  note.ID,
	}
	// music notes carry structured metadata in the auxiliary slot
	if note.Kind == "music" && note.Auxiliary != "" {
		var parsed interface{}
		if err := json.Unmarshal([]byte(note.Auxiliary), &parsed); err == nil {
			entry.Other = parsed
		}
	}
	return entry
}

func formatSnapshotTime(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02T15:04:05.000Z")
}
