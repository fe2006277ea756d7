package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/bbtalk/internal/model"
	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

// maxListLimit caps user-supplied limits on listing queries.
const maxListLimit = 100

var noteFields = []string{"id", "content", "author", "kind", "auxiliary", "ctime", "mtime"}

// NoteRepo provides ordered CRUD over note records. Every read orders by
// creation time descending so that 1-based positions handed out by a listing
// stay valid for the follow-up edit/delete commands.
type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Create(ctx context.Context, note *model.Note) error {
	data := map[string]interface{}{
		"id":        note.ID,
		"content":   note.Content,
		"author":    note.Author,
		"kind":      note.Kind,
		"auxiliary": note.Auxiliary,
		"ctime":     note.Ctime,
		"mtime":     note.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *NoteRepo) MostRecent(ctx context.Context, limit uint) ([]model.Note, error) {
	if limit == 0 {
		limit = 10
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return r.Page(ctx, 0, limit)
}

// Page returns limit notes starting at offset, newest first.
func (r *NoteRepo) Page(ctx context.Context, offset, limit uint) ([]model.Note, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc, seq desc",
		"_limit":   []uint{offset, limit},
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// Search matches notes whose content contains keyword, case sensitive.
// sqlite LIKE folds ASCII case, so match through instr instead.
func (r *NoteRepo) Search(ctx context.Context, keyword string) ([]model.Note, error) {
	const query = `SELECT id, content, author, kind, auxiliary, ctime, mtime
		FROM notes WHERE instr(content, ?) > 0 ORDER BY ctime DESC, seq DESC`
	rows, err := r.db.QueryContext(ctx, query, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// ByPosition resolves the 1-based position pos against the newest-first
// ordering by fetching pos notes and indexing the tail. This keeps the
// resolution consistent with what a preceding list command displayed.
func (r *NoteRepo) ByPosition(ctx context.Context, pos uint) (*model.Note, error) {
	if pos == 0 {
		return nil, appErr.ErrOutOfRange
	}
	notes, err := r.MostRecent(ctx, pos)
	if err != nil {
		return nil, err
	}
	if uint(len(notes)) < pos {
		return nil, appErr.ErrOutOfRange
	}
	note := notes[pos-1]
	return &note, nil
}

func (r *NoteRepo) UpdateContent(ctx context.Context, id, content string, mtime int64) error {
	where := map[string]interface{}{
		"id": id,
	}
	update := map[string]interface{}{
		"content": content,
		"mtime":   mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("notes", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *NoteRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildDelete("notes", where)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *NoteRepo) Count(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanNotes(rows *sql.Rows) ([]model.Note, error) {
	notes := make([]model.Note, 0)
	for rows.Next() {
		var note model.Note
		if err := rows.Scan(&note.ID, &note.Content, &note.Author, &note.Kind, &note.Auxiliary, &note.Ctime, &note.Mtime); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
