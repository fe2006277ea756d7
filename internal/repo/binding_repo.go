package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/bbtalk/internal/model"
	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

type BindingRepo struct {
	db *sql.DB
}

func NewBindingRepo(db *sql.DB) *BindingRepo {
	return &BindingRepo{db: db}
}

// Upsert atomically creates or flips the binding record for userID. The
// single-statement upsert avoids the read-then-write race a naive
// create-or-update would have; concurrent binds are last-writer-wins.
func (r *BindingRepo) Upsert(ctx context.Context, userID string, isBinding bool, now int64) error {
	const query = `INSERT INTO bindings(user_id, is_binding, ctime, mtime) VALUES(?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET is_binding = excluded.is_binding, mtime = excluded.mtime`
	flag := 0
	if isBinding {
		flag = 1
	}
	_, err := r.db.ExecContext(ctx, query, userID, flag, now, now)
	return err
}

func (r *BindingRepo) Get(ctx context.Context, userID string) (*model.Binding, error) {
	where := map[string]interface{}{
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("bindings", where, []string{"user_id", "is_binding", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var binding model.Binding
	var flag int
	if err := rows.Scan(&binding.UserID, &flag, &binding.Ctime, &binding.Mtime); err != nil {
		return nil, err
	}
	binding.IsBinding = flag != 0
	return &binding, nil
}

// Delete removes the binding record, reporting whether one existed.
func (r *BindingRepo) Delete(ctx context.Context, userID string) (bool, error) {
	where := map[string]interface{}{
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildDelete("bindings", where)
	if err != nil {
		return false, err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
