package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const blobTable = "kv_blobs"

const createBlobTable = `CREATE TABLE IF NOT EXISTS kv_blobs (
	blob_key   TEXT PRIMARY KEY,
	blob_value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

func (r *Repository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBlobTable); err != nil {
		return errors.Wrap(err, "failed to create blob table")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := squirrel.
		Select("blob_value").
		From(blobTable).
		Where(squirrel.Eq{"blob_key": key}).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build blob select query")
	}

	var value string
	err = r.db.GetContext(ctx, &value, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get blob %q", key)
	}

	return []byte(value), nil
}

func (r *Repository) SetMany(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// stable order keeps lock acquisition consistent across writers
	sort.Strings(keys)

	now := time.Now().UTC()
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, key := range keys {
			query, args, err := squirrel.
				Insert(blobTable).
				Columns("blob_key", "blob_value", "updated_at").
				Values(key, string(values[key]), now).
				Suffix("ON CONFLICT (blob_key) DO UPDATE SET blob_value = EXCLUDED.blob_value, updated_at = EXCLUDED.updated_at").
				PlaceholderFormat(r.placeholder).
				ToSql()
			if err != nil {
				return errors.Wrap(err, "failed to build blob upsert query")
			}

			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return errors.Wrapf(err, "failed to upsert blob %q", key)
			}
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := squirrel.
		Delete(blobTable).
		Where(squirrel.Eq{"blob_key": keys}).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build blob delete query")
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "failed to delete blobs")
	}
	return nil
}
