// Package store persists finished translations in Postgres so a repeated
// image skips the OCR and model calls entirely.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"lens-bot/internal/pipeline"
)

var ErrNotFound = sql.ErrNoRows

// Open dials Postgres and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// TranslationRepo caches completed translations keyed by image hash, target
// language, backend and model. It satisfies the pipeline cache contract.
type TranslationRepo struct {
	DB  *sql.DB
	TTL time.Duration // entries older than this count as misses; 0 disables aging
}

func NewTranslationRepo(db *sql.DB, ttl time.Duration) *TranslationRepo {
	return &TranslationRepo{DB: db, TTL: ttl}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (r *TranslationRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists translations (
  id bigserial primary key,
  created_at timestamptz not null default now(),
  image_hash text not null,
  target_lang text not null,
  backend text not null,
  model text not null,
  source_lang text not null default '',
  translated_text text not null,
  unique (image_hash, target_lang, backend, model)
)`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

// Find returns the cached translation for the key, or ok=false when there
// is none fresh enough.
func (r *TranslationRepo) Find(ctx context.Context, key pipeline.CacheKey) (string, bool, error) {
	const q = `
select created_at, translated_text
from translations
where image_hash = $1 and target_lang = $2 and backend = $3 and model = $4
order by created_at desc
limit 1`
	var (
		ts   time.Time
		text string
	)
	err := r.DB.QueryRowContext(ctx, q, key.ImageHash, key.TargetLang, key.Backend, key.Model).Scan(&ts, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if r.TTL > 0 && time.Since(ts) > r.TTL {
		return "", false, nil
	}
	return text, true, nil
}

// Save upserts the translation for the key; a repeat of the same image
// refreshes the row instead of duplicating it.
func (r *TranslationRepo) Save(ctx context.Context, key pipeline.CacheKey, sourceLang, text string) error {
	const q = `
insert into translations (image_hash, target_lang, backend, model, source_lang, translated_text)
values ($1,$2,$3,$4,$5,$6)
on conflict (image_hash, target_lang, backend, model) do update
set created_at = now(),
    source_lang = excluded.source_lang,
    translated_text = excluded.translated_text`
	_, err := r.DB.ExecContext(ctx, q,
		key.ImageHash, key.TargetLang, key.Backend, key.Model, sourceLang, text)
	return err
}

// PurgeOlderThan deletes stale cache rows so the table stays small.
func (r *TranslationRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	const q = `delete from translations where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
