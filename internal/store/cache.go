package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/chro-finder/internal/model"
)

// Cache holds successful raw source answers in sqlite with a TTL, so a
// company re-queried inside the window reuses the prior answer instead of
// re-driving an expensive external session.
type Cache struct {
	db *sql.DB
}

// NewCache opens (creating if needed) the sqlite cache at path.
func NewCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS answer_cache (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	source     TEXT NOT NULL,
	raw_text   TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answer_cache_key ON answer_cache(company, source, expires_at);
`

func (c *Cache) migrate() error {
	_, err := c.db.Exec(cacheMigration)
	return eris.Wrap(err, "cache: migrate")
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the newest unexpired cached answer for (company, source).
func (c *Cache) Get(ctx context.Context, company string, source model.SourceID) (string, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT raw_text FROM answer_cache
		 WHERE company = ? AND source = ? AND expires_at > datetime('now')
		 ORDER BY fetched_at DESC LIMIT 1`,
		company, string(source),
	)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "cache: get")
	}
	return raw, true, nil
}

// Put stores a successful raw answer with the given TTL.
func (c *Cache) Put(ctx context.Context, company string, source model.SourceID, rawText string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO answer_cache (id, company, source, raw_text, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), company, string(source), rawText, now, now.Add(ttl),
	)
	return eris.Wrap(err, "cache: put")
}

// DeleteExpired removes expired cache rows and reports how many were purged.
func (c *Cache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM answer_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}
