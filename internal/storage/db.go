package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Session keys understood by the CLI and the listener.
const (
	SessionToken  = "token"
	SessionUserID = "userId"
	SessionRole   = "role"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS seen_keys (
  key TEXT PRIMARY KEY,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS session (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// MarkSeen records every key in one transaction, so opening the
// notification panel is an all-or-nothing write. Keys already recorded are
// left untouched; the set is append-only.
func (d *DB) MarkSeen(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO seen_keys (key) VALUES (?) ON CONFLICT(key) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.Exec(key); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) Seen(key string) (bool, error) {
	var found string
	err := d.conn.QueryRow(`SELECT key FROM seen_keys WHERE key = ?`, key).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) SeenSet() (map[string]struct{}, error) {
	rows, err := d.conn.Query(`SELECT key FROM seen_keys`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out[key] = struct{}{}
	}
	return out, rows.Err()
}

// ClearSeen wipes the seen set; only logout/clear-tracking calls this.
func (d *DB) ClearSeen() error {
	_, err := d.conn.Exec(`DELETE FROM seen_keys`)
	return err
}

func (d *DB) SetSession(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO session (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetSession(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) DeleteSession(key string) error {
	_, err := d.conn.Exec(`DELETE FROM session WHERE key = ?`, key)
	return err
}

// Token satisfies api.CredentialStore.
func (d *DB) Token() (string, error) {
	value, err := d.GetSession(SessionToken)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}
