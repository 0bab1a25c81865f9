package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"bagStore/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type dialect struct {
	driver    string
	valueType string
	numbered  bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect   = dialect{driver: "sqlite3", valueType: "BLOB"}
	postgresDialect = dialect{driver: "postgres", valueType: "BYTEA", numbered: true}
)

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore is a KVStore on a single kv_entries table. The same code serves
// the on-disk SQLite backend and the shared Postgres backend.
type SQLStore struct {
	db *sql.DB
	d  dialect
	// now is overridable by tests
	now func() time.Time
}

// NewSqliteStore opens (and creates) a SQLite database file.
func NewSqliteStore(dbPath string) (*SQLStore, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDialect.driver, dbPath)
	if err != nil {
		return nil, err
	}
	// one writer avoids "database is locked" under concurrent handlers
	db.SetMaxOpenConns(1)
	return newSQLStore(db, sqliteDialect)
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, err
	}
	return newSQLStore(db, postgresDialect)
}

func newSQLStore(conn *sql.DB, d dialect) (*SQLStore, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	err := conn.Ping()
	if err != nil {
		conn.Close()
		return nil, err
	}
	s := &SQLStore{db: conn, d: d, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value ` + s.d.valueType + ` NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0
		)`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	row := s.db.QueryRowContext(ctx, s.d.rebind("SELECT value, expires_at FROM kv_entries WHERE key = ?"), key)
	err := row.Scan(&value, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		log.Printf("SQLStore.Get: %v", err)
		return nil, false, models.ErrServerError
	}
	if expiresAt > 0 && s.now().UnixMilli() >= expiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	query := s.d.rebind(`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`)
	_, err := s.db.ExecContext(ctx, query, key, value, expiresAt)
	if err != nil {
		log.Printf("SQLStore.Set: %v", err)
		return models.ErrServerError
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		_, err := s.db.ExecContext(ctx, s.d.rebind("DELETE FROM kv_entries WHERE key = ?"), k)
		if err != nil {
			log.Printf("SQLStore.Delete: %v", err)
			return models.ErrServerError
		}
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := s.d.rebind(`SELECT key FROM kv_entries
		WHERE substr(key, 1, ?) = ? AND (expires_at = 0 OR expires_at > ?) ORDER BY key`)
	rows, err := s.db.QueryContext(ctx, query, utf8.RuneCountInString(prefix), prefix, s.now().UnixMilli())
	if err != nil {
		log.Printf("SQLStore.Keys[1]: %v", err)
		return nil, models.ErrServerError
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			log.Printf("SQLStore.Keys[2]: %v", err)
			return nil, models.ErrServerError
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.d.rebind("DELETE FROM kv_entries WHERE substr(key, 1, ?) = ?"),
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		log.Printf("SQLStore.DeletePrefix: %v", err)
		return 0, models.ErrServerError
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
