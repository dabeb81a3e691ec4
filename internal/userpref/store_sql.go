package userpref

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dialect selects placeholder and upsert syntax for SQLStore.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// SQLStore persists preferences in a user_prefs table; servers are a JSON array.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the table if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	serversType := "JSONB"
	if s.dialect == DialectSQLite {
		serversType = "TEXT"
	}
	query := `
		CREATE TABLE IF NOT EXISTS user_prefs (
			user_id       TEXT PRIMARY KEY,
			servers       ` + serversType + ` NOT NULL,
			active_server TEXT NOT NULL,
			room_forward  BOOLEAN NOT NULL,
			updated_at    BIGINT NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create user_prefs: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, userID string) (Preference, bool, error) {
	query := s.rebind(`
		SELECT servers, active_server, room_forward
		FROM user_prefs
		WHERE user_id = ?`)

	var (
		serversJSON []byte
		p           = Preference{UserID: userID}
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&serversJSON, &p.ActiveServer, &p.RoomForward)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, fmt.Errorf("select user_prefs: %w", err)
	}
	if err := json.Unmarshal(serversJSON, &p.Servers); err != nil {
		return Preference{}, false, fmt.Errorf("unmarshal servers: %w", err)
	}
	return p, true, nil
}

// Modify runs inside one transaction. The seed row is inserted first (a no-op when the user
// exists); postgres then locks the row with FOR UPDATE, sqlite already holds the write lock
// from the insert, so concurrent writers of the same user queue behind each other.
func (s *SQLStore) Modify(ctx context.Context, userID string, seed Preference, fn func(*Preference)) (Preference, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Preference{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seed = seed.clone()
	seed.UserID = userID
	seedServers, err := json.Marshal(seed.Servers)
	if err != nil {
		return Preference{}, false, fmt.Errorf("marshal servers: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.jsonb(s.rebind(`
		INSERT INTO user_prefs (user_id, servers, active_server, room_forward, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`), 2),
		userID, string(seedServers), seed.ActiveServer, seed.RoomForward, time.Now().UnixMilli())
	if err != nil {
		return Preference{}, false, fmt.Errorf("seed user_prefs: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return Preference{}, false, fmt.Errorf("seed user_prefs: %w", err)
	}

	query := `
		SELECT servers, active_server, room_forward
		FROM user_prefs
		WHERE user_id = ?`
	if s.dialect == DialectPostgres {
		query += " FOR UPDATE"
	}
	var (
		serversJSON []byte
		p           = Preference{UserID: userID}
	)
	if err := tx.QueryRowContext(ctx, s.rebind(query), userID).Scan(&serversJSON, &p.ActiveServer, &p.RoomForward); err != nil {
		return Preference{}, false, fmt.Errorf("select user_prefs: %w", err)
	}
	if err := json.Unmarshal(serversJSON, &p.Servers); err != nil {
		return Preference{}, false, fmt.Errorf("unmarshal servers: %w", err)
	}

	if fn != nil {
		fn(&p)
		servers, err := json.Marshal(p.Servers)
		if err != nil {
			return Preference{}, false, fmt.Errorf("marshal servers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.jsonb(s.rebind(`
			UPDATE user_prefs
			SET servers = ?, active_server = ?, room_forward = ?, updated_at = ?
			WHERE user_id = ?`), 1),
			string(servers), p.ActiveServer, p.RoomForward, time.Now().UnixMilli(), userID); err != nil {
			return Preference{}, false, fmt.Errorf("update user_prefs: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Preference{}, false, fmt.Errorf("commit: %w", err)
	}
	return p, inserted == 1, nil
}

// jsonb casts placeholder $n to jsonb for postgres.
func (s *SQLStore) jsonb(query string, n int) string {
	if s.dialect != DialectPostgres {
		return query
	}
	ph := fmt.Sprintf("$%d", n)
	return strings.Replace(query, ph, ph+"::jsonb", 1)
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
