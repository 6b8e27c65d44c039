// Package archive persists chat entities and archived messages in SQLite.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"parrotbot/internal/domain"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("archive: not found")

// SQLiteStore stores entities and messages using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// UpsertEntity inserts or refreshes a user or group. An existing user's
// tracking flag is never overwritten.
func (s *SQLiteStore) UpsertEntity(ctx context.Context, e domain.Entity) error {
	now := time.Now()
	switch v := e.(type) {
	case domain.User:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO entities (id, is_group, username, first_name, last_name, title, is_tracked, created_at, updated_at)
			 VALUES (?, 0, ?, ?, ?, NULL, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				is_group   = 0,
				username   = excluded.username,
				first_name = excluded.first_name,
				last_name  = excluded.last_name,
				title      = NULL,
				is_tracked = COALESCE(entities.is_tracked, excluded.is_tracked),
				updated_at = excluded.updated_at`,
			v.ID, nullString(v.Username), nullString(v.FirstName), nullString(v.LastName), v.Tracked, now, now,
		)
		return err
	case domain.Group:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO entities (id, is_group, username, first_name, last_name, title, is_tracked, created_at, updated_at)
			 VALUES (?, 1, NULL, NULL, NULL, ?, NULL, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				is_group   = 1,
				username   = NULL,
				first_name = NULL,
				last_name  = NULL,
				title      = excluded.title,
				is_tracked = NULL,
				updated_at = excluded.updated_at`,
			v.ID, nullString(v.Title), now, now,
		)
		return err
	default:
		return fmt.Errorf("unsupported entity type %T", e)
	}
}

const entityColumns = `id, is_group, username, first_name, last_name, title, is_tracked`

// GetEntity returns the entity with the given id, or nil if none exists.
func (s *SQLiteStore) GetEntity(ctx context.Context, id int64) (domain.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// FindUserByUsername looks a user up by username, case-insensitively.
// Telegram and Discord accounts can share a username, so a user with
// messages in chatID wins over the most recently seen one. It returns nil if
// no user matches.
func (s *SQLiteStore) FindUserByUsername(ctx context.Context, username string, chatID int64) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities
		 WHERE is_group = 0 AND username = ? COLLATE NOCASE
		 ORDER BY EXISTS (SELECT 1 FROM messages m WHERE m.sender_id = entities.id AND m.chat_id = ?) DESC,
		          updated_at DESC, id
		 LIMIT 1`, username, chatID)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := e.(domain.User)
	return &u, nil
}

// ListEntities returns all known entities, users first.
func (s *SQLiteStore) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities ORDER BY is_group, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// IsTracked reports whether the user's messages should be archived.
func (s *SQLiteStore) IsTracked(ctx context.Context, userID int64) (bool, error) {
	var tracked sql.NullBool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_tracked FROM entities WHERE id = ? AND is_group = 0`, userID,
	).Scan(&tracked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return false, err
	}
	return tracked.Bool, nil
}

// SetTracking updates a user's tracking flag.
func (s *SQLiteStore) SetTracking(ctx context.Context, userID int64, tracked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET is_tracked = ?, updated_at = ? WHERE id = ? AND is_group = 0`,
		tracked, time.Now(), userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// AddMessage archives a message. A redelivered message (same chat and source
// message id) is ignored and reported with id 0.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg domain.ArchivedMessage) (int64, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (sender_id, chat_id, text, sent_at, source_message_id)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.SenderID, msg.ChatID, msg.Text, msg.SentAt, msg.SourceMessageID,
	)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// MessageTexts returns the texts a user sent in a chat, oldest first.
// limit <= 0 returns the whole history; otherwise the most recent limit texts.
func (s *SQLiteStore) MessageTexts(ctx context.Context, senderID, chatID int64, limit int) ([]string, error) {
	query := `SELECT text FROM messages WHERE sender_id = ? AND chat_id = ? ORDER BY id ASC`
	args := []any{senderID, chatID}
	if limit > 0 {
		query = `SELECT text FROM (
			SELECT id, text FROM messages WHERE sender_id = ? AND chat_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// GetMessages returns archived messages of a user in a chat, oldest first.
func (s *SQLiteStore) GetMessages(ctx context.Context, senderID, chatID int64) ([]domain.ArchivedMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, chat_id, text, sent_at, source_message_id
		 FROM messages WHERE sender_id = ? AND chat_id = ? ORDER BY id ASC`, senderID, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ArchivedMessage
	for rows.Next() {
		var m domain.ArchivedMessage
		var sentAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ChatID, &m.Text, &sentAt, &m.SourceMessageID); err != nil {
			return nil, err
		}
		m.SentAt = sentAt.Time
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteMessagesFrom removes every message sent by the user in any chat and
// returns how many were deleted.
func (s *SQLiteStore) DeleteMessagesFrom(ctx context.Context, senderID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE sender_id = ?`, senderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ChatStats returns per-user archived message counts in a chat, largest first.
func (s *SQLiteStore) ChatStats(ctx context.Context, chatID int64) ([]domain.SenderStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.is_group, e.username, e.first_name, e.last_name, e.title, e.is_tracked, COUNT(m.id)
		 FROM messages m JOIN entities e ON e.id = m.sender_id
		 WHERE m.chat_id = ? AND e.is_group = 0
		 GROUP BY e.id
		 ORDER BY COUNT(m.id) DESC, e.id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.SenderStats
	for rows.Next() {
		var r entityRow
		var count int
		if err := rows.Scan(&r.id, &r.isGroup, &r.username, &r.firstName, &r.lastName, &r.title, &r.tracked, &count); err != nil {
			return nil, err
		}
		stats = append(stats, domain.SenderStats{User: r.user(), Messages: count})
	}
	return stats, rows.Err()
}

// Summary counts what the archive holds.
type Summary struct {
	SchemaVersion int
	Users         int
	Groups        int
	Messages      int
}

// Summarize returns the schema version and entity and message totals.
func (s *SQLiteStore) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	version, err := GetSchemaVersion(ctx, s.db)
	if err != nil {
		return sum, fmt.Errorf("schema version: %w", err)
	}
	sum.SchemaVersion = version
	err = s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM entities WHERE is_group = 0),
			(SELECT COUNT(*) FROM entities WHERE is_group = 1),
			(SELECT COUNT(*) FROM messages)`,
	).Scan(&sum.Users, &sum.Groups, &sum.Messages)
	return sum, err
}

// Snapshot writes a consistent copy of the database to path, which must not
// exist yet. The copy has no WAL of its own.
func (s *SQLiteStore) Snapshot(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("snapshot to %s: %w", path, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type entityRow struct {
	id                            int64
	isGroup                       bool
	username, firstName, lastName sql.NullString
	title                         sql.NullString
	tracked                       sql.NullBool
}

func (r entityRow) user() domain.User {
	return domain.User{
		ID:        r.id,
		Username:  r.username.String,
		FirstName: r.firstName.String,
		LastName:  r.lastName.String,
		Tracked:   r.tracked.Bool,
	}
}

func scanEntity(row rowScanner) (domain.Entity, error) {
	var r entityRow
	if err := row.Scan(&r.id, &r.isGroup, &r.username, &r.firstName, &r.lastName, &r.title, &r.tracked); err != nil {
		return nil, err
	}
	if r.isGroup {
		return domain.Group{ID: r.id, Title: r.title.String}, nil
	}
	return r.user(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
