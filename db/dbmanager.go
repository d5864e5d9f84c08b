package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/zarkopopovski/v2v-chat/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a referenced session does not exist.
var ErrNotFound = errors.New("db: session not found")

const DefaultDatabaseURL = "sqlite:///./dev.db"

type DBManager struct {
	DB *sqlx.DB
}

// NewDBConnection opens the SQLite database behind databaseURL and brings
// the schema up to date.
func NewDBConnection(databaseURL string) (*DBManager, error) {
	path, err := sqlitePath(databaseURL)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create data dir: %w", err)
		}
	}

	dbx, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	if err := dbx.Ping(); err != nil {
		dbx.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	if err := migrateUp(dbx); err != nil {
		dbx.Close()
		return nil, err
	}

	return &DBManager{
		DB: dbx,
	}, nil
}

func migrateUp(dbx *sqlx.DB) error {
	driver, err := sqlite3.WithInstance(dbx.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("db: migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: migrate source: %w", err)
	}

	// m.Close is not called: it would close the shared pool.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("db: migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migrate up: %w", err)
	}
	return nil
}

// sqlitePath accepts SQLAlchemy-style URLs (sqlite:///relative.db,
// sqlite:////absolute.db) as well as plain file paths.
func sqlitePath(databaseURL string) (string, error) {
	u := strings.TrimSpace(databaseURL)
	if u == "" {
		u = DefaultDatabaseURL
	}

	switch {
	case strings.HasPrefix(u, "sqlite:///"):
		u = strings.TrimPrefix(u, "sqlite:///")
	case strings.HasPrefix(u, "sqlite3:///"):
		u = strings.TrimPrefix(u, "sqlite3:///")
	case strings.Contains(u, "://"):
		return "", fmt.Errorf("db: unsupported database url %q", databaseURL)
	}

	if u == "" {
		return "", fmt.Errorf("db: empty database path in %q", databaseURL)
	}
	return u, nil
}

func (dbManager *DBManager) Ping(ctx context.Context) error {
	return dbManager.DB.PingContext(ctx)
}

func (dbManager *DBManager) Close() error {
	return dbManager.DB.Close()
}

func (dbManager *DBManager) CreateSession(ctx context.Context) (models.ChatSession, error) {
	now := time.Now().UTC()

	res, err := dbManager.DB.ExecContext(ctx, "INSERT INTO chat_sessions(created_at) VALUES(?)", now)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("db: insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("db: session id: %w", err)
	}

	return models.ChatSession{ID: id, CreatedAt: now}, nil
}

func (dbManager *DBManager) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	queryStr := "SELECT id, created_at FROM chat_sessions ORDER BY created_at DESC, id DESC"

	chatSessions := make([]models.ChatSession, 0)

	if err := dbManager.DB.SelectContext(ctx, &chatSessions, queryStr); err != nil {
		return nil, fmt.Errorf("db: list sessions: %w", err)
	}
	return chatSessions, nil
}

func (dbManager *DBManager) SessionExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := dbManager.DB.GetContext(ctx, &n, "SELECT COUNT(1) FROM chat_sessions WHERE id=?", id)
	if err != nil {
		return false, fmt.Errorf("db: lookup session %d: %w", id, err)
	}
	return n > 0, nil
}

func (dbManager *DBManager) GetSession(ctx context.Context, id int64) (models.SessionWithMessages, error) {
	chatSession := models.ChatSession{}

	err := dbManager.DB.GetContext(ctx, &chatSession, "SELECT id, created_at FROM chat_sessions WHERE id=?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionWithMessages{}, ErrNotFound
	}
	if err != nil {
		return models.SessionWithMessages{}, fmt.Errorf("db: get session %d: %w", id, err)
	}

	queryStr := "SELECT id, session_id, role, content, created_at FROM chat_messages WHERE session_id=? ORDER BY created_at ASC, id ASC"

	sessionMessages := make([]models.SessionMessage, 0)

	if err := dbManager.DB.SelectContext(ctx, &sessionMessages, queryStr, id); err != nil {
		return models.SessionWithMessages{}, fmt.Errorf("db: list messages of session %d: %w", id, err)
	}

	return models.SessionWithMessages{
		ChatSession: chatSession,
		Messages:    sessionMessages,
	}, nil
}

// AppendMessages stores messages in order within a single transaction.
// Transactions begin IMMEDIATE (_txlock), so the existence check already
// holds the write lock.
func (dbManager *DBManager) AppendMessages(ctx context.Context, sessionID int64, messages []models.NewMessage) error {
	tx, err := dbManager.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(1) FROM chat_sessions WHERE id=?", sessionID); err != nil {
		return fmt.Errorf("db: lookup session %d: %w", sessionID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	queryStr := "INSERT INTO chat_messages(session_id, role, content, created_at) VALUES(?, ?, ?, ?)"

	now := time.Now().UTC()
	for _, message := range messages {
		if _, err := tx.ExecContext(ctx, queryStr, sessionID, message.Role, message.Content, now); err != nil {
			return fmt.Errorf("db: insert %s message: %w", message.Role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// DeleteSession removes the session and, through the foreign key cascade,
// its messages. Deleting a missing session is not an error.
func (dbManager *DBManager) DeleteSession(ctx context.Context, id int64) error {
	if _, err := dbManager.DB.ExecContext(ctx, "DELETE FROM chat_sessions WHERE id=?", id); err != nil {
		return fmt.Errorf("db: delete session %d: %w", id, err)
	}
	return nil
}
