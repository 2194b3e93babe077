package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"personachat/internal/domain"
)

// selectedKey is the registry metadata key remembering the last-selected
// conversation.
const selectedKey = "selected_conversation"

// SQLiteStore implements domain.ConversationStore and domain.CredentialStore
// over one local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			persona    TEXT NOT NULL,
			provider   TEXT NOT NULL,
			model      TEXT NOT NULL,
			messages   TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS credentials (
			provider TEXT PRIMARY KEY,
			api_key  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS registry (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- domain.ConversationStore ---

// Save implements domain.ConversationStore.
func (s *SQLiteStore) Save(rec domain.ConversationRecord) error {
	msgJSON, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO conversations (id, persona, provider, model, messages, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		rec.ID.String(), rec.ID.Persona, string(rec.ID.Provider), rec.ID.Model,
		string(msgJSON), rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Load implements domain.ConversationStore. Unparseable persisted state is
// reported as ErrStorageCorrupt so callers can treat it as absent.
func (s *SQLiteStore) Load(id domain.ConversationID) (*domain.ConversationRecord, error) {
	row := s.db.QueryRow(
		"SELECT messages, updated_at FROM conversations WHERE id = ?", id.String(),
	)
	var msgStr, updatedStr string
	if err := row.Scan(&msgStr, &updatedStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewDomainError("SQLiteStore.Load", domain.ErrNotFound, id.String())
		}
		return nil, err
	}

	rec := &domain.ConversationRecord{ID: id}
	if err := json.Unmarshal([]byte(msgStr), &rec.Messages); err != nil {
		s.logger.Warn("corrupt conversation record",
			"conversation", id.String(),
			"error", err,
		)
		return nil, domain.NewDomainError("SQLiteStore.Load", domain.ErrStorageCorrupt, id.String())
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return rec, nil
}

// Delete implements domain.ConversationStore. Deleting a missing record is
// not an error.
func (s *SQLiteStore) Delete(id domain.ConversationID) error {
	_, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id.String())
	return err
}

// List implements domain.ConversationStore. Individually corrupt records are
// skipped and logged, not fatal: one bad conversation must not prevent the
// rest from restoring.
func (s *SQLiteStore) List() ([]domain.ConversationRecord, error) {
	rows, err := s.db.Query(
		"SELECT id, messages, updated_at FROM conversations ORDER BY updated_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ConversationRecord
	for rows.Next() {
		var idStr, msgStr, updatedStr string
		if err := rows.Scan(&idStr, &msgStr, &updatedStr); err != nil {
			return nil, err
		}

		id, err := domain.ParseConversationID(idStr)
		if err != nil {
			s.logger.Warn("skipping conversation with malformed id", "id", idStr)
			continue
		}

		rec := domain.ConversationRecord{ID: id}
		if err := json.Unmarshal([]byte(msgStr), &rec.Messages); err != nil {
			s.logger.Warn("skipping corrupt conversation record",
				"conversation", idStr,
				"error", err,
			)
			continue
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetSelected implements domain.ConversationStore.
func (s *SQLiteStore) SetSelected(id string) error {
	_, err := s.db.Exec(`
		INSERT INTO registry (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		selectedKey, id,
	)
	return err
}

// Selected implements domain.ConversationStore.
func (s *SQLiteStore) Selected() (string, error) {
	row := s.db.QueryRow("SELECT value FROM registry WHERE key = ?", selectedKey)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// --- domain.CredentialStore ---

// Get implements domain.CredentialStore.
func (s *SQLiteStore) Get(provider domain.ProviderType) (string, error) {
	row := s.db.QueryRow("SELECT api_key FROM credentials WHERE provider = ?", string(provider))
	var key string
	if err := row.Scan(&key); err != nil {
		if err == sql.ErrNoRows {
			return "", domain.NewDomainError("SQLiteStore.Get", domain.ErrCredentialMissing, string(provider))
		}
		return "", err
	}
	return key, nil
}

// Set implements domain.CredentialStore.
func (s *SQLiteStore) Set(provider domain.ProviderType, key string) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials (provider, api_key) VALUES (?, ?)
		ON CONFLICT(provider) DO UPDATE SET api_key = excluded.api_key`,
		string(provider), key,
	)
	return err
}

// Remove implements domain.CredentialStore.
func (s *SQLiteStore) Remove(provider domain.ProviderType) error {
	_, err := s.db.Exec("DELETE FROM credentials WHERE provider = ?", string(provider))
	return err
}

// Has implements domain.CredentialStore.
func (s *SQLiteStore) Has(provider domain.ProviderType) bool {
	key, err := s.Get(provider)
	return err == nil && key != ""
}
