package remotesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stepgate/stepgate/pkg/api"
)

// SQLiteRecordStore is a RecordStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the driver.
type SQLiteRecordStore struct {
	db *sql.DB
}

// Ensure SQLiteRecordStore implements api.RecordStore.
var _ api.RecordStore = (*SQLiteRecordStore)(nil)

// NewSQLiteRecordStore initializes the required schema in the given
// database and returns a new SQLiteRecordStore.
func NewSQLiteRecordStore(db *sql.DB) (*SQLiteRecordStore, error) {
	s := &SQLiteRecordStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRecordStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS remote_records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			snapshot BLOB NOT NULL,
			total_minor INTEGER NOT NULL,
			currency TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteRecordStore) Upsert(ctx context.Context, snap api.Snapshot) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM remote_records WHERE session_id = ?`, snap.SessionID)

	var id string
	switch err := row.Scan(&id); {
	case err == nil:
		_, err := s.db.ExecContext(ctx, `
			UPDATE remote_records
			SET snapshot = ?, total_minor = ?, currency = ?, updated_at = ?
			WHERE id = ?`,
			payload, snap.TotalMinor, snap.Currency, now, id,
		)
		if err != nil {
			return "", err
		}
		return id, nil

	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO remote_records (id, session_id, snapshot, total_minor, currency, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, snap.SessionID, payload, snap.TotalMinor, snap.Currency, now, now,
		)
		if err != nil {
			return "", err
		}
		return id, nil

	default:
		return "", err
	}
}

func (s *SQLiteRecordStore) Get(ctx context.Context, sessionID string) (*api.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, snapshot, created_at, updated_at
		FROM remote_records
		WHERE session_id = ?`,
		sessionID,
	)

	var rec api.Record
	var payload []byte
	if err := row.Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrRecordNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(payload, &rec.Snapshot); err != nil {
		return nil, err
	}
	return &rec, nil
}
