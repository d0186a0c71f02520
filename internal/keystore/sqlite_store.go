package keystore

import (
	"database/sql"
	"errors"

	"github.com/stepgate/stepgate/pkg/api"
)

// SQLiteStore is a KeyStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB

	*notifier
}

// Ensure SQLiteStore implements api.KeyStore.
var _ api.KeyStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, notifier: newNotifier()}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS wizard_kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Read(key string) ([]byte, error) {
	row := s.db.QueryRow(`SELECT value FROM wizard_kv WHERE key = ?`, key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *SQLiteStore) Write(key string, value []byte) *api.Failure {
	_, err := s.db.Exec(`
		INSERT INTO wizard_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		f := api.Failure{Key: key, Kind: api.FailureWriteError, Err: err}
		s.notify(f)
		return &f
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) {
	// Best effort: a failed delete is reported like a failed write.
	if _, err := s.db.Exec(`DELETE FROM wizard_kv WHERE key = ?`, key); err != nil {
		s.notify(api.Failure{Key: key, Kind: api.FailureWriteError, Err: err})
	}
}

func (s *SQLiteStore) Subscribe(fn func(api.Failure)) func() {
	return s.subscribe(fn)
}
