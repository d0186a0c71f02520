package stepgate

import (
	"database/sql"

	"github.com/stepgate/stepgate/internal/keystore"
	"github.com/stepgate/stepgate/internal/remotesync"
)

// SQLiteBundle wires together a Wizard, a draft key store and a remote-record
// store sharing the same SQLite database. Drafts survive process restarts and
// the remote record lives next to them.
type SQLiteBundle struct {
	Wizard  Wizard
	Store   KeyStore
	Records RecordStore
}

// NewSQLiteBundle constructs a durable Wizard whose draft state and remote
// records are persisted in the provided *sql.DB. The Store and Records fields
// of opts are overwritten.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:intake.db?_journal=WAL")
//	bundle, err := stepgate.NewSQLiteBundle(db, stepgate.Options{Catalog: cat})
//	// drive the flow via bundle.Wizard
func NewSQLiteBundle(db *sql.DB, opts Options) (*SQLiteBundle, error) {
	store, err := keystore.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}

	records, err := remotesync.NewSQLiteRecordStore(db)
	if err != nil {
		return nil, err
	}

	opts.Store = store
	opts.Records = records
	w, err := NewWizard(opts)
	if err != nil {
		return nil, err
	}

	return &SQLiteBundle{
		Wizard:  w,
		Store:   store,
		Records: records,
	}, nil
}
