package store

import "database/sql"

// Store holds all sub-stores used by the application.
type Store struct {
	DB           *sql.DB
	Jobs         JobStore
	Pipelines    PipelineStore
	Applications ApplicationStore
}

// New creates a Store with all sub-stores initialized.
func New(db *sql.DB) *Store {
	return &Store{
		DB:           db,
		Jobs:         NewSQLiteJobStore(db),
		Pipelines:    NewSQLitePipelineStore(db),
		Applications: NewSQLiteApplicationStore(db),
	}
}
