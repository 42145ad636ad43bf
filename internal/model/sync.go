package model

import "time"

type SyncPhase string

const (
	SyncFetching    SyncPhase = "FETCHING"
	SyncParsing     SyncPhase = "PARSING"
	SyncReconciling SyncPhase = "RECONCILING"
	SyncDone        SyncPhase = "DONE"
	SyncFailed      SyncPhase = "FAILED"
)

// SyncRun is the persisted outcome of one master sync invocation.
type SyncRun struct {
	ID              string    `db:"id"`
	StartedAt       time.Time `db:"started_at"`
	FinishedAt      time.Time `db:"finished_at"`
	OK              bool      `db:"ok"`
	Phase           SyncPhase `db:"phase"` // DONE or FAILED
	Message         string    `db:"message"`
	Inserted        int       `db:"inserted"`
	Updated         int       `db:"updated"`
	Unchanged       int       `db:"unchanged"`
	Skipped         int       `db:"skipped"`
	DetectedColumns string    `db:"detected_columns"`
}
