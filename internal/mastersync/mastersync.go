// Package mastersync reconciles the product master and opening stock with
// an external spreadsheet.
package mastersync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/ronary-inventory-service/internal/mastersync/parser"
	"github.com/fekuna/ronary-inventory-service/internal/model"
)

// QuantityPolicy decides who owns stock quantities once a SKU exists.
type QuantityPolicy string

const (
	// PolicySeed applies sheet quantities only when a product is created.
	PolicySeed QuantityPolicy = "seed"
	// PolicySheet overwrites differing quantities at the sync location.
	PolicySheet QuantityPolicy = "sheet"
)

func ParsePolicy(s string) (QuantityPolicy, error) {
	switch p := QuantityPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicySeed:
		return PolicySeed, nil
	case PolicySheet:
		return PolicySheet, nil
	default:
		return "", fmt.Errorf("unknown quantity policy %q", s)
	}
}

type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

// Status describes one sync run. Failures are reported here rather than as
// errors.
type Status struct {
	RunID           string
	OK              bool
	Phase           model.SyncPhase
	FailedPhase     model.SyncPhase
	Message         string
	Inserted        int
	Updated         int
	Unchanged       int
	Skipped         int
	RowErrors       []string
	DetectedColumns []string
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (s *Status) Run() *model.SyncRun {
	return &model.SyncRun{
		ID:              s.RunID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		OK:              s.OK,
		Phase:           s.Phase,
		Message:         s.Message,
		Inserted:        s.Inserted,
		Updated:         s.Updated,
		Unchanged:       s.Unchanged,
		Skipped:         s.Skipped,
		DetectedColumns: strings.Join(s.DetectedColumns, ","),
	}
}

// StatusFromRun rebuilds a status from its persisted row. Row errors are not
// persisted.
func StatusFromRun(r *model.SyncRun) *Status {
	s := &Status{
		RunID:      r.ID,
		OK:         r.OK,
		Phase:      r.Phase,
		Message:    r.Message,
		Inserted:   r.Inserted,
		Updated:    r.Updated,
		Unchanged:  r.Unchanged,
		Skipped:    r.Skipped,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.DetectedColumns != "" {
		s.DetectedColumns = strings.Split(r.DetectedColumns, ",")
	}
	return s
}

type Repository interface {
	// ReconcileRow applies one sheet row in its own transaction.
	ReconcileRow(ctx context.Context, row *parser.SheetRow, policy QuantityPolicy, location string, now time.Time) (Outcome, error)
	SaveRun(ctx context.Context, run *model.SyncRun) error
	LastRun(ctx context.Context) (*model.SyncRun, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type UseCase interface {
	Sync(ctx context.Context) *Status
	LastStatus(ctx context.Context) (*Status, error)
}
