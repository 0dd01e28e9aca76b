package version

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Attribute kinds tracked by the store. A (kind, subject) pair owns one
// independent open-row history.
const (
	KindReportStatus   = "report_status"
	KindReportDetail   = "report_detail"
	KindUserProfile    = "user_profile"
	KindUserRole       = "user_role"
	KindUserState      = "user_state"
	KindUserCredential = "user_credential"
)

var (
	// ErrConsistency means the at-most-one-open-row invariant is violated
	// for a subject. It indicates data corruption and must never be
	// swallowed.
	ErrConsistency = errors.New("version store consistency violation")

	// ErrNoOpenVersion is returned by Close when the subject has no open
	// row to close.
	ErrNoOpenVersion = errors.New("no open version")
)

// Row is one attribute version. ValidTo is nil for the current version.
type Row struct {
	SubjectID uuid.UUID
	Kind      string
	Payload   map[string]any
	ValidFrom time.Time
	ValidTo   *time.Time
}

// Store keeps append-only attribute histories with an open-row invariant:
// per (kind, subject) at most one row has no end time.
type Store interface {
	// Open inserts a new open row. It does not touch any existing open
	// row; callers that may already have one should use Supersede.
	Open(ctx context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error

	// Close ends the current open row at the given instant. Returns
	// ErrNoOpenVersion when there is none and ErrConsistency when more
	// than one open row exists.
	Close(ctx context.Context, kind string, subject uuid.UUID, at time.Time) error

	// Current returns the open row, or nil when the subject currently has
	// no value for this attribute (a valid state). ErrConsistency when
	// more than one open row exists.
	Current(ctx context.Context, kind string, subject uuid.UUID) (*Row, error)

	// Supersede closes the open row and opens a new one as a single
	// atomic unit. A subject with no open row gets its first version
	// opened instead. Two concurrent calls for the same subject must not
	// leave two open rows.
	Supersede(ctx context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error

	// History returns all rows for the subject ordered oldest first.
	History(ctx context.Context, kind string, subject uuid.UUID) ([]Row, error)
}
