// Package docsync keeps the document store converging with the relational
// store: an outbound dispatcher pushes mapped documents after relational
// commits, and an inbound reconciler imports documents the mobile client
// wrote directly. There is no cross-store transaction; convergence is
// eventual and best-effort outbound.
package docsync

import (
	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docstore"
)

type Entity string

const (
	EntityReport  Entity = "report"
	EntityUser    Entity = "user"
	EntityCompany Entity = "company"
	EntityAttempt Entity = "attempt"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event describes a committed relational mutation. Events must only be
// dispatched after the originating transaction commits; the dispatcher
// re-reads current state, so publishing pre-commit could leak rolled-back
// data.
type Event struct {
	Entity Entity
	Action Action

	// ID is the relational id of the subject (uuid, or decimal for
	// companies). Unused for EntityAttempt.
	ID string

	// Doc carries the pre-mapped document for append-only entities
	// (login attempts), which have no relational state worth re-reading.
	Doc docstore.Document
}

// ReportEvent builds an event for a report mutation.
func ReportEvent(action Action, id uuid.UUID) Event {
	return Event{Entity: EntityReport, Action: action, ID: id.String()}
}

// UserEvent builds an event for a user mutation.
func UserEvent(action Action, id uuid.UUID) Event {
	return Event{Entity: EntityUser, Action: action, ID: id.String()}
}

// AttemptEvent builds an append event for a login attempt document.
func AttemptEvent(doc docstore.Document) Event {
	return Event{Entity: EntityAttempt, Action: ActionCreated, Doc: doc}
}
