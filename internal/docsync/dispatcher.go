package docsync

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docstore"
)

// Dispatcher pushes mapped documents to the document store on a worker
// goroutine, decoupled from the request that caused the mutation. The
// relational write is already durable when an event arrives, so a failed
// push only delays convergence: it is logged and reported, never retried
// here and never propagated to the caller.
type Dispatcher struct {
	source DocumentSource
	store  docstore.Store

	events chan Event
	quit   chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(source DocumentSource, store docstore.Store, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		source: source,
		store:  store,
		events: make(chan Event, queueSize),
		quit:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains already-queued events, then stops the worker.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.wg.Wait()
}

// Dispatch enqueues an event without blocking the caller. A full queue
// drops the event with a log line.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.events <- ev:
	default:
		slog.Warn("sync queue full, event dropped",
			"entity", ev.Entity, "action", ev.Action, "id", ev.ID)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.events:
			d.process(ev)
		case <-d.quit:
			for {
				select {
				case ev := <-d.events:
					d.process(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) process(ev Event) {
	if err := d.handle(context.Background(), ev); err != nil {
		slog.Error("document sync failed",
			"entity", ev.Entity, "action", ev.Action, "id", ev.ID, "error", err.Error())
		sentry.CaptureException(err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) error {
	if ev.Entity == EntityAttempt {
		_, err := d.store.Add(ctx, docstore.CollectionAttempts, ev.Doc)
		return err
	}

	collection := collectionFor(ev.Entity)

	if ev.Action == ActionDeleted {
		return d.store.Delete(ctx, collection, ev.ID)
	}

	doc, err := d.project(ctx, ev)
	if err != nil {
		return err
	}
	return d.store.Set(ctx, collection, ev.ID, doc)
}

func (d *Dispatcher) project(ctx context.Context, ev Event) (docstore.Document, error) {
	switch ev.Entity {
	case EntityCompany:
		id, err := strconv.ParseInt(ev.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		return d.source.CompanyDocument(ctx, id)
	case EntityUser:
		id, err := uuid.Parse(ev.ID)
		if err != nil {
			return nil, err
		}
		return d.source.UserDocument(ctx, id)
	default:
		id, err := uuid.Parse(ev.ID)
		if err != nil {
			return nil, err
		}
		return d.source.ReportDocument(ctx, id)
	}
}

func collectionFor(entity Entity) string {
	switch entity {
	case EntityUser:
		return docstore.CollectionUsers
	case EntityCompany:
		return docstore.CollectionCompanies
	default:
		return docstore.CollectionReports
	}
}
