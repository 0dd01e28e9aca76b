package docsync_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/docsync"
)

func TestDispatcher_PushesReportAndUserDocuments(t *testing.T) {
	source := newFakeSource()
	store := docstore.NewMemoryStore()

	reportID := uuid.New()
	userID := uuid.New()
	source.reportDocs[reportID] = docstore.Document{"statut": "NEW", "latitude": 48.85}
	source.userDocs[userID] = docstore.Document{"email": "a@b.c", "etat_compte": "ACTIVE"}

	d := docsync.NewDispatcher(source, store, 16)
	d.Start()
	d.Dispatch(docsync.ReportEvent(docsync.ActionCreated, reportID))
	d.Dispatch(docsync.UserEvent(docsync.ActionUpdated, userID))
	d.Stop()

	doc, err := store.Get(context.Background(), docstore.CollectionReports, reportID.String())
	require.NoError(t, err)
	assert.Equal(t, "NEW", doc["statut"])

	doc, err = store.Get(context.Background(), docstore.CollectionUsers, userID.String())
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", doc["etat_compte"])
}

func TestDispatcher_DeleteRemovesDocument(t *testing.T) {
	source := newFakeSource()
	store := docstore.NewMemoryStore()

	reportID := uuid.New()
	require.NoError(t, store.Set(context.Background(), docstore.CollectionReports, reportID.String(),
		docstore.Document{"statut": "NEW"}))

	d := docsync.NewDispatcher(source, store, 16)
	d.Start()
	d.Dispatch(docsync.ReportEvent(docsync.ActionDeleted, reportID))
	d.Stop()

	_, err := store.Get(context.Background(), docstore.CollectionReports, reportID.String())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDispatcher_AttemptAppendsPremappedDocument(t *testing.T) {
	source := newFakeSource()
	store := docstore.NewMemoryStore()

	d := docsync.NewDispatcher(source, store, 16)
	d.Start()
	d.Dispatch(docsync.AttemptEvent(docstore.Document{"succes": false}))
	d.Dispatch(docsync.AttemptEvent(docstore.Document{"succes": true}))
	d.Stop()

	assert.Equal(t, 2, store.Len(docstore.CollectionAttempts))
}

func TestDispatcher_StoreFailureDoesNotStopWorker(t *testing.T) {
	source := newFakeSource()
	store := docstore.NewMemoryStore()

	first := uuid.New()
	second := uuid.New()
	source.reportDocs[first] = docstore.Document{"statut": "NEW"}
	source.reportDocs[second] = docstore.Document{"statut": "DONE"}

	store.FailWrites = true
	d := docsync.NewDispatcher(source, store, 16)
	d.Start()
	d.Dispatch(docsync.ReportEvent(docsync.ActionCreated, first))
	d.Stop()

	assert.Equal(t, 0, store.Len(docstore.CollectionReports))

	store.FailWrites = false
	d = docsync.NewDispatcher(source, store, 16)
	d.Start()
	d.Dispatch(docsync.ReportEvent(docsync.ActionCreated, second))
	d.Stop()

	assert.Equal(t, 1, store.Len(docstore.CollectionReports))
}

func TestDispatcher_StopDrainsQueuedEvents(t *testing.T) {
	source := newFakeSource()
	store := docstore.NewMemoryStore()

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		source.reportDocs[ids[i]] = docstore.Document{"statut": "NEW"}
	}

	d := docsync.NewDispatcher(source, store, 32)
	d.Start()
	for _, id := range ids {
		d.Dispatch(docsync.ReportEvent(docsync.ActionCreated, id))
	}
	d.Stop()

	assert.Equal(t, len(ids), store.Len(docstore.CollectionReports))
}
