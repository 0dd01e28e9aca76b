package docsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/version"
)

// Summary is the outcome of one reconciliation pass over a collection.
// Updated counts documents whose relational equivalent already existed (an
// idempotent no-op, not an error).
type Summary struct {
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	Errors       int      `json:"errors"`
	Total        int      `json:"total"`
	ErrorDetails []string `json:"error_details,omitempty"`
}

// FullSummary combines the user and report passes of a full reconciliation.
type FullSummary struct {
	Users     Summary   `json:"users"`
	Reports   Summary   `json:"reports"`
	Timestamp time.Time `json:"timestamp"`
}

// Reconciler imports documents the mobile client wrote into the document
// store back into the relational store. Each document is handled in its own
// transaction so one bad document never aborts the batch; reconciliation
// only ever creates missing entities, it never mutates existing ones.
type Reconciler struct {
	store    docstore.Store
	users    repository.Users
	reports  repository.Reports
	resolver *IdentityResolver
	now      func() time.Time
}

func NewReconciler(store docstore.Store, users repository.Users, reports repository.Reports, resolver *IdentityResolver) *Reconciler {
	return &Reconciler{
		store:    store,
		users:    users,
		reports:  reports,
		resolver: resolver,
		now:      time.Now,
	}
}

// ReconcileAll runs the user pass first so report documents referencing a
// just-imported user resolve against it.
func (r *Reconciler) ReconcileAll(ctx context.Context) (FullSummary, error) {
	users, err := r.ReconcileUsers(ctx)
	if err != nil {
		return FullSummary{}, err
	}
	reports, err := r.ReconcileReports(ctx)
	if err != nil {
		return FullSummary{}, err
	}
	return FullSummary{Users: users, Reports: reports, Timestamp: r.now()}, nil
}

// ReconcileReports imports the report collection. A listing failure is a
// top-level error with no partial result; per-document failures are
// collected into the summary.
func (r *Reconciler) ReconcileReports(ctx context.Context) (Summary, error) {
	docs, err := r.store.List(ctx, docstore.CollectionReports)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list report documents: %w", err)
	}

	summary := Summary{Total: len(docs)}
	for _, id := range sortedIDs(docs) {
		created, err := r.importReport(ctx, id, docs[id])
		switch {
		case err != nil:
			summary.Errors++
			summary.ErrorDetails = append(summary.ErrorDetails, fmt.Sprintf("document %s: %v", id, err))
			slog.Warn("report document rejected", "doc_id", id, "error", err.Error())
		case created:
			summary.Created++
		default:
			summary.Updated++
		}
	}

	slog.Info("report reconciliation finished",
		"created", summary.Created, "updated", summary.Updated, "errors", summary.Errors, "total", summary.Total)
	return summary, nil
}

func (r *Reconciler) importReport(ctx context.Context, docID string, doc docstore.Document) (bool, error) {
	userRef, ok := stringField(doc, "id_utilisateur")
	if !ok {
		return false, errors.New("missing required field id_utilisateur")
	}
	lat, ok := floatField(doc, "latitude")
	if !ok {
		return false, errors.New("missing required field latitude")
	}
	lon, ok := floatField(doc, "longitude")
	if !ok {
		return false, errors.New("missing required field longitude")
	}

	userID, err := r.resolver.Resolve(ctx, userRef)
	if err != nil {
		return false, err
	}

	existing, err := r.reports.FindByUserAndCoords(ctx, userID, lat, lon)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		// Already imported; identical coordinates from the same user
		// count as the same report.
		return false, nil
	}

	source := models.SourceExternal
	if s, ok := stringField(doc, "source"); ok {
		source = s
	}
	status := models.StatusNew
	if s, ok := stringField(doc, "statut"); ok && models.ValidStatus(s) {
		status = s
	}
	createdAt := r.timeField(doc, "date_creation")

	report := &models.Report{
		UserID:    &userID,
		Latitude:  lat,
		Longitude: lon,
		Source:    source,
		CreatedAt: createdAt,
	}
	err = r.reports.CreateWithVersions(ctx, report, []models.AttributeVersion{{
		Kind:      version.KindReportStatus,
		Payload:   map[string]any{"status": status},
		ValidFrom: createdAt,
	}})
	if err != nil {
		return false, err
	}
	slog.Info("report imported from document store", "doc_id", docID, "report_id", report.ID)
	return true, nil
}

// ReconcileUsers imports the user collection, matching by email.
func (r *Reconciler) ReconcileUsers(ctx context.Context) (Summary, error) {
	docs, err := r.store.List(ctx, docstore.CollectionUsers)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list user documents: %w", err)
	}

	summary := Summary{Total: len(docs)}
	for _, id := range sortedIDs(docs) {
		created, err := r.importUser(ctx, docs[id])
		switch {
		case err != nil:
			summary.Errors++
			summary.ErrorDetails = append(summary.ErrorDetails, fmt.Sprintf("document %s: %v", id, err))
			slog.Warn("user document rejected", "doc_id", id, "error", err.Error())
		case created:
			summary.Created++
		default:
			summary.Updated++
		}
	}

	slog.Info("user reconciliation finished",
		"created", summary.Created, "updated", summary.Updated, "errors", summary.Errors, "total", summary.Total)
	return summary, nil
}

func (r *Reconciler) importUser(ctx context.Context, doc docstore.Document) (bool, error) {
	email, ok := stringField(doc, "email")
	if !ok {
		return false, errors.New("missing required field email")
	}

	existing, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	authSource := models.AuthSourceExternal
	if s, ok := stringField(doc, "source_auth"); ok {
		authSource = s
	}
	role := models.RoleUser
	if s, ok := stringField(doc, "role"); ok && (s == models.RoleUser || s == models.RoleAdmin) {
		role = s
	}
	state := models.StateActive
	if s, ok := stringField(doc, "etat_compte"); ok {
		switch s {
		case models.StateActive, models.StateInactive, models.StateBlocked:
			state = s
		}
	}
	lastName, _ := stringField(doc, "nom")
	firstName, _ := stringField(doc, "prenom")
	createdAt := r.timeField(doc, "date_creation")

	user := &models.User{
		Email:      email,
		AuthSource: authSource,
		CreatedAt:  createdAt,
	}
	err = r.users.CreateWithVersions(ctx, user, []models.AttributeVersion{
		{
			Kind:      version.KindUserProfile,
			Payload:   map[string]any{"last_name": lastName, "first_name": firstName},
			ValidFrom: createdAt,
		},
		{
			Kind:      version.KindUserRole,
			Payload:   map[string]any{"role": role},
			ValidFrom: createdAt,
		},
		{
			Kind:      version.KindUserState,
			Payload:   map[string]any{"state": state},
			ValidFrom: createdAt,
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Created concurrently since the FindByEmail above.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Reconciler) timeField(doc docstore.Document, key string) time.Time {
	if raw, ok := stringField(doc, key); ok {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return r.now()
}

func stringField(doc docstore.Document, key string) (string, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func floatField(doc docstore.Document, key string) (float64, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func sortedIDs(docs map[string]docstore.Document) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
