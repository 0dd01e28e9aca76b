// Package mapper projects current-version relational state into the flat
// document shape consumed by the mobile client. All functions are pure:
// same inputs always produce the same document, byte for byte once
// JSON-encoded, so re-syncing is idempotent.
package mapper

import (
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/docstore"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/version"
)

// DocumentID derives the document id from the relational id.
func DocumentID(id uuid.UUID) string {
	return id.String()
}

// Timestamp is the wire encoding for instants.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ReportDocument flattens a report and its current status/detail versions.
// Field names follow the mobile client's schema. A report with no status
// version yet projects the "NEW" default; other absent versions omit their
// fields entirely.
func ReportDocument(r models.Report, status, detail *version.Row, companyName string) docstore.Document {
	doc := docstore.Document{
		"id_signalement": r.ID.String(),
		"latitude":       r.Latitude,
		"longitude":      r.Longitude,
		"source":         r.Source,
		"date_creation":  Timestamp(r.CreatedAt),
	}
	if r.UserID != nil {
		doc["id_utilisateur"] = r.UserID.String()
	}

	if status != nil {
		doc["statut"] = status.Payload["status"]
		doc["statut_date_debut"] = Timestamp(status.ValidFrom)
	} else {
		doc["statut"] = models.StatusNew
	}

	if detail != nil {
		if v, ok := detail.Payload["surface_m2"]; ok {
			doc["surface_m2"] = v
		}
		if v, ok := detail.Payload["budget"]; ok {
			doc["budget"] = v
		}
		if v, ok := detail.Payload["company_id"]; ok {
			doc["id_entreprise"] = v
			if companyName != "" {
				doc["entreprise_nom"] = companyName
			}
		}
	}
	return doc
}

// UserDocument flattens a user and its current profile/role/state versions.
func UserDocument(u models.User, profile, role, state *version.Row) docstore.Document {
	doc := docstore.Document{
		"id_utilisateur": u.ID.String(),
		"email":          u.Email,
		"source_auth":    u.AuthSource,
		"date_creation":  Timestamp(u.CreatedAt),
	}

	if profile != nil {
		if v, ok := profile.Payload["last_name"]; ok {
			doc["nom"] = v
		}
		if v, ok := profile.Payload["first_name"]; ok {
			doc["prenom"] = v
		}
	}
	if role != nil {
		doc["role"] = role.Payload["role"]
	}
	if state != nil {
		doc["etat_compte"] = state.Payload["state"]
	}
	return doc
}

// CompanyDocument flattens a company.
func CompanyDocument(c models.Company) docstore.Document {
	return docstore.Document{
		"id_entreprise": c.ID,
		"nom":           c.Name,
	}
}

// AttemptDocument flattens a login attempt. The user id is present only
// when the attempt matched an account.
func AttemptDocument(a models.LoginAttempt) docstore.Document {
	doc := docstore.Document{
		"date_tentative": Timestamp(a.AttemptedAt),
		"succes":         a.Succeeded,
	}
	if a.UserID != nil {
		doc["id_utilisateur"] = a.UserID.String()
	}
	return doc
}
