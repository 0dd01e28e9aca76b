package docsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
)

// ErrUnknownIdentity means a well-formed relational id in a document points
// to no user. That is corruption in the document, not a new mobile user, so
// the document is rejected rather than auto-creating anything.
var ErrUnknownIdentity = errors.New("unknown identity")

// IdentityResolver maps a document's user reference to a relational user
// id. A reference that parses as a relational id must already exist; any
// other string is an external subject id that gets a user created on first
// sight.
type IdentityResolver struct {
	users repository.Users
}

func NewIdentityResolver(users repository.Users) *IdentityResolver {
	return &IdentityResolver{users: users}
}

func (r *IdentityResolver) Resolve(ctx context.Context, rawID string) (uuid.UUID, error) {
	if id, err := uuid.Parse(rawID); err == nil {
		user, err := r.users.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if user == nil {
			return uuid.Nil, fmt.Errorf("%w: user %s", ErrUnknownIdentity, rawID)
		}
		return user.ID, nil
	}

	user, err := r.users.FindByExternalID(ctx, rawID)
	if err != nil {
		return uuid.Nil, err
	}
	if user != nil {
		return user.ID, nil
	}

	externalID := rawID
	created := &models.User{
		Email:      placeholderEmail(rawID),
		AuthSource: models.AuthSourceExternal,
		ExternalID: &externalID,
	}
	if err := r.users.Create(ctx, created); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the creation race to a concurrent reconciliation
			// pass; adopt the winner.
			winner, findErr := r.users.FindByExternalID(ctx, rawID)
			if findErr != nil {
				return uuid.Nil, findErr
			}
			if winner != nil {
				return winner.ID, nil
			}
		}
		return uuid.Nil, err
	}
	return created.ID, nil
}

func placeholderEmail(externalID string) string {
	return fmt.Sprintf("mobile_%s@imported.local", externalID)
}
