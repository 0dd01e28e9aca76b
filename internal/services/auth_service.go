package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/dto"
	"github.com/roadwatch/backend/internal/mapper"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/repository"
	"github.com/roadwatch/backend/internal/security"
	"github.com/roadwatch/backend/internal/version"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
	ErrNotBlocked   = errors.New("account is not blocked")
)

// Login outcome messages. BLOCKED and INACTIVE are deliberately
// distinguishable; every other failure uses the uniform credentials
// message so callers cannot probe which emails have accounts.
const (
	MessageInvalidCredentials = "invalid email or password"
	MessageAccountBlocked     = "account blocked"
	MessageAccountInactive    = "account inactive"
	MessageLoginOK            = "login successful"
)

// Syncer receives post-commit mutation events bound for the document
// store.
type Syncer interface {
	Dispatch(ev docsync.Event)
}

type AuthService struct {
	users     repository.Users
	attempts  repository.Attempts
	versions  version.Store
	passwords security.PasswordVerifier
	sync      Syncer
	cfg       *config.Config
	now       func() time.Time
}

func NewAuthService(users repository.Users, attempts repository.Attempts, versions version.Store, passwords security.PasswordVerifier, sync Syncer, cfg *config.Config) *AuthService {
	return &AuthService{
		users:     users,
		attempts:  attempts,
		versions:  versions,
		passwords: passwords,
		sync:      sync,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register creates a user and its initial profile, role, state and
// credential versions in one transaction, then pushes the user document.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if len(req.Email) == 0 || len(req.Password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := models.User{
		ID:         uuid.New(),
		Email:      req.Email,
		AuthSource: models.AuthSourceLocal,
		CreatedAt:  now,
	}
	versions := []models.AttributeVersion{
		{Kind: version.KindUserProfile, Payload: map[string]any{"first_name": req.FirstName, "last_name": req.LastName}, ValidFrom: now},
		{Kind: version.KindUserRole, Payload: map[string]any{"role": models.RoleUser}, ValidFrom: now},
		{Kind: version.KindUserState, Payload: map[string]any{"state": models.StateActive}, ValidFrom: now},
		{Kind: version.KindUserCredential, Payload: map[string]any{"hash": hash}, ValidFrom: now},
	}

	if err := s.users.CreateWithVersions(ctx, &user, versions); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.sync.Dispatch(docsync.UserEvent(docsync.ActionCreated, user.ID))

	resp := s.userResponse(&user, req.FirstName, req.LastName, models.RoleUser, models.StateActive)
	return &resp, nil
}

// Authenticate runs the login flow: state gate, credential check, attempt
// logging and the lockout transition. Business rejections come back in
// the response, not as errors; the error return is for infrastructure
// failures only.
func (s *AuthService) Authenticate(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	now := s.now()

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Unknown email still burns an anonymous attempt row, and the
		// caller learns nothing beyond the uniform message.
		if err := s.recordAttempt(ctx, nil, now, false); err != nil {
			return nil, err
		}
		return &dto.LoginResponse{Message: MessageInvalidCredentials}, nil
	}

	state, err := s.currentState(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	switch state {
	case models.StateBlocked:
		// Blocked accounts do not consume further attempt history.
		return &dto.LoginResponse{Message: MessageAccountBlocked}, nil
	case models.StateInactive:
		return &dto.LoginResponse{Message: MessageAccountInactive}, nil
	}

	cred, err := s.versions.Current(ctx, version.KindUserCredential, user.ID)
	if err != nil {
		return nil, err
	}
	hash := ""
	if cred != nil {
		hash, _ = cred.Payload["hash"].(string)
	}

	if hash == "" || !s.passwords.Verify(req.Password, hash) {
		return s.handleFailure(ctx, user, now)
	}

	if err := s.recordAttempt(ctx, &user.ID, now, true); err != nil {
		return nil, err
	}

	profile, role, err := s.currentProfileAndRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.generateAccessToken(user, role)
	if err != nil {
		return nil, err
	}

	firstName, _ := profile["first_name"].(string)
	lastName, _ := profile["last_name"].(string)
	return &dto.LoginResponse{
		Success:     true,
		Message:     MessageLoginOK,
		AccessToken: token,
		User:        s.userResponse(user, firstName, lastName, role, state),
	}, nil
}

func (s *AuthService) handleFailure(ctx context.Context, user *models.User, now time.Time) (*dto.LoginResponse, error) {
	if err := s.recordAttempt(ctx, &user.ID, now, false); err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByUserNewestFirst(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	count := ConsecutiveFailures(attempts)

	if count >= LockoutThreshold {
		payload := map[string]any{"state": models.StateBlocked, "reason": BlockedReason}
		if err := s.versions.Supersede(ctx, version.KindUserState, user.ID, payload, now); err != nil {
			return nil, err
		}
		s.sync.Dispatch(docsync.UserEvent(docsync.ActionUpdated, user.ID))
		return &dto.LoginResponse{Message: MessageAccountBlocked}, nil
	}

	remaining := LockoutThreshold - count
	return &dto.LoginResponse{
		Message:           MessageInvalidCredentials,
		RemainingAttempts: &remaining,
	}, nil
}

// Unblock reopens a BLOCKED account as ACTIVE. This is the only way out
// of BLOCKED; there is no time-based unblock.
func (s *AuthService) Unblock(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	state, err := s.currentState(ctx, userID)
	if err != nil {
		return err
	}
	if state != models.StateBlocked {
		return ErrNotBlocked
	}

	payload := map[string]any{"state": models.StateActive}
	if err := s.versions.Supersede(ctx, version.KindUserState, userID, payload, s.now()); err != nil {
		return err
	}
	s.sync.Dispatch(docsync.UserEvent(docsync.ActionUpdated, userID))
	return nil
}

// ListBlockedUsers returns the users whose open state version is BLOCKED.
func (s *AuthService) ListBlockedUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.ListByCurrentState(ctx, models.StateBlocked)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		profile, role, err := s.currentProfileAndRole(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		firstName, _ := profile["first_name"].(string)
		lastName, _ := profile["last_name"].(string)
		out = append(out, s.userResponse(&users[i], firstName, lastName, role, models.StateBlocked))
	}
	return out, nil
}

// CurrentRole returns the user's open role version, defaulting to USER.
func (s *AuthService) CurrentRole(ctx context.Context, userID uuid.UUID) (string, error) {
	row, err := s.versions.Current(ctx, version.KindUserRole, userID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return models.RoleUser, nil
	}
	if role, ok := row.Payload["role"].(string); ok && role != "" {
		return role, nil
	}
	return models.RoleUser, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, userID *uuid.UUID, at time.Time, succeeded bool) error {
	attempt := models.LoginAttempt{
		UserID:      userID,
		AttemptedAt: at,
		Succeeded:   succeeded,
	}
	if err := s.attempts.Append(ctx, &attempt); err != nil {
		return err
	}
	s.sync.Dispatch(docsync.AttemptEvent(mapper.AttemptDocument(attempt)))
	return nil
}

// currentState defaults to ACTIVE when no state version exists yet.
func (s *AuthService) currentState(ctx context.Context, userID uuid.UUID) (string, error) {
	row, err := s.versions.Current(ctx, version.KindUserState, userID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return models.StateActive, nil
	}
	state, _ := row.Payload["state"].(string)
	if state == "" {
		return models.StateActive, nil
	}
	return state, nil
}

func (s *AuthService) currentProfileAndRole(ctx context.Context, userID uuid.UUID) (map[string]any, string, error) {
	profileRow, err := s.versions.Current(ctx, version.KindUserProfile, userID)
	if err != nil {
		return nil, "", err
	}
	profile := map[string]any{}
	if profileRow != nil {
		profile = profileRow.Payload
	}
	role, err := s.CurrentRole(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return profile, role, nil
}

func (s *AuthService) userResponse(user *models.User, firstName, lastName, role, state string) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       role,
		State:      state,
		AuthSource: user.AuthSource,
	}
}

func (s *AuthService) generateAccessToken(user *models.User, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  role,
		"iat":   s.now().Unix(),
		"exp":   s.now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
