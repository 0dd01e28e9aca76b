package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/docsync"
	"github.com/roadwatch/backend/internal/dto"
	"github.com/roadwatch/backend/internal/models"
	"github.com/roadwatch/backend/internal/services"
	"github.com/roadwatch/backend/internal/version"
)

type authFixture struct {
	users    *fakeUsers
	attempts *fakeAttempts
	versions *version.MemoryStore
	syncer   *fakeSyncer
	svc      *services.AuthService
}

func newAuthFixture() *authFixture {
	versions := version.NewMemoryStore()
	users := newFakeUsers(versions)
	attempts := &fakeAttempts{}
	syncer := &fakeSyncer{}
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: 15 * time.Minute}
	return &authFixture{
		users:    users,
		attempts: attempts,
		versions: versions,
		syncer:   syncer,
		svc:      services.NewAuthService(users, attempts, versions, fakeVerifier{}, syncer, cfg),
	}
}

func (f *authFixture) register(t *testing.T, email, password string) uuid.UUID {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *authFixture) login(t *testing.T, email, password string) *dto.LoginResponse {
	t.Helper()
	resp, err := f.svc.Authenticate(context.Background(), &dto.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return resp
}

func TestRegister_CreatesInitialVersions(t *testing.T) {
	f := newAuthFixture()
	id := f.register(t, "ada@x.com", "password123")

	ctx := context.Background()
	state, err := f.versions.Current(ctx, version.KindUserState, id)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StateActive, state.Payload["state"])

	role, err := f.versions.Current(ctx, version.KindUserRole, id)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, models.RoleUser, role.Payload["role"])

	cred, err := f.versions.Current(ctx, version.KindUserCredential, id)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "hashed:password123", cred.Payload["hash"])

	events := f.syncer.byEntity(docsync.EntityUser)
	require.Len(t, events, 1)
	assert.Equal(t, docsync.ActionCreated, events[0].Action)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ada@x.com", "password123")

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{Email: "ada@x.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ada@x.com", "password123")

	resp := f.login(t, "ada@x.com", "password123")
	assert.True(t, resp.Success)
	assert.Equal(t, services.MessageLoginOK, resp.Message)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Ada", resp.User.FirstName)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, models.StateActive, resp.User.State)
	assert.Equal(t, 1, f.attempts.count())
}

func TestAuthenticate_WrongPasswordOnFreshUser(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "a@x.com", "password123")

	resp := f.login(t, "a@x.com", "wrong")
	assert.False(t, resp.Success)
	assert.Equal(t, services.MessageInvalidCredentials, resp.Message)
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 2, *resp.RemainingAttempts)
}

func TestAuthenticate_ThirdConsecutiveFailureBlocks(t *testing.T) {
	f := newAuthFixture()
	id := f.register(t, "ada@x.com", "password123")

	f.login(t, "ada@x.com", "wrong")
	f.login(t, "ada@x.com", "wrong")
	resp := f.login(t, "ada@x.com", "wrong")
	assert.Equal(t, services.MessageAccountBlocked, resp.Message)

	state, err := f.versions.Current(context.Background(), version.KindUserState, id)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StateBlocked, state.Payload["state"])
	assert.Equal(t, services.BlockedReason, state.Payload["reason"])

	// A blocked account is rejected without another attempt row, even
	// with the right password.
	before := f.attempts.count()
	resp = f.login(t, "ada@x.com", "password123")
	assert.Equal(t, services.MessageAccountBlocked, resp.Message)
	assert.Equal(t, before, f.attempts.count())
}

func TestAuthenticate_SuccessResetsFailureWindow(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ada@x.com", "password123")

	f.login(t, "ada@x.com", "wrong")
	f.login(t, "ada@x.com", "wrong")
	f.login(t, "ada@x.com", "password123")

	resp := f.login(t, "ada@x.com", "wrong")
	assert.Equal(t, services.MessageInvalidCredentials, resp.Message)
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 2, *resp.RemainingAttempts)
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	f := newAuthFixture()

	resp := f.login(t, "nobody@x.com", "whatever")
	assert.False(t, resp.Success)
	assert.Equal(t, services.MessageInvalidCredentials, resp.Message)
	assert.Nil(t, resp.RemainingAttempts)

	// The attempt is logged anonymously.
	require.Equal(t, 1, f.attempts.count())
	assert.Nil(t, f.attempts.rows[0].UserID)
}

func TestAuthenticate_InactiveAccountSkipsAttemptLog(t *testing.T) {
	f := newAuthFixture()
	id := f.register(t, "ada@x.com", "password123")

	payload := map[string]any{"state": models.StateInactive}
	require.NoError(t, f.versions.Supersede(context.Background(), version.KindUserState, id, payload, time.Now()))

	resp := f.login(t, "ada@x.com", "password123")
	assert.Equal(t, services.MessageAccountInactive, resp.Message)
	assert.Equal(t, 0, f.attempts.count())
}

func TestUnblock(t *testing.T) {
	f := newAuthFixture()
	id := f.register(t, "ada@x.com", "password123")

	for i := 0; i < 3; i++ {
		f.login(t, "ada@x.com", "wrong")
	}

	blocked, err := f.svc.ListBlockedUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "ada@x.com", blocked[0].Email)

	require.NoError(t, f.svc.Unblock(context.Background(), id))

	state, err := f.versions.Current(context.Background(), version.KindUserState, id)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.StateActive, state.Payload["state"])

	blocked, err = f.svc.ListBlockedUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocked)

	// The BLOCKED version is closed, not erased.
	history, err := f.versions.History(context.Background(), version.KindUserState, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.NotNil(t, history[1].ValidTo)

	resp := f.login(t, "ada@x.com", "password123")
	assert.True(t, resp.Success)
}

func TestUnblock_Errors(t *testing.T) {
	f := newAuthFixture()
	id := f.register(t, "ada@x.com", "password123")

	assert.ErrorIs(t, f.svc.Unblock(context.Background(), uuid.New()), services.ErrUserNotFound)
	assert.ErrorIs(t, f.svc.Unblock(context.Background(), id), services.ErrNotBlocked)
}

func TestConsecutiveFailures(t *testing.T) {
	mk := func(outcomes ...bool) []models.LoginAttempt {
		out := make([]models.LoginAttempt, len(outcomes))
		for i, ok := range outcomes {
			out[i] = models.LoginAttempt{Succeeded: ok}
		}
		return out
	}

	assert.Equal(t, 0, services.ConsecutiveFailures(nil))
	assert.Equal(t, 3, services.ConsecutiveFailures(mk(false, false, false)))
	assert.Equal(t, 1, services.ConsecutiveFailures(mk(false, true, false, false)))
	assert.Equal(t, 0, services.ConsecutiveFailures(mk(true, false, false)))
}
