package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-auth/internal/domain"
)

var (
	superAdmin = &domain.User{Email: "root@example.com", Role: domain.RoleSuperAdmin}
	admin      = &domain.User{Email: "adm@example.com", Role: domain.RoleAdmin}
	plainUser  = &domain.User{Email: "joe@example.com", Role: domain.RoleUser}
)

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(admin))
	assert.NoError(t, RequireAdmin(superAdmin))
	assert.ErrorIs(t, RequireAdmin(plainUser), domain.ErrInsufficientPrivilege)
	assert.ErrorIs(t, RequireAdmin(nil), domain.ErrInsufficientPrivilege)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx := context.Background()
	f.register(t, "a@example.com", "pw")
	f.clock.Advance(time.Second)
	f.register(t, "b@example.com", "pw")

	_, _, err := f.svc.ListUsers(ctx, plainUser, 0, 10, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientPrivilege)

	users, total, err := f.svc.ListUsers(ctx, admin, 0, 0, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, "b@example.com", users[0].Email)
	for _, u := range users {
		assert.Empty(t, u.HashedPassword)
	}
}

func TestSetDisabled(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx := context.Background()
	f.register(t, "alice@example.com", "pw123")
	p, err := f.svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	u, err := f.svc.SetDisabled(ctx, admin, "alice@example.com", true)
	require.NoError(t, err)
	assert.True(t, u.Disabled)

	_, err = f.svc.ResolveCurrentUser(ctx, p.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.SetDisabled(ctx, admin, "alice@example.com", false)
	require.NoError(t, err)
	_, err = f.svc.ResolveCurrentUser(ctx, p.AccessToken)
	assert.NoError(t, err)

	_, err = f.svc.SetDisabled(ctx, admin, "ghost@example.com", true)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.SetDisabled(ctx, plainUser, "alice@example.com", true)
	assert.ErrorIs(t, err, domain.ErrInsufficientPrivilege)
}

func TestAdminCannotTouchSuperAdmin(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx := context.Background()
	_, err := f.svc.Bootstrap(ctx, "root@example.com", "rootpw", domain.RoleSuperAdmin)
	require.NoError(t, err)

	_, err = f.svc.SetDisabled(ctx, admin, "root@example.com", true)
	assert.ErrorIs(t, err, domain.ErrInsufficientPrivilege)

	_, err = f.svc.SetDisabled(ctx, superAdmin, "root@example.com", true)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResetAndChangePassword(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx := context.Background()
	f.register(t, "alice@example.com", "pw123")

	u, err := f.svc.ResetPassword(ctx, admin, "alice@example.com", "temp-1")
	require.NoError(t, err)
	assert.True(t, u.IsTemporaryPassword)

	_, err = f.svc.Login(ctx, "alice@example.com", "pw123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@example.com", "temp-1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "alice@example.com", "wrong", "new"), domain.ErrInvalidCredentials)
	require.NoError(t, f.svc.ChangePassword(ctx, "alice@example.com", "temp-1", "new-pw"))

	stored, err := f.store.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsTemporaryPassword)
	_, err = f.svc.Login(ctx, "alice@example.com", "new-pw")
	assert.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, admin, "alice@example.com", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx := context.Background()
	f.register(t, "alice@example.com", "pw123")
	_, err := f.svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	n, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(8 * 24 * time.Hour)
	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, f.store.TokenCount())
}

func TestRunPurgerStopsOnCancel(t *testing.T) {
	f := newFixture(t, RegistrationOpen)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunPurger(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop")
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "storage_error", outcome(domain.Storage("x", assert.AnError)))
	assert.Equal(t, "invalid_credentials", outcome(domain.ErrInvalidCredentials))
	assert.Equal(t, "expired", outcome(domain.ErrTokenExpired))
	assert.Equal(t, "forbidden", outcome(domain.ErrInsufficientPrivilege))
	assert.Equal(t, "error", outcome(assert.AnError))
}
