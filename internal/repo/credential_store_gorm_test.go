package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-gin-gorm-auth/internal/domain"
)

var (
	userCols  = []string{"email", "hashed_password", "first_name", "last_name", "role", "is_temporary_password", "disabled", "created_at"}
	tokenCols = []string{"access_token", "refresh_token", "user_id", "expires_at", "token_type", "created_at"}
)

func newMockStore(t *testing.T) (*CredentialStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return NewCredentialStore(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestFindUserByEmail(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT * FROM `users` WHERE email = ?")).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow("alice@example.com", "$2a$hash", "Alice", "", "user", false, false, created))

		u, err := s.FindUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, "Alice", u.FirstName)
		assert.Equal(t, domain.RoleUser, u.Role)
		assert.Equal(t, "$2a$hash", u.HashedPassword)
		assert.True(t, created.Equal(u.CreatedAt))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT * FROM `users`")).WillReturnRows(sqlmock.NewRows(userCols))

		_, err := s.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("storage error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT * FROM `users`")).WillReturnError(errors.New("connection refused"))

		_, err := s.FindUserByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		var se *domain.StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "find user", se.Op)
	})
}

func TestUpsertUser(t *testing.T) {
	ctx := context.Background()
	u := &domain.User{Email: "alice@example.com", Role: domain.RoleUser, HashedPassword: "$2a$hash", CreatedAt: time.Now()}

	t.Run("on duplicate key update", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q("INSERT INTO `users`") + ".*" + q("ON DUPLICATE KEY UPDATE") + ".*" + q("`hashed_password`")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpsertUser(ctx, u))
	})

	t.Run("rejects invalid record before touching storage", func(t *testing.T) {
		s, _ := newMockStore(t)
		bad := *u
		bad.HashedPassword = ""
		assert.ErrorIs(t, s.UpsertUser(ctx, &bad), domain.ErrInvalidRecord)

		bad = *u
		bad.Role = "root"
		assert.ErrorIs(t, s.UpsertUser(ctx, &bad), domain.ErrInvalidRecord)
	})

	t.Run("constraint violation is a storage error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q("INSERT INTO `users`")).WillReturnError(errors.New("Error 1406: Data too long"))
		assert.ErrorIs(t, s.UpsertUser(ctx, u), domain.ErrStorage)
	})
}

func TestTokenPairs(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	pair := &domain.TokenPair{
		AccessToken: "T1", RefreshToken: "R1", UserID: "alice@example.com",
		ExpiresAt: exp.Unix(), TokenType: domain.TokenTypeBearer,
	}

	t.Run("upsert", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q("INSERT INTO `tokens`") + ".*" + q("ON DUPLICATE KEY UPDATE")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.UpsertTokenPair(ctx, pair))
	})

	t.Run("upsert rejects wrong token type", func(t *testing.T) {
		s, _ := newMockStore(t)
		bad := *pair
		bad.TokenType = "mac"
		assert.ErrorIs(t, s.UpsertTokenPair(ctx, &bad), domain.ErrInvalidRecord)
	})

	t.Run("find", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT * FROM `tokens` WHERE access_token = ?")).
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow("T1", "R1", "alice@example.com", exp, "bearer", time.Now()))

		got, err := s.FindTokenPairByAccessToken(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "R1", got.RefreshToken)
		assert.Equal(t, exp.Unix(), got.ExpiresAt)
		assert.Equal(t, "alice@example.com", got.UserID)
	})

	t.Run("find missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT * FROM `tokens`")).WillReturnRows(sqlmock.NewRows(tokenCols))
		_, err := s.FindTokenPairByAccessToken(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q("DELETE FROM `tokens` WHERE access_token = ?")).
			WithArgs("T1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.DeleteTokenPairByAccessToken(ctx, "T1"))
	})
}

func TestWithTxRotation(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	t.Run("commit locks the old row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT * FROM `tokens` WHERE access_token = ?") + ".*" + q("FOR UPDATE")).
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow("T1", "R1", "alice@example.com", exp, "bearer", time.Now()))
		mock.ExpectExec(q("INSERT INTO `tokens`")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("DELETE FROM `tokens`")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.WithTx(ctx, func(tx domain.CredentialStore) error {
			old, err := tx.FindTokenPairByAccessToken(ctx, "T1")
			if err != nil {
				return err
			}
			next := *old
			next.AccessToken, next.RefreshToken = "T2", "R2"
			if err := tx.UpsertTokenPair(ctx, &next); err != nil {
				return err
			}
			return tx.DeleteTokenPairByAccessToken(ctx, old.AccessToken)
		})
		require.NoError(t, err)
	})

	t.Run("domain error rolls back unchanged", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(tokenCols))
		mock.ExpectRollback()

		err := s.WithTx(ctx, func(tx domain.CredentialStore) error {
			_, err := tx.FindTokenPairByAccessToken(ctx, "gone")
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("commit failure is a storage error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

		err := s.WithTx(ctx, func(domain.CredentialStore) error { return nil })
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestListUsersAndPurge(t *testing.T) {
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q("SELECT count(*) FROM `users` WHERE")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(q("SELECT * FROM `users` WHERE") + ".*" + q("ORDER BY created_at DESC")).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow("b@example.com", "h", "", "", "user", false, false, time.Now()).
				AddRow("a@example.com", "h", "", "", "admin", false, true, time.Now()))

		users, total, err := s.ListUsers(ctx, 0, 20, "example")
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, users, 2)
		assert.Equal(t, domain.RoleAdmin, users[1].Role)
		assert.True(t, users[1].Disabled)
	})

	t.Run("purge", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(q("DELETE FROM `tokens` WHERE expires_at < ?")).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := s.PurgeExpiredTokenPairs(ctx, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})
}
