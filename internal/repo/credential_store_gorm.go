package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-auth/internal/domain"
	"go-gin-gorm-auth/internal/feature/token"
	"go-gin-gorm-auth/internal/feature/user"
)

// CredentialStore gorm 实现；mysql 渲染为 ON DUPLICATE KEY UPDATE，postgres 为 ON CONFLICT
type CredentialStore struct {
	db   *gorm.DB
	inTx bool
}

var (
	_ domain.CredentialStore = (*CredentialStore)(nil)
	_ domain.UserDirectory   = (*CredentialStore)(nil)
)

func NewCredentialStore(db *gorm.DB) *CredentialStore { return &CredentialStore{db: db} }

func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m user.UserModel
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Storage("find user", err)
	}
	return m.ToDomain(), nil
}

func (s *CredentialStore) UpsertUser(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns(user.UpsertColumns),
	}).Create(user.FromDomain(u)).Error
	return domain.Storage("upsert user", err)
}

// FindTokenPairByAccessToken 事务内加行锁，保证并发 refresh 只有一个成功
func (s *CredentialStore) FindTokenPairByAccessToken(ctx context.Context, accessToken string) (*domain.TokenPair, error) {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m token.TokenModel
	err := q.Where("access_token = ?", accessToken).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Storage("find token pair", err)
	}
	return m.ToDomain(), nil
}

func (s *CredentialStore) UpsertTokenPair(ctx context.Context, p *domain.TokenPair) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "access_token"}},
		DoUpdates: clause.AssignmentColumns(token.UpsertColumns),
	}).Create(token.FromDomain(p)).Error
	return domain.Storage("upsert token pair", err)
}

func (s *CredentialStore) DeleteTokenPairByAccessToken(ctx context.Context, accessToken string) error {
	err := s.db.WithContext(ctx).Where("access_token = ?", accessToken).Delete(&token.TokenModel{}).Error
	return domain.Storage("delete token pair", err)
}

func (s *CredentialStore) WithTx(ctx context.Context, fn func(tx domain.CredentialStore) error) error {
	if s.inTx {
		return fn(s)
	}
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&CredentialStore{db: tx, inTx: true})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return domain.Storage("commit", err)
}

func (s *CredentialStore) ListUsers(ctx context.Context, offset, limit int, q string) ([]domain.User, int64, error) {
	tx := s.db.WithContext(ctx).Model(&user.UserModel{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}
	// Count 与 Find 共用条件
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, domain.Storage("count users", err)
	}
	var rows []user.UserModel
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, domain.Storage("list users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// PurgeExpiredTokenPairs 删除 refresh 资格已过期的记录
func (s *CredentialStore) PurgeExpiredTokenPairs(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&token.TokenModel{})
	if res.Error != nil {
		return 0, domain.Storage("purge token pairs", res.Error)
	}
	return res.RowsAffected, nil
}
