package user

import (
	"time"

	"go-gin-gorm-auth/internal/domain"
)

// UserModel users 表；email 即主键
type UserModel struct {
	Email               string `gorm:"primaryKey;size:191"`
	HashedPassword      string `gorm:"size:100;not null"`
	FirstName           string `gorm:"size:64"`
	LastName            string `gorm:"size:64"`
	Role                string `gorm:"size:16;not null"`
	IsTemporaryPassword bool   `gorm:"not null"`
	Disabled            bool   `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string { return "users" }

// UpsertColumns 冲突时覆盖的列（不含主键与 created_at）
var UpsertColumns = []string{"hashed_password", "first_name", "last_name", "role", "is_temporary_password", "disabled"}

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		Email:               u.Email,
		HashedPassword:      u.HashedPassword,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Role:                string(u.Role),
		IsTemporaryPassword: u.IsTemporaryPassword,
		Disabled:            u.Disabled,
		CreatedAt:           u.CreatedAt,
	}
}

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		Email:               m.Email,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		Role:                domain.Role(m.Role),
		HashedPassword:      m.HashedPassword,
		IsTemporaryPassword: m.IsTemporaryPassword,
		Disabled:            m.Disabled,
		CreatedAt:           m.CreatedAt,
	}
}
