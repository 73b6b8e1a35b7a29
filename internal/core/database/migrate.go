package database

import (
	"gorm.io/gorm"

	"go-gin-gorm-auth/internal/feature/token"
	"go-gin-gorm-auth/internal/feature/user"
)

// Migrate 建表/补列（users, tokens）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&user.UserModel{}, &token.TokenModel{})
}
