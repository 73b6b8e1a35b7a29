package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin admin 与 super_admin 都可以执行管理操作
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

type User struct {
	Email               string    `json:"email"`
	FirstName           string    `json:"first_name,omitempty"`
	LastName            string    `json:"last_name,omitempty"`
	Role                Role      `json:"role"`
	HashedPassword      string    `json:"-"`
	IsTemporaryPassword bool      `json:"is_temporary_password"`
	Disabled            bool      `json:"disabled"`
	CreatedAt           time.Time `json:"created_at"`
}

// NormalizeEmail 统一邮箱格式（去空白 + 小写）
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail 只做语法校验，规则与 gin binding 的 email tag 一致
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func (u *User) Validate() error {
	switch {
	case u == nil:
		return fmt.Errorf("%w: nil user", ErrInvalidRecord)
	case !ValidEmail(u.Email):
		return fmt.Errorf("%w: malformed email", ErrInvalidRecord)
	case !u.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRecord, u.Role)
	case u.HashedPassword == "":
		return fmt.Errorf("%w: missing password hash", ErrInvalidRecord)
	}
	return nil
}

// DisplayName 用于问候语：优先 first name，否则邮箱
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}
