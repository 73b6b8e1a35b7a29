package domain

import (
	"errors"
	"fmt"
)

// 业务错误（由传输层映射为 400/401/403）
var (
	ErrDuplicateAccount      = errors.New("an account with this email already exists")
	ErrInvalidCredentials    = errors.New("incorrect email or password")
	ErrInvalidToken          = errors.New("invalid access token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrUnauthenticated       = errors.New("could not validate credentials")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidInput          = errors.New("invalid input")
)

var (
	// ErrNotFound 仅由 CredentialStore 返回，表示记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrStorage 用于 errors.Is 判断存储层故障
	ErrStorage = errors.New("storage error")
	// ErrInvalidRecord 写入前的结构校验失败
	ErrInvalidRecord = errors.New("invalid record")
)

// StorageError 包装底层存储错误（连接、约束冲突等），对外只暴露通用信息
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage 包装 err；nil 返回 nil，ErrNotFound 原样返回
func Storage(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
