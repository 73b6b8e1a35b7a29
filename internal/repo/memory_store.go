package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-gin-gorm-auth/internal/domain"
)

// MemoryStore 进程内实现（db.driver=memory，本地调试与测试用）。
// WithTx 串行执行；出错时按 undo 日志只撤销本事务自己的写
type MemoryStore struct {
	txMu   sync.Mutex // 事务互斥
	mu     sync.RWMutex
	users  map[string]domain.User
	tokens map[string]domain.TokenPair

	// 测试注入的存储故障
	Fail error
}

var (
	_ domain.CredentialStore = (*MemoryStore)(nil)
	_ domain.UserDirectory   = (*MemoryStore)(nil)
	_ domain.CredentialStore = (*memTx)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]domain.User{}, tokens: map[string]domain.TokenPair{}}
}

func (s *MemoryStore) fail(op string) error {
	if s.Fail != nil {
		return domain.Storage(op, s.Fail)
	}
	return nil
}

// 以下 put/del 调用方需持有 s.mu

func (s *MemoryStore) putUser(u domain.User) domain.User {
	if old, ok := s.users[u.Email]; ok {
		u.CreatedAt = old.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.Email] = u
	return u
}

func (s *MemoryStore) putTokenPair(p domain.TokenPair) domain.TokenPair {
	if old, ok := s.tokens[p.AccessToken]; ok {
		p.CreatedAt = old.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.tokens[p.AccessToken] = p
	return p
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := s.fail("find user"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpsertUser(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.fail("upsert user"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putUser(*u)
	return nil
}

func (s *MemoryStore) FindTokenPairByAccessToken(_ context.Context, token string) (*domain.TokenPair, error) {
	if err := s.fail("find token pair"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpsertTokenPair(_ context.Context, p *domain.TokenPair) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.fail("upsert token pair"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTokenPair(*p)
	return nil
}

func (s *MemoryStore) DeleteTokenPairByAccessToken(_ context.Context, token string) error {
	if err := s.fail("delete token pair"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(domain.CredentialStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{MemoryStore: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memTx 事务视图。读直接走 MemoryStore；写记 undo，回滚时逆序撤销。
// 某 key 在本事务写入之后又被事务外改过，则保留事务外的值
type memTx struct {
	*MemoryStore
	undo []func()
}

func (t *memTx) WithTx(ctx context.Context, fn func(domain.CredentialStore) error) error {
	return fn(t)
}

func (t *memTx) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) UpsertUser(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := t.fail("upsert user"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.users[u.Email]
	wrote := t.putUser(*u)
	t.undo = append(t.undo, func() {
		if cur, ok := t.users[wrote.Email]; !ok || cur != wrote {
			return
		}
		if existed {
			t.users[prev.Email] = prev
		} else {
			delete(t.users, wrote.Email)
		}
	})
	return nil
}

func (t *memTx) UpsertTokenPair(_ context.Context, p *domain.TokenPair) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := t.fail("upsert token pair"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.tokens[p.AccessToken]
	wrote := t.putTokenPair(*p)
	t.undo = append(t.undo, func() {
		if cur, ok := t.tokens[wrote.AccessToken]; !ok || cur != wrote {
			return
		}
		if existed {
			t.tokens[prev.AccessToken] = prev
		} else {
			delete(t.tokens, wrote.AccessToken)
		}
	})
	return nil
}

func (t *memTx) DeleteTokenPairByAccessToken(_ context.Context, token string) error {
	if err := t.fail("delete token pair"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.tokens[token]
	if !existed {
		return nil
	}
	delete(t.tokens, token)
	t.undo = append(t.undo, func() {
		if _, ok := t.tokens[token]; !ok {
			t.tokens[token] = prev
		}
	})
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context, offset, limit int, q string) ([]domain.User, int64, error) {
	if err := s.fail("list users"); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q = strings.ToLower(strings.TrimSpace(q))
	var all []domain.User
	for _, u := range s.users {
		if q == "" || strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), q) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Email < all[j].Email
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.User{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) PurgeExpiredTokenPairs(_ context.Context, before time.Time) (int64, error) {
	if err := s.fail("purge token pairs"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, p := range s.tokens {
		if p.ExpiresAt < before.Unix() {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

// TokenCount 测试辅助
func (s *MemoryStore) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
