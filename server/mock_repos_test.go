package server

import (
	"context"
	"database/sql"
	"fmt"

	"ComfyPortal/core/sync"
	"ComfyPortal/model"
)

type mockUserRepo struct {
	users  map[string]*model.User // keyed by username
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (m *mockUserRepo) CreateUser(user *model.User) (int64, error) {
	if _, exists := m.users[user.Username]; exists {
		return 0, fmt.Errorf("Duplicate entry '%s' for key 'username'", user.Username)
	}
	u := *user
	u.ID = m.nextID
	m.nextID++
	m.users[u.Username] = &u
	return u.ID, nil
}

func (m *mockUserRepo) GetUserByID(id int64) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByUsername(username string) (*model.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByWechatUserID(wechatUserID string) (*model.User, error) {
	for _, u := range m.users {
		if u.WechatUserID.Valid && u.WechatUserID.String == wechatUserID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateEmail(userID int64, email string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.Email = email
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) UpdateWechatProfile(userID int64, profile *model.User) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.WechatName = profile.WechatName
			u.WechatMobile = profile.WechatMobile
			u.WechatAvatar = profile.WechatAvatar
			u.WechatDepartment = profile.WechatDepartment
			u.WechatPosition = profile.WechatPosition
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) ResetPassword(username string, passwordHash string) error {
	u, ok := m.users[username]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) CountUsers() (int64, error) {
	return int64(len(m.users)), nil
}

type mockCreditTxRepo struct {
	txs []*model.CreditTransaction
}

func (m *mockCreditTxRepo) Record(tx *model.CreditTransaction) error {
	m.txs = append(m.txs, tx)
	return nil
}

func (m *mockCreditTxRepo) ListByUser(userID int64, limit int) ([]model.CreditTransaction, error) {
	var out []model.CreditTransaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSource struct {
	rows []sync.Row
}

func (f *fakeSource) FetchAll(_ context.Context) ([]sync.Row, error) { return f.rows, nil }
func (f *fakeSource) Close() error                                   { return nil }

func openerFor(src *fakeSource) sync.SourceOpener {
	return func(_ context.Context) (sync.ExternalSource, error) {
		return src, nil
	}
}
