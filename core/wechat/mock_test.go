package wechat

import (
	"database/sql"
	"fmt"

	"ComfyPortal/model"
)

type mockUserRepo struct {
	users     map[string]*model.User // keyed by username
	nextID    int64
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:  make(map[string]*model.User),
		nextID: 1,
	}
}

func (m *mockUserRepo) CreateUser(user *model.User) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
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
