package model

import (
	"database/sql"
	"time"
)

// User represents a user in the system. Accounts are created either by local
// registration, by the employee sync job (username = 员工工号) or by WeChat
// Work login (keyed by WechatUserID).
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // Not exposed in API responses
	Credits      int            `json:"credits"`

	// 企业微信档案字段，仅通过企微登录路径写入
	WechatUserID     sql.NullString `json:"wechatUserId,omitempty"`
	WechatName       sql.NullString `json:"wechatName,omitempty"`
	WechatMobile     sql.NullString `json:"wechatMobile,omitempty"`
	WechatAvatar     sql.NullString `json:"wechatAvatar,omitempty"`
	WechatDepartment sql.NullString `json:"wechatDepartment,omitempty"` // 逗号拼接的部门ID列表
	WechatPosition   sql.NullString `json:"wechatPosition,omitempty"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultCredits is the starting credit grant assigned once on creation.
// Update paths never rewrite the balance.
const DefaultCredits = 100

// PublicUser is the wire shape returned by login/auth endpoints.
type PublicUser struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Credits          int    `json:"credits"`
	WechatName       string `json:"wechatName,omitempty"`
	WechatAvatar     string `json:"wechatAvatar,omitempty"`
	WechatDepartment string `json:"wechatDepartment,omitempty"`
	WechatPosition   string `json:"wechatPosition,omitempty"`
}

// Public strips credential material from a user record.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Credits:          u.Credits,
		WechatName:       u.WechatName.String,
		WechatAvatar:     u.WechatAvatar.String,
		WechatDepartment: u.WechatDepartment.String,
		WechatPosition:   u.WechatPosition.String,
	}
}
