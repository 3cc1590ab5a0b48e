package wechat

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"ComfyPortal/core/auth"
	"ComfyPortal/logger"
	"ComfyPortal/model"
	"ComfyPortal/repository"
)

// 企微账号不走本地密码登录，密码位用固定占位符的哈希填充
const placeholderPassword = "wechat_user"

// Bridge maps a resolved WeChat Work identity onto a local user record,
// keyed by wechat_userid. Two-branch create-or-update; no other states.
type Bridge struct {
	users     repository.UserRepository
	creditTxs repository.CreditTransactionRepository // may be nil
}

// NewBridge 创建身份映射
func NewBridge(users repository.UserRepository, creditTxs repository.CreditTransactionRepository) *Bridge {
	return &Bridge{users: users, creditTxs: creditTxs}
}

// ResolveUser finds the local user for a WeChat Work identity, creating one
// on first sight. Updates touch only the profile fields; username, email,
// credits and password stay as they are.
func (b *Bridge) ResolveUser(detail *UserDetail) (*model.User, error) {
	user, err := b.users.GetUserByWechatUserID(detail.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by wechat_userid %s: %w", detail.UserID, err)
	}

	if user != nil {
		return b.updateProfile(user, detail)
	}
	return b.createUser(detail)
}

func (b *Bridge) updateProfile(user *model.User, detail *UserDetail) (*model.User, error) {
	applyProfile(user, detail)
	if err := b.users.UpdateWechatProfile(user.ID, user); err != nil {
		return nil, fmt.Errorf("failed to update wechat profile for user %d: %w", user.ID, err)
	}

	logger.Info("更新企微用户信息", logger.String("username", user.Username))
	return user, nil
}

func (b *Bridge) createUser(detail *UserDetail) (*model.User, error) {
	username := b.deriveUsername(detail)

	email := detail.Email
	if email == "" {
		email = fmt.Sprintf("%s@company.com", detail.UserID)
	}

	hashedPassword, err := auth.HashPassword(placeholderPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Credits:      model.DefaultCredits,
		IsActive:     true,
	}
	applyProfile(user, detail)

	userID, err := b.users.CreateUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create wechat user %s: %w", detail.UserID, err)
	}
	user.ID = userID

	if b.creditTxs != nil {
		err := b.creditTxs.Record(&model.CreditTransaction{
			UserID: userID,
			Amount: model.DefaultCredits,
			Type:   model.CreditTxInitialGrant,
			Remark: "企微登录新建账号",
		})
		if err != nil {
			logger.Warn("记录初始积分流水失败", logger.Int64("userID", userID), logger.ErrorField(err))
		}
	}

	logger.Info("创建新企微用户", logger.String("username", username))
	return user, nil
}

// deriveUsername prefers the human-readable name and falls back to
// user_<userid>. A name already taken by an unrelated local account is
// flagged and the fallback is used instead; identities are never merged.
func (b *Bridge) deriveUsername(detail *UserDetail) string {
	fallback := "user_" + detail.UserID
	if detail.Name == "" {
		return fallback
	}

	existing, err := b.users.GetUserByUsername(detail.Name)
	if err != nil {
		logger.Warn("检查用户名冲突失败", logger.String("name", detail.Name), logger.ErrorField(err))
		return fallback
	}
	if existing != nil {
		logger.Warn("企微用户名与已有本地账号冲突，改用默认用户名",
			logger.String("name", detail.Name),
			logger.String("wechatUserId", detail.UserID),
			logger.Int64("conflictUserID", existing.ID))
		return fallback
	}
	return detail.Name
}

func applyProfile(user *model.User, detail *UserDetail) {
	user.WechatUserID = nullString(detail.UserID)
	user.WechatName = nullString(detail.Name)
	user.WechatMobile = nullString(detail.Mobile)
	user.WechatAvatar = nullString(detail.Avatar)
	user.WechatDepartment = nullString(flattenDepartments(detail.Department))
	user.WechatPosition = nullString(detail.Position)
}

// flattenDepartments joins the department id list into one comma-delimited
// string, matching how the profile column stores it.
func flattenDepartments(departments []int) string {
	if len(departments) == 0 {
		return ""
	}
	parts := make([]string, len(departments))
	for i, d := range departments {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
