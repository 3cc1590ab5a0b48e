package sync

import (
	"context"
	"fmt"
	"time"

	"ComfyPortal/cache"
	"ComfyPortal/core/auth"
	"ComfyPortal/db"
	"ComfyPortal/logger"
	"ComfyPortal/model"
	"ComfyPortal/repository"
)

// 员工工号所在的列；邮箱按顺序尝试候选列，都为空时合成默认值
const codeColumn = "code"

var emailCandidates = []string{"email", "mail"}

// SyncResult aggregates the outcome of one sync run. Row-level failures are
// counted here instead of aborting the batch.
type SyncResult struct {
	SuccessCount int `json:"successCount"`
	ErrorCount   int `json:"errorCount"`
	SkipCount    int `json:"skipCount"`
	TotalCount   int `json:"totalCount"`
}

// SyncStats is the operational stats view: user total plus last completed run.
type SyncStats struct {
	TotalUsers   int64      `json:"totalUsers"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// LoginResult is the outcome of a credential validation.
type LoginResult struct {
	Success bool
	Message string
	User    *model.User
}

// Reconciler merges external employee records into the local user store and
// validates enterprise logins against it. Configuration is passed explicitly
// at construction so tests can run isolated instances.
type Reconciler struct {
	openSource      SourceOpener
	users           repository.UserRepository
	creditTxs       repository.CreditTransactionRepository // may be nil
	defaultPassword string
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	openSource SourceOpener,
	users repository.UserRepository,
	creditTxs repository.CreditTransactionRepository,
	defaultPassword string,
) *Reconciler {
	return &Reconciler{
		openSource:      openSource,
		users:           users,
		creditTxs:       creditTxs,
		defaultPassword: defaultPassword,
	}
}

// SyncAll reads every row from the external source and applies
// create-or-update semantics keyed by username (= employee code).
// A failure to acquire the source aborts the run; everything after that is
// row-scoped. The source connection is released on every exit path.
func (r *Reconciler) SyncAll(ctx context.Context) (*SyncResult, error) {
	source, err := r.openSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to external source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			logger.Warn("关闭外部数据库连接失败", logger.ErrorField(cerr))
		} else {
			logger.Info("外部数据库连接已关闭")
		}
	}()

	logger.Info("开始同步用户数据...")

	rows, err := source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch external users: %w", err)
	}
	if len(rows) == 0 {
		logger.Warn("外部用户表为空或查询结果为空")
	}

	result := &SyncResult{TotalCount: len(rows)}
	for _, row := range rows {
		code := row[codeColumn]
		if code == "" {
			logger.Warn("跳过用户：未找到code字段", logger.Any("row", row))
			result.SkipCount++
			continue
		}

		if err := r.syncRow(code, row); err != nil {
			logger.Error("同步用户失败", logger.String("code", code), logger.ErrorField(err))
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	if db.RedisClient != nil {
		if err := cache.SetLastSyncTime(ctx, time.Now()); err != nil {
			logger.Warn("记录同步完成时间失败", logger.ErrorField(err))
		}
	}

	logger.Info("同步完成",
		logger.Int("success", result.SuccessCount),
		logger.Int("error", result.ErrorCount),
		logger.Int("skip", result.SkipCount),
		logger.Int("total", result.TotalCount))
	return result, nil
}

// syncRow applies one external record: update the email of an existing user,
// or create a new account with the default password and starting credits.
func (r *Reconciler) syncRow(code string, row Row) error {
	existing, err := r.users.GetUserByUsername(code)
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", code, err)
	}

	email := resolveEmail(row, code)

	if existing != nil {
		// 更新现有用户信息，不触碰密码和积分
		if err := r.users.UpdateEmail(existing.ID, email); err != nil {
			return fmt.Errorf("failed to update user %s: %w", code, err)
		}
		logger.Debug("更新用户", logger.String("username", code))
		return nil
	}

	// 创建新用户，使用默认密码
	hashedPassword, err := auth.HashPassword(r.defaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash default password for %s: %w", code, err)
	}

	userID, err := r.users.CreateUser(&model.User{
		Username:     code,
		Email:        email,
		PasswordHash: hashedPassword,
		Credits:      model.DefaultCredits,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", code, err)
	}

	r.recordInitialGrant(userID, "员工同步新建账号")
	logger.Debug("创建新用户", logger.String("username", code))
	return nil
}

// resolveEmail tries the candidate source columns in order and falls back to
// a synthesized address. The ordering is observable behavior; do not reorder.
func resolveEmail(row Row, username string) string {
	for _, col := range emailCandidates {
		if v := row[col]; v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s@company.com", username)
}

func (r *Reconciler) recordInitialGrant(userID int64, remark string) {
	if r.creditTxs == nil {
		return
	}
	err := r.creditTxs.Record(&model.CreditTransaction{
		UserID: userID,
		Amount: model.DefaultCredits,
		Type:   model.CreditTxInitialGrant,
		Remark: remark,
	})
	if err != nil {
		// 流水是辅助记录，不因此判定该行同步失败
		logger.Warn("记录初始积分流水失败", logger.Int64("userID", userID), logger.ErrorField(err))
	}
}

// ValidateLogin checks a username/plaintext-password pair against the local
// store. Pure read-and-compare; no lockout, no side effects.
func (r *Reconciler) ValidateLogin(username, password string) (*LoginResult, error) {
	user, err := r.users.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	if user == nil {
		return &LoginResult{Success: false, Message: "用户不存在"}, nil
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return &LoginResult{Success: false, Message: "密码错误"}, nil
	}

	return &LoginResult{Success: true, User: user}, nil
}

// FindUserByUsername exposes a lookup for the existence-probe endpoint.
func (r *Reconciler) FindUserByUsername(username string) (*model.User, error) {
	return r.users.GetUserByUsername(username)
}

// ResetPassword rehashes the default password for one user. This is the
// explicit administrative reset; no other update path touches password_hash.
func (r *Reconciler) ResetPassword(username string) error {
	hashedPassword, err := auth.HashPassword(r.defaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}
	return r.users.ResetPassword(username, hashedPassword)
}

// Stats returns the total user count and the last completed sync time.
func (r *Reconciler) Stats(ctx context.Context) (*SyncStats, error) {
	total, err := r.users.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats := &SyncStats{TotalUsers: total}
	if db.RedisClient != nil {
		last, err := cache.GetLastSyncTime(ctx)
		if err != nil {
			logger.Warn("读取同步时间失败", logger.ErrorField(err))
		} else if !last.IsZero() {
			stats.LastSyncTime = &last
		}
	}
	return stats, nil
}
