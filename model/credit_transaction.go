package model

import "time"

// 积分流水类型
const (
	CreditTxInitialGrant = "initial_grant"
	CreditTxAdminAdjust  = "admin_adjust"
)

// CreditTransaction 积分流水记录
// 通过 GORM 管理（见 db.AutoMigrateModels），与手写SQL的 users 表并存
type CreditTransaction struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	Amount    int       `json:"amount" gorm:"not null"`
	Type      string    `json:"type" gorm:"size:32;not null"`
	Remark    string    `json:"remark" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
