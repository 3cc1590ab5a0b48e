package repository

import (
	"fmt"

	"ComfyPortal/model"

	"gorm.io/gorm"
)

// CreditTransactionRepository 积分流水数据操作
type CreditTransactionRepository interface {
	Record(tx *model.CreditTransaction) error
	ListByUser(userID int64, limit int) ([]model.CreditTransaction, error)
}

type gormCreditTransactionRepository struct {
	db *gorm.DB
}

// NewGormCreditTransactionRepository creates a GORM-backed transaction repository.
func NewGormCreditTransactionRepository(db *gorm.DB) CreditTransactionRepository {
	return &gormCreditTransactionRepository{db: db}
}

// Record 写入一条积分流水
func (r *gormCreditTransactionRepository) Record(tx *model.CreditTransaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}
	return nil
}

// ListByUser 按时间倒序返回用户的积分流水
func (r *gormCreditTransactionRepository) ListByUser(userID int64, limit int) ([]model.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var txs []model.CreditTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions for user %d: %w", userID, err)
	}
	return txs, nil
}
