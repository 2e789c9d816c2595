package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

// ErrMemberAlreadyPaid 成员付款状态已不是 pending
var ErrMemberAlreadyPaid = errors.New("成员已标记付款")

// TransactionRepository 交易流水仓储。流水是追加式账本，
// 只允许改 status，不允许改金额。
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 写入一条流水
func (r *TransactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// RecordPayment 同一事务内写入付款流水并把成员标记为已付款
// 实现逻辑：先条件更新 group_members（status=approved 且
// payment_status=pending 才生效），RowsAffected=0 说明重复付款，
// 整个事务回滚，不会留下孤立的 completed 流水
func (r *TransactionRepository) RecordPayment(tx *models.Transaction) error {
	return r.db.Transaction(func(dbtx *gorm.DB) error {
		res := dbtx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND status = ? AND payment_status = ?",
				tx.GroupID, tx.UserID, models.MemberStatusApproved, models.PaymentStatusPending).
			Update("payment_status", models.PaymentStatusPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberAlreadyPaid
		}
		return dbtx.Create(tx).Error
	})
}

// GetByID 根据 ID 获取流水
func (r *TransactionRepository) GetByID(id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListByUser 列出用户的流水
func (r *TransactionRepository) ListByUser(userID string, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&txs).Error
	return txs, err
}

// ListByGroup 列出拼团的流水
func (r *TransactionRepository) ListByGroup(groupID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("group_id = ?", groupID).Order("created_at DESC").Find(&txs).Error
	return txs, err
}

// UpdateStatus 更新流水状态
func (r *TransactionRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).
		Update("status", status).Error
}

// GetCompletedPayment 查找用户在拼团内已完成的付款流水
func (r *TransactionRepository) GetCompletedPayment(groupID, userID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("group_id = ? AND user_id = ? AND type = ? AND status = ?",
		groupID, userID, models.TxTypePayment, models.TxStatusCompleted).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
