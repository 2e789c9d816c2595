package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
)

var (
	ErrAlreadyPaid         = errors.New("已经支付过该拼团")
	ErrEscrowNotFunded     = errors.New("托管资金未满足释放条件")
	ErrEscrowAlreadyClosed = errors.New("托管已释放或退款")
	ErrGroupStillActive    = errors.New("拼团仍在进行中，不能退款")
	ErrInvalidPaymentData  = errors.New("支付参数无效")
)

// PaymentService 记录支付流水并推进托管状态
// 平台不碰真实资金，托管状态只是对链下支付（PromptPay 转账等）的记账
type PaymentService struct {
	txRepo       *repositories.TransactionRepository
	groupRepo    *repositories.GroupRepository
	trustService *TrustService
	logger       *zap.Logger
}

func NewPaymentService(
	txRepo *repositories.TransactionRepository,
	groupRepo *repositories.GroupRepository,
	trustService *TrustService,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		txRepo:       txRepo,
		groupRepo:    groupRepo,
		trustService: trustService,
		logger:       logger,
	}
}

// PayRequest 支付上报请求
type PayRequest struct {
	PaymentMethod    string `json:"payment_method" binding:"required"`
	PaymentReference string `json:"payment_reference"`
}

// TransactionResponse 流水响应
type TransactionResponse struct {
	ID               string     `json:"id"`
	GroupID          string     `json:"group_id"`
	UserID           string     `json:"user_id"`
	Type             string     `json:"type"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func toTransactionResponse(tx *models.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:               tx.ID,
		GroupID:          tx.GroupID,
		UserID:           tx.UserID,
		Type:             tx.Type,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		PaymentMethod:    tx.PaymentMethod,
		PaymentReference: tx.PaymentReference,
		Status:           tx.Status,
		CreatedAt:        tx.CreatedAt,
		CompletedAt:      tx.CompletedAt,
	}
}

// Pay 成员上报已按人均价支付
// 落一条 completed 的 payment 流水，标记成员已付款；
// 若满员且所有成员都已付款，托管状态推进为 funded
func (s *PaymentService) Pay(userID, groupID string, req *PayRequest) (*TransactionResponse, error) {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.Status != models.GroupStatusActive {
		return nil, ErrGroupNotActive
	}

	member, err := s.groupRepo.GetMember(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotApprovedMember
		}
		return nil, err
	}
	if member.Status != models.MemberStatusApproved {
		return nil, ErrNotApprovedMember
	}
	if member.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:               uuid.NewString(),
		GroupID:          groupID,
		UserID:           userID,
		Type:             models.TxTypePayment,
		Amount:           group.PricePerPerson,
		Currency:         group.Currency,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Status:           models.TxStatusCompleted,
		CompletedAt:      &now,
	}
	// 流水与成员状态同一事务落库，条件更新兜底并发重复付款
	if err := s.txRepo.RecordPayment(tx); err != nil {
		if errors.Is(err, repositories.ErrMemberAlreadyPaid) {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}

	if _, err := s.trustService.Record(userID, models.TrustEventPaymentCompleted,
		"Payment for group "+group.Title, "transaction", tx.ID); err != nil {
		s.logger.Warn("记录支付信任分失败", zap.String("tx_id", tx.ID), zap.Error(err))
	}

	s.advanceEscrowIfFunded(group)

	return toTransactionResponse(tx), nil
}

// advanceEscrowIfFunded 满员且全员已付款时把托管状态推进为 funded
func (s *PaymentService) advanceEscrowIfFunded(group *models.SharingGroup) {
	if group.EscrowStatus != models.EscrowStatusPending {
		return
	}

	fresh, err := s.groupRepo.GetGroupByID(group.ID)
	if err != nil {
		s.logger.Warn("检查托管状态时读取拼团失败",
			zap.String("group_id", group.ID), zap.Error(err))
		return
	}
	if fresh.CurrentMembers < fresh.MaxMembers {
		return
	}

	members, err := s.groupRepo.ListApprovedMembers(group.ID)
	if err != nil {
		s.logger.Warn("检查托管状态时读取成员失败",
			zap.String("group_id", group.ID), zap.Error(err))
		return
	}
	for _, m := range members {
		if m.PaymentStatus != models.PaymentStatusPaid {
			return
		}
	}

	if err := s.groupRepo.UpdateEscrowStatus(group.ID, models.EscrowStatusFunded); err != nil {
		s.logger.Error("推进托管状态失败", zap.String("group_id", group.ID), zap.Error(err))
		return
	}
	s.logger.Info("拼团托管已集齐", zap.String("group_id", group.ID))
}

// ReleaseEscrow 创建者在托管 funded 后发起释放
// 落一条 escrow_release 流水，金额为全部成员缴纳之和
func (s *PaymentService) ReleaseEscrow(creatorID, groupID string) (*TransactionResponse, error) {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.CreatorID != creatorID {
		return nil, ErrNotGroupCreator
	}
	if group.EscrowStatus == models.EscrowStatusReleased ||
		group.EscrowStatus == models.EscrowStatusRefunded {
		return nil, ErrEscrowAlreadyClosed
	}
	if group.EscrowStatus != models.EscrowStatusFunded {
		return nil, ErrEscrowNotFunded
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		UserID:      creatorID,
		Type:        models.TxTypeEscrowRelease,
		Amount:      group.PricePerPerson * float64(group.CurrentMembers),
		Currency:    group.Currency,
		Status:      models.TxStatusCompleted,
		CompletedAt: &now,
	}
	if err := s.txRepo.Create(tx); err != nil {
		return nil, err
	}

	if err := s.groupRepo.UpdateEscrowStatus(groupID, models.EscrowStatusReleased); err != nil {
		return nil, err
	}

	return toTransactionResponse(tx), nil
}

// RefundGroup 拼团取消/过期后为已付款成员记退款流水
func (s *PaymentService) RefundGroup(creatorID, groupID string) ([]*TransactionResponse, error) {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.CreatorID != creatorID {
		return nil, ErrNotGroupCreator
	}
	if group.Status == models.GroupStatusActive {
		return nil, ErrGroupStillActive
	}
	if group.EscrowStatus == models.EscrowStatusReleased ||
		group.EscrowStatus == models.EscrowStatusRefunded {
		return nil, ErrEscrowAlreadyClosed
	}

	members, err := s.groupRepo.ListApprovedMembers(groupID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refunds := make([]*TransactionResponse, 0)
	for _, m := range members {
		if m.PaymentStatus != models.PaymentStatusPaid {
			continue
		}

		tx := &models.Transaction{
			ID:          uuid.NewString(),
			GroupID:     groupID,
			UserID:      m.UserID,
			Type:        models.TxTypeRefund,
			Amount:      group.PricePerPerson,
			Currency:    group.Currency,
			Status:      models.TxStatusCompleted,
			CompletedAt: &now,
		}
		if err := s.txRepo.Create(tx); err != nil {
			s.logger.Error("写退款流水失败",
				zap.String("group_id", groupID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
			continue
		}
		if err := s.groupRepo.UpdateMemberPaymentStatus(groupID, m.UserID,
			models.PaymentStatusRefunded); err != nil {
			s.logger.Error("更新成员退款状态失败",
				zap.String("group_id", groupID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
		}
		refunds = append(refunds, toTransactionResponse(tx))
	}

	if err := s.groupRepo.UpdateEscrowStatus(groupID, models.EscrowStatusRefunded); err != nil {
		return nil, err
	}
	return refunds, nil
}

// ListMyTransactions 列出用户的流水
func (s *PaymentService) ListMyTransactions(userID string, limit, offset int) ([]*TransactionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, err := s.txRepo.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, toTransactionResponse(&txs[i]))
	}
	return out, nil
}

// ListGroupTransactions 创建者查看拼团流水
func (s *PaymentService) ListGroupTransactions(requesterID, groupID string) ([]*TransactionResponse, error) {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.CreatorID != requesterID {
		return nil, ErrNotGroupCreator
	}

	txs, err := s.txRepo.ListByGroup(groupID)
	if err != nil {
		return nil, err
	}
	out := make([]*TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, toTransactionResponse(&txs[i]))
	}
	return out, nil
}
