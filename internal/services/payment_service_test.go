package services

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
	"github.com/sharetrust/sharetrust/internal/storage"
)

// 需要真实 PostgreSQL：
// SHARETRUST_TEST_POSTGRES_DSN="host=127.0.0.1 port=5432 user=... dbname=... sslmode=disable" go test ./internal/services/
func newPaymentTestEnv(t *testing.T) (*PaymentService, *repositories.GroupRepository, *gorm.DB) {
	t.Helper()
	dsn := os.Getenv("SHARETRUST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skipf("SHARETRUST_TEST_POSTGRES_DSN 未设置，跳过需要 PostgreSQL 的测试")
	}
	db, err := storage.InitPostgres(dsn, 2, 10)
	if err != nil {
		t.Skipf("连接 PostgreSQL 失败: %v", err)
	}

	txRepo := repositories.NewTransactionRepository(db)
	groupRepo := repositories.NewGroupRepository(db, nil)
	profileRepo := repositories.NewProfileRepository(db, nil)
	trustRepo := repositories.NewTrustRepository(db)
	trustService := NewTrustService(trustRepo, profileRepo)
	svc := NewPaymentService(txRepo, groupRepo, trustService, zap.NewNop())
	return svc, groupRepo, db
}

// seedPaidableGroup 建一个 active 拼团，创建者为已审批、未付款成员
func seedPaidableGroup(t *testing.T, db *gorm.DB, groupRepo *repositories.GroupRepository) (creatorID, groupID string) {
	t.Helper()

	creatorID = uuid.NewString()
	require.NoError(t, db.Create(&models.Profile{
		ID:          creatorID,
		LineUserID:  "U" + uuid.NewString(),
		DisplayName: "payer",
	}).Error)

	categoryID := uuid.NewString()
	require.NoError(t, db.Create(&models.Category{
		ID:       categoryID,
		Name:     "cat-" + uuid.NewString(),
		IsActive: true,
	}).Error)

	group := &models.SharingGroup{
		ID:             uuid.NewString(),
		Title:          "Netflix family",
		CategoryID:     categoryID,
		CreatorID:      creatorID,
		MaxMembers:     2,
		CurrentMembers: 1,
		PricePerPerson: 99,
		Currency:       "THB",
		BillingCycle:   "monthly",
		Status:         models.GroupStatusActive,
		EscrowStatus:   models.EscrowStatusPending,
	}
	member := &models.GroupMember{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		UserID:        creatorID,
		Status:        models.MemberStatusApproved,
		PaymentStatus: models.PaymentStatusPending,
		JoinedAt:      time.Now(),
	}
	require.NoError(t, groupRepo.CreateGroup(group, member))
	return creatorID, group.ID
}

func countPayments(t *testing.T, db *gorm.DB, groupID, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("group_id = ? AND user_id = ? AND type = ?",
			groupID, userID, models.TxTypePayment).
		Count(&n).Error)
	return n
}

func TestPay_LedgerAndMemberStatusStayConsistent(t *testing.T) {
	svc, groupRepo, db := newPaymentTestEnv(t)
	creatorID, groupID := seedPaidableGroup(t, db, groupRepo)

	resp, err := svc.Pay(creatorID, groupID, &PayRequest{PaymentMethod: "promptpay"})
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusCompleted, resp.Status)

	member, err := groupRepo.GetMember(groupID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, member.PaymentStatus)
	assert.EqualValues(t, 1, countPayments(t, db, groupID, creatorID))

	// 未满员，托管不应推进
	var g models.SharingGroup
	require.NoError(t, db.First(&g, "id = ?", groupID).Error)
	assert.Equal(t, models.EscrowStatusPending, g.EscrowStatus)
}

// 支付成功后的重试必须拿到 ErrAlreadyPaid，账本不能多出第二条付款流水
func TestPay_RetryAfterSuccessDoesNotDuplicateLedger(t *testing.T) {
	svc, groupRepo, db := newPaymentTestEnv(t)
	creatorID, groupID := seedPaidableGroup(t, db, groupRepo)

	_, err := svc.Pay(creatorID, groupID, &PayRequest{PaymentMethod: "promptpay"})
	require.NoError(t, err)

	_, err = svc.Pay(creatorID, groupID, &PayRequest{PaymentMethod: "promptpay"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.EqualValues(t, 1, countPayments(t, db, groupID, creatorID))
}
