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
	ErrInvalidVerifyType     = errors.New("不支持的验证类型")
	ErrVerificationPending   = errors.New("已有待审核的同类型申请")
	ErrAlreadyVerified       = errors.New("该类型已通过验证")
	ErrVerificationNotFound  = errors.New("验证申请不存在")
	ErrVerificationReviewed  = errors.New("验证申请已被处理")
	ErrInvalidReviewDecision = errors.New("审核结论无效")
)

// VerificationService 实名/联系方式验证
type VerificationService struct {
	verificationRepo *repositories.VerificationRepository
	profileRepo      *repositories.ProfileRepository
	trustService     *TrustService
	logger           *zap.Logger
}

func NewVerificationService(
	verificationRepo *repositories.VerificationRepository,
	profileRepo *repositories.ProfileRepository,
	trustService *TrustService,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		verificationRepo: verificationRepo,
		profileRepo:      profileRepo,
		trustService:     trustService,
		logger:           logger,
	}
}

// SubmitVerificationRequest 提交验证请求
type SubmitVerificationRequest struct {
	Type string `json:"type" binding:"required"`
	Data string `json:"data" binding:"required"`
}

// VerificationResponse 验证申请响应
type VerificationResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

func toVerificationResponse(v *models.Verification) *VerificationResponse {
	return &VerificationResponse{
		ID:         v.ID,
		UserID:     v.UserID,
		Type:       v.Type,
		Status:     v.Status,
		CreatedAt:  v.CreatedAt,
		VerifiedAt: v.VerifiedAt,
	}
}

func isValidVerifyType(t string) bool {
	switch t {
	case models.VerificationTypePhone, models.VerificationTypeIDCard, models.VerificationTypePromptPay:
		return true
	}
	return false
}

// Submit 提交验证申请
func (s *VerificationService) Submit(userID string, req *SubmitVerificationRequest) (*VerificationResponse, error) {
	if !isValidVerifyType(req.Type) {
		return nil, ErrInvalidVerifyType
	}

	if ok, err := s.verificationRepo.HasApproved(userID, req.Type); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyVerified
	}
	if ok, err := s.verificationRepo.HasPending(userID, req.Type); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrVerificationPending
	}

	v := &models.Verification{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   req.Type,
		Data:   req.Data,
		Status: models.VerificationStatusPending,
	}
	if err := s.verificationRepo.Create(v); err != nil {
		return nil, err
	}
	return toVerificationResponse(v), nil
}

// ListMine 列出用户的验证申请
func (s *VerificationService) ListMine(userID string) ([]*VerificationResponse, error) {
	vs, err := s.verificationRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]*VerificationResponse, 0, len(vs))
	for i := range vs {
		out = append(out, toVerificationResponse(&vs[i]))
	}
	return out, nil
}

// ListPending 管理端列出待审核申请
func (s *VerificationService) ListPending(limit, offset int) ([]*VerificationResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	vs, err := s.verificationRepo.ListPending(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*VerificationResponse, 0, len(vs))
	for i := range vs {
		out = append(out, toVerificationResponse(&vs[i]))
	}
	return out, nil
}

// ReviewRequest 审核请求
type ReviewRequest struct {
	Approve bool `json:"approve"`
}

// Review 管理员审核验证申请
// 通过后发放对应的信任分，phone/id_card 任一通过即标记档案已认证
func (s *VerificationService) Review(reviewerID, verificationID string, req *ReviewRequest) (*VerificationResponse, error) {
	v, err := s.verificationRepo.GetByID(verificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	if v.Status != models.VerificationStatusPending {
		return nil, ErrVerificationReviewed
	}

	status := models.VerificationStatusRejected
	if req.Approve {
		status = models.VerificationStatusApproved
	}

	now := time.Now()
	if err := s.verificationRepo.Review(verificationID, status, reviewerID, now); err != nil {
		return nil, err
	}
	v.Status = status
	v.VerifiedBy = reviewerID
	v.VerifiedAt = &now

	if !req.Approve {
		return toVerificationResponse(v), nil
	}

	var eventType string
	switch v.Type {
	case models.VerificationTypePhone:
		eventType = models.TrustEventPhoneVerified
	case models.VerificationTypeIDCard:
		eventType = models.TrustEventIDVerified
	}
	if eventType != "" {
		if _, err := s.trustService.Record(v.UserID, eventType,
			"Verification approved: "+v.Type, "verification", v.ID); err != nil {
			s.logger.Warn("记录验证信任分失败",
				zap.String("verification_id", v.ID), zap.Error(err))
		}
	}

	if v.Type == models.VerificationTypePhone || v.Type == models.VerificationTypeIDCard {
		if err := s.profileRepo.SetVerified(v.UserID); err != nil {
			s.logger.Warn("标记档案已认证失败",
				zap.String("user_id", v.UserID), zap.Error(err))
		}
	}

	return toVerificationResponse(v), nil
}
