package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
)

var (
	ErrUnknownTrustEvent = errors.New("未知的信任分事件类型")
	ErrUserNotFound      = errors.New("用户不存在")
)

// TrustService 信任分账本
type TrustService struct {
	trustRepo   *repositories.TrustRepository
	profileRepo *repositories.ProfileRepository
}

func NewTrustService(trustRepo *repositories.TrustRepository, profileRepo *repositories.ProfileRepository) *TrustService {
	return &TrustService{
		trustRepo:   trustRepo,
		profileRepo: profileRepo,
	}
}

// TrustEventDTO 信任分事件
type TrustEventDTO struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	Reason      string `json:"reason"`
	ScoreChange int    `json:"score_change"`
	CreatedAt   int64  `json:"created_at"`
}

// TrustSummaryResponse 信任分概要
type TrustSummaryResponse struct {
	UserID     string          `json:"user_id"`
	TrustScore int             `json:"trust_score"`
	TrustLevel int             `json:"trust_level"`
	Events     []TrustEventDTO `json:"events"`
}

// Record 记录信任分事件并返回更新后的档案
// 分值取事件类型的标准增量，账本与物化分数在仓储层同一事务写入
func (s *TrustService) Record(userID, eventType, reason, refType, refID string) (*models.Profile, error) {
	delta := models.DefaultScoreChange(eventType)
	if delta == 0 {
		return nil, ErrUnknownTrustEvent
	}

	event := &models.TrustEvent{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventType:     eventType,
		Reason:        reason,
		ScoreChange:   delta,
		ReferenceType: refType,
		ReferenceID:   refID,
	}

	profile, err := s.trustRepo.RecordEvent(event)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 分数变了，档案缓存必须失效
	s.profileRepo.InvalidateCache(userID)
	return profile, nil
}

// Recompute 从账本重算分数并回写档案，用于人工对账
func (s *TrustService) Recompute(userID string) (*TrustSummaryResponse, error) {
	if _, err := s.profileRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	score, err := s.trustRepo.SumScore(userID)
	if err != nil {
		return nil, err
	}
	if score < 0 {
		score = 0
	}

	if err := s.profileRepo.UpdateFields(userID, map[string]any{
		"trust_score": score,
		"trust_level": models.TrustLevelForScore(score),
	}); err != nil {
		return nil, err
	}
	s.profileRepo.InvalidateCache(userID)

	return s.GetSummary(userID, 20, 0)
}

// GetSummary 获取用户信任分与最近事件
func (s *TrustService) GetSummary(userID string, limit, offset int) (*TrustSummaryResponse, error) {
	profile, err := s.profileRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	events, err := s.trustRepo.ListEvents(userID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &TrustSummaryResponse{
		UserID:     profile.ID,
		TrustScore: profile.TrustScore,
		TrustLevel: profile.TrustLevel,
		Events:     make([]TrustEventDTO, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, TrustEventDTO{
			ID:          e.ID,
			EventType:   e.EventType,
			Reason:      e.Reason,
			ScoreChange: e.ScoreChange,
			CreatedAt:   e.CreatedAt.Unix(),
		})
	}
	return resp, nil
}
