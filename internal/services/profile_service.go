package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/repositories"
)

// ProfileService 用户档案查询与更新
type ProfileService struct {
	profileRepo *repositories.ProfileRepository
}

func NewProfileService(profileRepo *repositories.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// GetProfile 获取完整档案（本人）
func (s *ProfileService) GetProfile(userID string) (*ProfileDTO, error) {
	profile, err := s.profileRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return toProfileDTO(profile), nil
}

// PublicProfileDTO 对他人可见的档案子集，不含联系方式
type PublicProfileDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	TrustScore  int    `json:"trust_score"`
	TrustLevel  int    `json:"trust_level"`
	IsVerified  bool   `json:"is_verified"`
}

// GetPublicProfile 获取公开档案
func (s *ProfileService) GetPublicProfile(userID string) (*PublicProfileDTO, error) {
	profile, err := s.profileRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &PublicProfileDTO{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		TrustScore:  profile.TrustScore,
		TrustLevel:  profile.TrustLevel,
		IsVerified:  profile.IsVerified,
	}, nil
}

// UpdateProfileRequest 档案更新请求，只开放少数字段
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// UpdateProfile 更新档案
func (s *ProfileService) UpdateProfile(userID string, req *UpdateProfileRequest) (*ProfileDTO, error) {
	fields := map[string]any{}
	if req.DisplayName != "" {
		fields["display_name"] = req.DisplayName
	}
	if req.AvatarURL != "" {
		fields["avatar_url"] = req.AvatarURL
	}
	if req.Phone != "" {
		fields["phone"] = req.Phone
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if len(fields) > 0 {
		if err := s.profileRepo.UpdateFields(userID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(userID)
}
