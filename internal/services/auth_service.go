package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/line"
	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
	"github.com/sharetrust/sharetrust/pkg/bloom"
	"github.com/sharetrust/sharetrust/pkg/jwt"
	"github.com/sharetrust/sharetrust/pkg/utils"
)

var (
	ErrCodeReplayed        = errors.New("授权码已被使用")
	ErrLineAuthFailed      = errors.New("LINE 登录失败")
	ErrInvalidRefreshToken = errors.New("refresh token 无效")
	ErrSessionEnded        = errors.New("会话已结束")
	ErrSessionExpired      = errors.New("会话已过期")
	ErrProfileNotFound     = errors.New("用户档案不存在")
)

const (
	// 占位邮箱域，LINE 不一定返回邮箱
	placeholderEmailDomain = "line.users.sharetrust"

	usedCodeKeyPrefix = "line:code:" // Redis SETNX, 跨实例的授权码防重放
	usedCodeTTL       = 10 * time.Minute

	refreshTokenTTL    = 30 * 24 * time.Hour
	refreshSecretBytes = 32
)

// LineAuthClient LINE OAuth 交互的抽象，便于测试替换
type LineAuthClient interface {
	ExchangeCode(ctx context.Context, code string) (*line.TokenResponse, error)
	VerifyIDToken(ctx context.Context, idToken string) (*line.IDTokenClaims, error)
	GetProfile(ctx context.Context, accessToken string) (*line.Profile, error)
}

// AuthService LINE 登录、会话签发与刷新
type AuthService struct {
	lineClient   LineAuthClient
	profileRepo  *repositories.ProfileRepository
	sessionRepo  *repositories.SessionRepository
	trustService *TrustService
	tokenManager *jwt.TokenManager
	redis        *redis.Client
	codeFilter   *bloom.Filter
	logger       *zap.Logger
}

func NewAuthService(
	lineClient LineAuthClient,
	profileRepo *repositories.ProfileRepository,
	sessionRepo *repositories.SessionRepository,
	trustService *TrustService,
	tokenManager *jwt.TokenManager,
	redisClient *redis.Client,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		lineClient:   lineClient,
		profileRepo:  profileRepo,
		sessionRepo:  sessionRepo,
		trustService: trustService,
		tokenManager: tokenManager,
		redis:        redisClient,
		// 本地布隆过滤器挡掉绝大多数重放，Redis SETNX 做跨实例裁决
		codeFilter: bloom.New(100000, 0.01),
		logger:     logger,
	}
}

// SignInRequest LINE 登录请求
type SignInRequest struct {
	Code string `json:"code" binding:"required"`
	// State 由前端回传校验，服务端不使用
	State string `json:"state"`
}

// SignInResponse 登录/刷新响应
type SignInResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *ProfileDTO `json:"user"`
}

// ProfileDTO 档案数据传输对象
type ProfileDTO struct {
	ID          string `json:"id"`
	LineUserID  string `json:"line_user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	TrustScore  int    `json:"trust_score"`
	TrustLevel  int    `json:"trust_level"`
	IsVerified  bool   `json:"is_verified"`
	Role        string `json:"role"`
}

func toProfileDTO(p *models.Profile) *ProfileDTO {
	return &ProfileDTO{
		ID:          p.ID,
		LineUserID:  p.LineUserID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Email:       p.Email,
		Phone:       p.Phone,
		TrustScore:  p.TrustScore,
		TrustLevel:  p.TrustLevel,
		IsVerified:  p.IsVerified,
		Role:        p.Role,
	}
}

// SignIn 用 LINE 授权码完成登录
// 流程：防重放 -> 换令牌 -> 验证 id_token -> 拉取档案 -> 取或建本地档案
// -> 签发 access token + refresh token
func (s *AuthService) SignIn(ctx context.Context, req *SignInRequest) (*SignInResponse, error) {
	if err := s.guardCodeReplay(ctx, req.Code); err != nil {
		return nil, err
	}

	token, err := s.lineClient.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLineAuthFailed, err)
	}

	claims, err := s.lineClient.VerifyIDToken(ctx, token.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLineAuthFailed, err)
	}

	// 档案接口失败不阻断登录，id_token 里的信息已经够用
	displayName := claims.Name
	avatarURL := claims.Picture
	if profile, err := s.lineClient.GetProfile(ctx, token.AccessToken); err == nil {
		displayName = profile.DisplayName
		avatarURL = profile.PictureURL
	} else {
		s.logger.Warn("拉取 LINE 档案失败，使用 id_token 信息", zap.Error(err))
	}

	profile, err := s.resolveProfile(claims.Sub, displayName, avatarURL, claims.Email)
	if err != nil {
		return nil, err
	}

	return s.issueSession(profile)
}

// guardCodeReplay 授权码防重放
// 布隆过滤器是本进程的快速路径；命中后仍以 Redis SETNX 为准，
// 避免误杀布隆假阳性。Redis 不可用时放行（可用性优先）。
func (s *AuthService) guardCodeReplay(ctx context.Context, code string) error {
	seenLocally := s.codeFilter.TestAndAdd([]byte(code))

	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, usedCodeKeyPrefix+code, 1, usedCodeTTL).Result()
		if err != nil {
			s.logger.Warn("授权码防重放检查失败，放行", zap.Error(err))
			return nil
		}
		if !ok {
			return ErrCodeReplayed
		}
		return nil
	}

	if seenLocally {
		return ErrCodeReplayed
	}
	return nil
}

// resolveProfile 按 line_user_id 取档案，不存在则创建
func (s *AuthService) resolveProfile(lineUserID, displayName, avatarURL, email string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByLineUserID(lineUserID)
	if err == nil {
		// 回写最新的显示名和头像
		changed := false
		if displayName != "" && displayName != profile.DisplayName {
			profile.DisplayName = displayName
			changed = true
		}
		if avatarURL != "" && avatarURL != profile.AvatarURL {
			profile.AvatarURL = avatarURL
			changed = true
		}
		if changed {
			if err := s.profileRepo.Update(profile); err != nil {
				s.logger.Warn("回写 LINE 档案信息失败", zap.Error(err))
			}
		}
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if email == "" {
		email = fmt.Sprintf("%s@%s", lineUserID, placeholderEmailDomain)
	}

	profile = &models.Profile{
		ID:          uuid.NewString(),
		LineUserID:  lineUserID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Email:       email,
		TrustScore:  0,
		TrustLevel:  models.TrustLevelNew,
		Role:        "authenticated",
	}
	if err := s.profileRepo.Create(profile); err != nil {
		return nil, err
	}

	// 注册奖励走信任分账本
	if _, err := s.trustService.Record(profile.ID, models.TrustEventProfileCreated,
		"Welcome bonus for new profile", "profile", profile.ID); err != nil {
		s.logger.Warn("记录注册信任分失败", zap.String("user_id", profile.ID), zap.Error(err))
	} else {
		// Record 更新了分数，重读一次保持响应一致
		if fresh, err := s.profileRepo.GetByID(profile.ID); err == nil {
			profile = fresh
		}
	}

	return profile, nil
}

// issueSession 签发 access token 并创建 refresh 会话
// refresh token 形如 {sessionID}.{secret}，库里只存 secret 的 bcrypt 哈希
func (s *AuthService) issueSession(profile *models.Profile) (*SignInResponse, error) {
	accessToken, err := s.tokenManager.GenerateToken(
		profile.ID, profile.LineUserID, profile.DisplayName, profile.AvatarURL, profile.Role)
	if err != nil {
		return nil, err
	}

	secret, err := utils.RandomSecret(refreshSecretBytes)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	session := &models.UserSession{
		ID:         uuid.NewString(),
		UserID:     profile.ID,
		TokenHash:  string(hash),
		LastUsedAt: time.Now(),
		ExpiresAt:  time.Now().Add(refreshTokenTTL),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	return &SignInResponse{
		AccessToken:  accessToken,
		RefreshToken: session.ID + "." + secret,
		ExpiresIn:    int64(s.tokenManager.ExpireDuration().Seconds()),
		User:         toProfileDTO(profile),
	}, nil
}

// RefreshRequest 刷新请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 校验 refresh token 并轮换
// 旧 token 轮换后立即失效，持旧 token 再来视为泄露迹象
func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*SignInResponse, error) {
	sessionID, secret, err := splitRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if session.EndedAt != nil {
		return nil, ErrSessionEnded
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(secret)) != nil {
		s.logger.Warn("refresh token 哈希不匹配，吊销会话",
			zap.String("session_id", session.ID),
			zap.String("user_id", session.UserID),
		)
		// 秘密部分对不上说明 token 可能被盗用，直接吊销整个会话
		_ = s.sessionRepo.End(session.ID)
		return nil, ErrInvalidRefreshToken
	}

	profile, err := s.profileRepo.GetByID(session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	accessToken, err := s.tokenManager.GenerateToken(
		profile.ID, profile.LineUserID, profile.DisplayName, profile.AvatarURL, profile.Role)
	if err != nil {
		return nil, err
	}

	newSecret, err := utils.RandomSecret(refreshSecretBytes)
	if err != nil {
		return nil, err
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Rotate(session.ID, string(newHash),
		time.Now().Add(refreshTokenTTL)); err != nil {
		return nil, err
	}

	return &SignInResponse{
		AccessToken:  accessToken,
		RefreshToken: session.ID + "." + newSecret,
		ExpiresIn:    int64(s.tokenManager.ExpireDuration().Seconds()),
		User:         toProfileDTO(profile),
	}, nil
}

// SignOut 结束会话
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	sessionID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return s.sessionRepo.End(sessionID)
}

// SignOutAll 结束用户的全部会话
func (s *AuthService) SignOutAll(ctx context.Context, userID string) error {
	return s.sessionRepo.EndAllForUser(userID)
}

// Validate 用户存在性检查
func (s *AuthService) Validate(ctx context.Context, userID string) (bool, error) {
	if _, err := s.profileRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("查询用户档案失败: %w", err)
	}
	return true, nil
}

func splitRefreshToken(token string) (sessionID, secret string, err error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRefreshToken
	}
	return parts[0], parts[1], nil
}
