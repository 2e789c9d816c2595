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
	ErrGroupNotFound      = errors.New("拼团不存在")
	ErrCategoryNotFound   = errors.New("类别不存在")
	ErrGroupNotActive     = errors.New("拼团已结束或不可加入")
	ErrGroupFull          = errors.New("拼团名额已满")
	ErrAlreadyMember      = errors.New("已经申请或加入该拼团")
	ErrMemberNotFound     = errors.New("成员记录不存在")
	ErrNotGroupCreator    = errors.New("只有创建者可以执行此操作")
	ErrCreatorCannotLeave = errors.New("创建者不能退出自己的拼团")
	ErrNotApprovedMember  = errors.New("不是该拼团的成员")
	ErrInvalidGroupParams = errors.New("拼团参数无效")
)

// GroupService 拼团生命周期与成员管理
type GroupService struct {
	groupRepo    *repositories.GroupRepository
	categoryRepo *repositories.CategoryRepository
	trustService *TrustService
	logger       *zap.Logger
}

func NewGroupService(
	groupRepo *repositories.GroupRepository,
	categoryRepo *repositories.CategoryRepository,
	trustService *TrustService,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		groupRepo:    groupRepo,
		categoryRepo: categoryRepo,
		trustService: trustService,
		logger:       logger,
	}
}

// CreateGroupRequest 创建拼团请求
type CreateGroupRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	CategoryID     string  `json:"category_id" binding:"required"`
	MaxMembers     int     `json:"max_members" binding:"required"`
	PricePerPerson float64 `json:"price_per_person" binding:"required"`
	Currency       string  `json:"currency"`
	BillingCycle   string  `json:"billing_cycle"`
	LineGroupURL   string  `json:"line_group_url"`
	ExpiresInDays  int     `json:"expires_in_days"`
}

// GroupResponse 拼团响应
type GroupResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	CategoryID     string     `json:"category_id"`
	CategoryName   string     `json:"category_name,omitempty"`
	CreatorID      string     `json:"creator_id"`
	CreatorName    string     `json:"creator_name,omitempty"`
	CreatorLevel   int        `json:"creator_trust_level,omitempty"`
	MaxMembers     int        `json:"max_members"`
	CurrentMembers int        `json:"current_members"`
	PricePerPerson float64    `json:"price_per_person"`
	Currency       string     `json:"currency"`
	BillingCycle   string     `json:"billing_cycle"`
	Status         string     `json:"status"`
	EscrowStatus   string     `json:"escrow_status"`
	LineGroupURL   string     `json:"line_group_url,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toGroupResponse(g *models.SharingGroup) *GroupResponse {
	resp := &GroupResponse{
		ID:             g.ID,
		Title:          g.Title,
		Description:    g.Description,
		CategoryID:     g.CategoryID,
		CreatorID:      g.CreatorID,
		MaxMembers:     g.MaxMembers,
		CurrentMembers: g.CurrentMembers,
		PricePerPerson: g.PricePerPerson,
		Currency:       g.Currency,
		BillingCycle:   g.BillingCycle,
		Status:         g.Status,
		EscrowStatus:   g.EscrowStatus,
		LineGroupURL:   g.LineGroupURL,
		ExpiresAt:      g.ExpiresAt,
		CreatedAt:      g.CreatedAt,
	}
	if g.Category != nil {
		resp.CategoryName = g.Category.Name
	}
	if g.Creator != nil {
		resp.CreatorName = g.Creator.DisplayName
		resp.CreatorLevel = g.Creator.TrustLevel
	}
	return resp
}

// CreateGroup 创建拼团，创建者自动成为已审批成员
func (s *GroupService) CreateGroup(creatorID string, req *CreateGroupRequest) (*GroupResponse, error) {
	if req.MaxMembers < 2 || req.MaxMembers > 20 || req.PricePerPerson <= 0 {
		return nil, ErrInvalidGroupParams
	}

	if _, err := s.categoryRepo.GetByID(req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	group := &models.SharingGroup{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		CreatorID:      creatorID,
		MaxMembers:     req.MaxMembers,
		CurrentMembers: 1,
		PricePerPerson: req.PricePerPerson,
		Currency:       req.Currency,
		BillingCycle:   req.BillingCycle,
		Status:         models.GroupStatusActive,
		EscrowStatus:   models.EscrowStatusPending,
		LineGroupURL:   req.LineGroupURL,
	}
	if group.Currency == "" {
		group.Currency = "THB"
	}
	if group.BillingCycle == "" {
		group.BillingCycle = "monthly"
	}
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		group.ExpiresAt = &t
	}

	creatorMember := &models.GroupMember{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		UserID:        creatorID,
		Status:        models.MemberStatusApproved,
		PaymentStatus: models.PaymentStatusPending,
		JoinedAt:      time.Now(),
	}

	if err := s.groupRepo.CreateGroup(group, creatorMember); err != nil {
		return nil, err
	}

	if _, err := s.trustService.Record(creatorID, models.TrustEventGroupCreated,
		"Created sharing group "+group.Title, "group", group.ID); err != nil {
		s.logger.Warn("记录建团信任分失败", zap.String("group_id", group.ID), zap.Error(err))
	}

	return toGroupResponse(group), nil
}

// GetGroup 获取拼团详情
func (s *GroupService) GetGroup(id string) (*GroupResponse, error) {
	group, err := s.groupRepo.GetGroupByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return toGroupResponse(group), nil
}

// ListGroups 按状态/类别/关键词/价格分页列出拼团
func (s *GroupService) ListGroups(filter *repositories.GroupFilter) ([]*GroupResponse, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status == "" {
		filter.Status = models.GroupStatusActive
	}
	groups, err := s.groupRepo.ListGroups(filter)
	if err != nil {
		return nil, err
	}
	out := make([]*GroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, toGroupResponse(&groups[i]))
	}
	return out, nil
}

// MyGroupsResponse 我的拼团
type MyGroupsResponse struct {
	Created []*GroupResponse `json:"created"`
	Joined  []*GroupResponse `json:"joined"`
}

// ListMyGroups 列出用户创建和加入的拼团
func (s *GroupService) ListMyGroups(userID string) (*MyGroupsResponse, error) {
	created, err := s.groupRepo.ListGroupsByCreator(userID)
	if err != nil {
		return nil, err
	}

	joinedIDs, err := s.groupRepo.GetUserGroupIDs(userID)
	if err != nil {
		return nil, err
	}

	resp := &MyGroupsResponse{
		Created: make([]*GroupResponse, 0, len(created)),
		Joined:  make([]*GroupResponse, 0),
	}
	for i := range created {
		resp.Created = append(resp.Created, toGroupResponse(&created[i]))
	}
	for _, id := range joinedIDs {
		group, err := s.groupRepo.GetGroupByID(id)
		if err != nil {
			continue
		}
		if group.CreatorID == userID {
			continue
		}
		resp.Joined = append(resp.Joined, toGroupResponse(group))
	}
	return resp, nil
}

// JoinGroup 提交加入申请，等待创建者审批
func (s *GroupService) JoinGroup(userID, groupID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}

	if group.Status != models.GroupStatusActive {
		return ErrGroupNotActive
	}
	if group.CurrentMembers >= group.MaxMembers {
		return ErrGroupFull
	}
	if _, err := s.groupRepo.GetMember(groupID, userID); err == nil {
		return ErrAlreadyMember
	}

	member := &models.GroupMember{
		ID:            uuid.NewString(),
		GroupID:       groupID,
		UserID:        userID,
		Status:        models.MemberStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		JoinedAt:      time.Now(),
	}
	if err := s.groupRepo.AddPendingMember(member); err != nil {
		// 唯一索引兜底并发重复申请
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return err
	}
	return nil
}

// ApproveMember 创建者审批通过
// 名额在仓储层条件更新里占用，满员时返回 ErrGroupFull
func (s *GroupService) ApproveMember(creatorID, groupID, userID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.CreatorID != creatorID {
		return ErrNotGroupCreator
	}

	member, err := s.groupRepo.GetMember(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if member.Status != models.MemberStatusPending {
		return ErrMemberNotFound
	}

	if err := s.groupRepo.ApproveMember(groupID, userID); err != nil {
		if errors.Is(err, repositories.ErrGroupFull) {
			return ErrGroupFull
		}
		return err
	}

	if _, err := s.trustService.Record(userID, models.TrustEventGroupJoined,
		"Joined sharing group "+group.Title, "group", groupID); err != nil {
		s.logger.Warn("记录入团信任分失败", zap.String("group_id", groupID), zap.Error(err))
	}
	return nil
}

// RejectMember 创建者驳回申请
func (s *GroupService) RejectMember(creatorID, groupID, userID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.CreatorID != creatorID {
		return ErrNotGroupCreator
	}

	member, err := s.groupRepo.GetMember(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if member.Status != models.MemberStatusPending {
		return ErrMemberNotFound
	}

	return s.groupRepo.RejectMember(groupID, userID)
}

// LeaveGroup 成员退出，释放名额
func (s *GroupService) LeaveGroup(userID, groupID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.CreatorID == userID {
		return ErrCreatorCannotLeave
	}

	if err := s.groupRepo.RemoveMember(groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotApprovedMember
		}
		return err
	}
	return nil
}

// CancelGroup 创建者取消拼团
func (s *GroupService) CancelGroup(creatorID, groupID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.CreatorID != creatorID {
		return ErrNotGroupCreator
	}
	if group.Status != models.GroupStatusActive {
		return ErrGroupNotActive
	}

	return s.groupRepo.UpdateGroupStatus(groupID, models.GroupStatusCancelled)
}

// CompleteGroup 创建者结团，所有成员获得结团信任分
func (s *GroupService) CompleteGroup(creatorID, groupID string) error {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.CreatorID != creatorID {
		return ErrNotGroupCreator
	}
	if group.Status != models.GroupStatusActive {
		return ErrGroupNotActive
	}

	if err := s.groupRepo.UpdateGroupStatus(groupID, models.GroupStatusCompleted); err != nil {
		return err
	}

	members, err := s.groupRepo.ListApprovedMembers(groupID)
	if err != nil {
		s.logger.Warn("结团后读取成员失败", zap.String("group_id", groupID), zap.Error(err))
		return nil
	}
	for _, m := range members {
		if _, err := s.trustService.Record(m.UserID, models.TrustEventGroupCompleted,
			"Completed sharing group "+group.Title, "group", groupID); err != nil {
			s.logger.Warn("记录结团信任分失败",
				zap.String("group_id", groupID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// MemberResponse 成员响应
type MemberResponse struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	TrustLevel    int       `json:"trust_level,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	JoinedAt      time.Time `json:"joined_at"`
}

// ListMembers 列出拼团成员（仅成员和创建者可见）
func (s *GroupService) ListMembers(requesterID, groupID string) ([]*MemberResponse, error) {
	group, err := s.groupRepo.GetGroupByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if group.CreatorID != requesterID {
		ok, err := s.groupRepo.IsApprovedMember(groupID, requesterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotApprovedMember
		}
	}

	members, err := s.groupRepo.ListMembers(groupID)
	if err != nil {
		return nil, err
	}

	out := make([]*MemberResponse, 0, len(members))
	for _, m := range members {
		resp := &MemberResponse{
			UserID:        m.UserID,
			Status:        m.Status,
			PaymentStatus: m.PaymentStatus,
			JoinedAt:      m.JoinedAt,
		}
		if m.Profile != nil {
			resp.DisplayName = m.Profile.DisplayName
			resp.AvatarURL = m.Profile.AvatarURL
			resp.TrustLevel = m.Profile.TrustLevel
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetUserGroupIDs 获取用户已加入的拼团 ID（WebSocket 订阅用）
func (s *GroupService) GetUserGroupIDs(userID string) ([]string, error) {
	return s.groupRepo.GetUserGroupIDs(userID)
}

// IsApprovedMember 检查聊天/消息权限
func (s *GroupService) IsApprovedMember(groupID, userID string) (bool, error) {
	return s.groupRepo.IsApprovedMember(groupID, userID)
}

// ExpireStaleGroups 定时把过期拼团置为 expired
func (s *GroupService) ExpireStaleGroups() {
	ids, err := s.groupRepo.ExpireStaleGroups(time.Now())
	if err != nil {
		s.logger.Error("过期拼团清理失败", zap.Error(err))
		return
	}
	if len(ids) > 0 {
		s.logger.Info("拼团已过期", zap.Strings("group_ids", ids))
	}
}

// ListCategories 列出可用类别
func (s *GroupService) ListCategories() ([]models.Category, error) {
	return s.categoryRepo.ListActive()
}
