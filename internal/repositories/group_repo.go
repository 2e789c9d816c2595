package repositories

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

var (
	// ErrGroupFull 名额条件更新未命中：满员、非 active 或记录不存在
	ErrGroupFull = errors.New("group is full or not active")
)

const groupOnlineKeyPrefix = "group:online:" // Redis Set, 成员是在线用户 ID

type GroupRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewGroupRepository(db *gorm.DB, redis *redis.Client) *GroupRepository {
	return &GroupRepository{db: db, redis: redis}
}

// CreateGroup 创建拼团并把创建者写入成员表
// 实现逻辑：开启事务，创建 sharing_groups 记录，再插入 approved 状态的创建者成员
func (r *GroupRepository) CreateGroup(group *models.SharingGroup, creatorMember *models.GroupMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		if err := tx.Create(creatorMember).Error; err != nil {
			return err
		}
		return nil
	})
}

// GetGroupByID 根据 ID 获取拼团，预加载创建者和分类
func (r *GroupRepository) GetGroupByID(id string) (*models.SharingGroup, error) {
	var group models.SharingGroup
	err := r.db.Preload("Creator").Preload("Category").Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GroupFilter 拼团浏览过滤条件
type GroupFilter struct {
	Status     string
	CategoryID string
	Search     string  // 匹配标题/描述
	MaxPrice   float64 // 0 表示不限
	Limit      int
	Offset     int
}

// ListGroups 按条件分页列出拼团，最新在前
func (r *GroupRepository) ListGroups(f *GroupFilter) ([]models.SharingGroup, error) {
	q := r.db.Preload("Creator").Preload("Category").Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price_per_person <= ?", f.MaxPrice)
	}
	var groups []models.SharingGroup
	err := q.Limit(f.Limit).Offset(f.Offset).Find(&groups).Error
	return groups, err
}

// ListGroupsByCreator 列出某用户创建的拼团
func (r *GroupRepository) ListGroupsByCreator(creatorID string) ([]models.SharingGroup, error) {
	var groups []models.SharingGroup
	err := r.db.Preload("Category").Where("creator_id = ?", creatorID).
		Order("created_at DESC").Find(&groups).Error
	return groups, err
}

// UpdateGroup 保存拼团
func (r *GroupRepository) UpdateGroup(group *models.SharingGroup) error {
	return r.db.Save(group).Error
}

// UpdateGroupStatus 更新拼团状态
func (r *GroupRepository) UpdateGroupStatus(id, status string) error {
	return r.db.Model(&models.SharingGroup{}).Where("id = ?", id).
		Update("status", status).Error
}

// UpdateEscrowStatus 更新托管状态
func (r *GroupRepository) UpdateEscrowStatus(id, escrowStatus string) error {
	return r.db.Model(&models.SharingGroup{}).Where("id = ?", id).
		Update("escrow_status", escrowStatus).Error
}

// AddPendingMember 写入待审批的加入申请
// group_id + user_id 唯一索引会拒绝重复申请
func (r *GroupRepository) AddPendingMember(member *models.GroupMember) error {
	return r.db.Create(member).Error
}

// ApproveMember 审批通过并占用一个名额
// 实现逻辑：在同一事务内先对 sharing_groups 做条件自增
// （status='active' 且 current_members < max_members），未命中说明
// 已满员或已结束，返回 ErrGroupFull；命中后再把成员置为 approved。
// 条件更新依赖数据库行锁，并发审批不会超卖名额。
func (r *GroupRepository) ApproveMember(groupID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SharingGroup{}).
			Where("id = ? AND status = ? AND current_members < max_members",
				groupID, models.GroupStatusActive).
			UpdateColumn("current_members", gorm.Expr("current_members + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGroupFull
		}

		return tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Updates(map[string]any{"status": models.MemberStatusApproved}).Error
	})
}

// RejectMember 驳回加入申请
func (r *GroupRepository) RejectMember(groupID, userID string) error {
	return r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("status", models.MemberStatusRejected).Error
}

// RemoveMember 成员退出并释放名额
// 实现逻辑：事务内把成员置为 left，再条件自减名额（下限 1，创建者始终占位）
func (r *GroupRepository) RemoveMember(groupID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND status = ?",
				groupID, userID, models.MemberStatusApproved).
			Update("status", models.MemberStatusLeft)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&models.SharingGroup{}).
			Where("id = ? AND current_members > 1", groupID).
			UpdateColumn("current_members", gorm.Expr("current_members - 1")).Error
	})
}

// GetMember 获取成员记录
func (r *GroupRepository) GetMember(groupID, userID string) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers 列出拼团成员，预加载档案
func (r *GroupRepository) ListMembers(groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.Preload("Profile").Where("group_id = ?", groupID).
		Order("joined_at ASC").Find(&members).Error
	return members, err
}

// ListApprovedMembers 列出已通过审批的成员
func (r *GroupRepository) ListApprovedMembers(groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.Where("group_id = ? AND status = ?", groupID, models.MemberStatusApproved).
		Find(&members).Error
	return members, err
}

// UpdateMemberPaymentStatus 更新成员付款状态
func (r *GroupRepository) UpdateMemberPaymentStatus(groupID, userID, paymentStatus string) error {
	return r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("payment_status", paymentStatus).Error
}

// IsApprovedMember 检查用户是否为已通过审批的成员
func (r *GroupRepository) IsApprovedMember(groupID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND status = ?",
			groupID, userID, models.MemberStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// GetUserGroupIDs 获取用户已加入（approved）的拼团 ID 列表
func (r *GroupRepository) GetUserGroupIDs(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.GroupMember{}).
		Where("user_id = ? AND status = ?", userID, models.MemberStatusApproved).
		Pluck("group_id", &ids).Error
	return ids, err
}

// ListMemberships 列出用户的全部成员记录
func (r *GroupRepository) ListMemberships(userID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.Where("user_id = ?", userID).Order("joined_at DESC").Find(&members).Error
	return members, err
}

// ExpireStaleGroups 把过期且仍 active 的拼团置为 expired，返回受影响的 ID
func (r *GroupRepository) ExpireStaleGroups(now time.Time) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.SharingGroup{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			models.GroupStatusActive, now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = r.db.Model(&models.SharingGroup{}).
		Where("id IN ?", ids).
		Update("status", models.GroupStatusExpired).Error
	return ids, err
}

// SetUserOnline 标记用户在某拼团聊天室在线
func (r *GroupRepository) SetUserOnline(groupID, userID string) {
	if r.redis == nil {
		return
	}
	ctx := context.Background()
	key := groupOnlineKeyPrefix + groupID
	r.redis.SAdd(ctx, key, userID)
	r.redis.Expire(ctx, key, 10*time.Minute)
}

// SetUserOffline 标记用户离线
func (r *GroupRepository) SetUserOffline(groupID, userID string) {
	if r.redis == nil {
		return
	}
	r.redis.SRem(context.Background(), groupOnlineKeyPrefix+groupID, userID)
}

// RefreshOnlineTTL 心跳续期在线集合
func (r *GroupRepository) RefreshOnlineTTL(groupID string) {
	if r.redis == nil {
		return
	}
	r.redis.Expire(context.Background(), groupOnlineKeyPrefix+groupID, 10*time.Minute)
}

// CountOnline 统计拼团聊天室在线人数
func (r *GroupRepository) CountOnline(groupID string) (int64, error) {
	if r.redis == nil {
		return 0, nil
	}
	return r.redis.SCard(context.Background(), groupOnlineKeyPrefix+groupID).Result()
}
