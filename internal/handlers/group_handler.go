package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/repositories"
	"github.com/sharetrust/sharetrust/internal/services"
)

// GroupHandler 拼团接口
type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup 创建拼团
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.groupService.CreateGroup(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "group created", resp)
}

// ListGroups 浏览拼团，支持 status / category_id / search / max_price 过滤
func (h *GroupHandler) ListGroups(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	maxPrice, _ := strconv.ParseFloat(c.DefaultQuery("max_price", "0"), 64)

	groups, err := h.groupService.ListGroups(&repositories.GroupFilter{
		Status:     c.Query("status"),
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		MaxPrice:   maxPrice,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", groups)
}

// GetGroup 拼团详情
func (h *GroupHandler) GetGroup(c *gin.Context) {
	resp, err := h.groupService.GetGroup(c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// ListMyGroups 我创建和加入的拼团
func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.groupService.ListMyGroups(userID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// JoinGroup 申请加入拼团
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.JoinGroup(userID, c.Param("group_id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "join request submitted", nil)
}

// memberActionRequest 审批/驳回请求体
type memberActionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ApproveMember 创建者审批通过
func (h *GroupHandler) ApproveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req memberActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	if err := h.groupService.ApproveMember(userID, c.Param("group_id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "member approved", nil)
}

// RejectMember 创建者驳回申请
func (h *GroupHandler) RejectMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req memberActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	if err := h.groupService.RejectMember(userID, c.Param("group_id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "member rejected", nil)
}

// LeaveGroup 成员退出
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.LeaveGroup(userID, c.Param("group_id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "left group", nil)
}

// CancelGroup 创建者取消拼团
func (h *GroupHandler) CancelGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.CancelGroup(userID, c.Param("group_id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "group cancelled", nil)
}

// CompleteGroup 创建者结团
func (h *GroupHandler) CompleteGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.groupService.CompleteGroup(userID, c.Param("group_id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "group completed", nil)
}

// ListMembers 拼团成员列表
func (h *GroupHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	members, err := h.groupService.ListMembers(userID, c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", members)
}

// ListCategories 可用类别
func (h *GroupHandler) ListCategories(c *gin.Context) {
	categories, err := h.groupService.ListCategories()
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", categories)
}
