package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/services"
)

// ProfileHandler 档案与信任分接口
type ProfileHandler struct {
	profileService *services.ProfileService
	trustService   *services.TrustService
}

func NewProfileHandler(profileService *services.ProfileService, trustService *services.TrustService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		trustService:   trustService,
	}
}

// GetMe 当前用户完整档案
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(userID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", profile)
}

// UpdateMe 更新当前用户档案
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	profile, err := h.profileService.UpdateProfile(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "profile updated", profile)
}

// GetPublicProfile 查看他人公开档案
func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	profile, err := h.profileService.GetPublicProfile(c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", profile)
}

// RecomputeTrust 管理端：从账本重算信任分
func (h *ProfileHandler) RecomputeTrust(c *gin.Context) {
	summary, err := h.trustService.Recompute(c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "trust score recomputed", summary)
}

// GetUserTrust 查看他人信任分概要与历史
func (h *ProfileHandler) GetUserTrust(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summary, err := h.trustService.GetSummary(c.Param("user_id"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", summary)
}

// GetMyTrust 当前用户信任分概要与历史
func (h *ProfileHandler) GetMyTrust(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summary, err := h.trustService.GetSummary(userID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", summary)
}
