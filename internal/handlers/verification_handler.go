package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/services"
)

// VerificationHandler 验证接口
type VerificationHandler struct {
	verificationService *services.VerificationService
}

func NewVerificationHandler(verificationService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

// Submit 提交验证申请
func (h *VerificationHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.verificationService.Submit(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "verification submitted", resp)
}

// ListMine 我的验证申请
func (h *VerificationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.verificationService.ListMine(userID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// ListPending 管理端待审核列表
func (h *VerificationHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.verificationService.ListPending(limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// Review 管理员审核
func (h *VerificationHandler) Review(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.verificationService.Review(reviewerID, c.Param("verification_id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "verification reviewed", resp)
}
