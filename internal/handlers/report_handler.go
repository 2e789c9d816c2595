package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/services"
)

// ReportHandler 举报接口
type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Submit 提交举报
func (h *ReportHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.reportService.Submit(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "report submitted", resp)
}

// ListMine 我提交的举报
func (h *ReportHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.reportService.ListMine(userID)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// ListOpen 管理端未处理举报
func (h *ReportHandler) ListOpen(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.reportService.ListOpen(limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", resp)
}

// Resolve 管理员处理举报
func (h *ReportHandler) Resolve(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.reportService.Resolve(adminID, c.Param("report_id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "report updated", resp)
}
