package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/services"
)

// PaymentHandler 支付与托管接口
type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Pay 成员上报付款
func (h *PaymentHandler) Pay(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.paymentService.Pay(userID, c.Param("group_id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "payment recorded", resp)
}

// ReleaseEscrow 创建者释放托管
func (h *PaymentHandler) ReleaseEscrow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.paymentService.ReleaseEscrow(userID, c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "escrow released", resp)
}

// RefundGroup 取消/过期后退款
func (h *PaymentHandler) RefundGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	refunds, err := h.paymentService.RefundGroup(userID, c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "refunds recorded", refunds)
}

// ListMyTransactions 我的流水
func (h *PaymentHandler) ListMyTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.paymentService.ListMyTransactions(userID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", txs)
}

// ListGroupTransactions 创建者查看拼团流水
func (h *PaymentHandler) ListGroupTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	txs, err := h.paymentService.ListGroupTransactions(userID, c.Param("group_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", txs)
}
