package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sharetrust/sharetrust/internal/services"
)

// AuthHandler LINE 登录与会话接口
type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SignIn LINE 授权码登录
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("LINE 登录失败", zap.Error(err))
		fail(c, err)
		return
	}

	respondOK(c, http.StatusOK, "signed in", resp)
}

// Refresh 用 refresh token 换新令牌
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	respondOK(c, http.StatusOK, "token refreshed", resp)
}

// SignOut 结束当前会话
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	if err := h.authService.SignOut(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, err)
		return
	}

	respondOK(c, http.StatusOK, "signed out", nil)
}

// Validate 用户存在性检查（无需认证，供其他服务探测）
func (h *AuthHandler) Validate(c *gin.Context) {
	valid, err := h.authService.Validate(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"valid": valid})
}

// SignOutAll 结束当前用户的全部会话
func (h *AuthHandler) SignOutAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.authService.SignOutAll(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}

	respondOK(c, http.StatusOK, "all sessions ended", nil)
}
