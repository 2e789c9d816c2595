package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/internal/services"
)

// respondOK 统一成功信封
func respondOK(c *gin.Context, code int, message string, data any) {
	c.JSON(code, gin.H{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// respondError 统一错误信封
func respondError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{
		"status": "error",
		"error":  err.Error(),
	})
}

// statusForError 业务哨兵错误到 HTTP 状态码的映射
// 未识别的错误一律 500，不把内部细节透出
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrVerificationNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrNotGroupCreator),
		errors.Is(err, services.ErrNotApprovedMember):
		return http.StatusForbidden

	case errors.Is(err, services.ErrGroupFull),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrGroupNotActive),
		errors.Is(err, services.ErrCreatorCannotLeave),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrEscrowNotFunded),
		errors.Is(err, services.ErrEscrowAlreadyClosed),
		errors.Is(err, services.ErrGroupStillActive),
		errors.Is(err, services.ErrVerificationPending),
		errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, services.ErrVerificationReviewed),
		errors.Is(err, services.ErrReportClosed),
		errors.Is(err, services.ErrCodeReplayed):
		return http.StatusConflict

	case errors.Is(err, services.ErrInvalidGroupParams),
		errors.Is(err, services.ErrInvalidVerifyType),
		errors.Is(err, services.ErrInvalidReviewDecision),
		errors.Is(err, services.ErrInvalidReportStatus),
		errors.Is(err, services.ErrReportTargetMissing),
		errors.Is(err, services.ErrReportSelf),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidPaymentData):
		return http.StatusBadRequest

	case errors.Is(err, services.ErrLineAuthFailed),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrSessionEnded),
		errors.Is(err, services.ErrSessionExpired):
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}

// fail 按哨兵错误映射状态码并返回错误信封
func fail(c *gin.Context, err error) {
	respondError(c, statusForError(err), err)
}

// currentUserID 从认证中间件注入的 context 里取用户 ID
func currentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, errUnauthorized)
		return "", false
	}
	return v.(string), true
}

var errUnauthorized = errors.New("未授权访问")
var errBadRequest = errors.New("请求参数格式错误")
