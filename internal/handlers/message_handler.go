package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sharetrust/sharetrust/internal/services"
	"github.com/sharetrust/sharetrust/pkg/mq"
	"github.com/sharetrust/sharetrust/pkg/ws"
)

// MessageHandler 群聊消息接口
// 发送路径走 Kafka，消费者落库后经 Hub 广播；没有 Kafka 时降级为直写
type MessageHandler struct {
	messageService *services.MessageService
	kafkaProducer  *mq.KafkaProducer
	hub            *ws.Hub
	logger         *zap.Logger
}

func NewMessageHandler(
	messageService *services.MessageService,
	kafkaProducer *mq.KafkaProducer,
	hub *ws.Hub,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		kafkaProducer:  kafkaProducer,
		hub:            hub,
		logger:         logger,
	}
}

// SendMessage REST 发送消息
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID := c.Param("group_id")

	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	if h.kafkaProducer != nil {
		envelope := services.InboundChatMessage{
			UserID:  userID,
			GroupID: groupID,
			Content: &req,
		}
		// group_id 做 Key，同群消息同分区，保证有序
		if err := h.kafkaProducer.SendMessage(groupID, envelope); err == nil {
			respondOK(c, http.StatusAccepted, "message queued", nil)
			return
		}
		h.logger.Warn("消息入队失败，降级直写", zap.String("group_id", groupID))
	}

	// 降级路径：直接落库并广播
	resp, err := h.messageService.SendMessage(userID, groupID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToGroup(groupID, resp)
	}
	respondOK(c, http.StatusCreated, "message sent", resp)
}

// GetMessages 拉取历史消息
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	msgs, err := h.messageService.GetMessages(userID, c.Param("group_id"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", msgs)
}

// FlagMessage 管理端标记违规消息
func (h *MessageHandler) FlagMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, errBadRequest)
		return
	}

	if err := h.messageService.FlagMessage(id); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, http.StatusOK, "message flagged", nil)
}
