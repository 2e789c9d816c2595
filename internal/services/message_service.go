package services

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
	"github.com/sharetrust/sharetrust/pkg/snowflake"
)

var (
	ErrEmptyMessage    = errors.New("消息内容为空")
	ErrMessageTooLong  = errors.New("消息内容过长")
	ErrMessageNotFound = errors.New("消息不存在")
)

const maxMessageLength = 2000

// MessageService 群聊消息
type MessageService struct {
	messageRepo *repositories.MessageRepository
	groupRepo   *repositories.GroupRepository
	profileRepo *repositories.ProfileRepository
	idGen       *snowflake.Generator
	logger      *zap.Logger
}

func NewMessageService(
	messageRepo *repositories.MessageRepository,
	groupRepo *repositories.GroupRepository,
	profileRepo *repositories.ProfileRepository,
	idGen *snowflake.Generator,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		profileRepo: profileRepo,
		idGen:       idGen,
		logger:      logger,
	}
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

// MessageResponse 消息响应
type MessageResponse struct {
	ID          int64     `json:"id,string"`
	GroupID     string    `json:"group_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	SeqID       int64     `json:"seq_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboundChatMessage Kafka 上的消息信封
// 以 group_id 为 key 发送，同群消息落在同一 partition 保持有序
type InboundChatMessage struct {
	UserID  string              `json:"user_id"`
	GroupID string              `json:"group_id"`
	Content *SendMessageRequest `json:"content"`
}

// SendMessage 校验成员身份后落库一条消息
// ID 用 snowflake，群内序号用 Redis INCR；由 Kafka 消费者或降级路径调用
func (s *MessageService) SendMessage(userID, groupID string, req *SendMessageRequest) (*MessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	ok, err := s.groupRepo.IsApprovedMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotApprovedMember
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = "text"
	}

	id, err := s.idGen.NextID()
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:          id,
		GroupID:     groupID,
		UserID:      userID,
		Content:     content,
		MessageType: msgType,
		SeqID:       s.messageRepo.NextSeq(groupID),
		CreatedAt:   time.Now(),
	}
	if err := s.messageRepo.Create(msg); err != nil {
		return nil, err
	}

	resp := &MessageResponse{
		ID:          msg.ID,
		GroupID:     msg.GroupID,
		UserID:      msg.UserID,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		SeqID:       msg.SeqID,
		CreatedAt:   msg.CreatedAt,
	}
	if profile, err := s.profileRepo.GetByID(userID); err == nil {
		resp.DisplayName = profile.DisplayName
		resp.AvatarURL = profile.AvatarURL
	}
	return resp, nil
}

// GetMessages 按时间倒序分页拉取群消息（仅成员可见）
func (s *MessageService) GetMessages(userID, groupID string, limit, offset int) ([]MessageResponse, error) {
	ok, err := s.groupRepo.IsApprovedMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotApprovedMember
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	msgs, err := s.messageRepo.ListByGroup(groupID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		resp := MessageResponse{
			ID:          m.ID,
			GroupID:     m.GroupID,
			UserID:      m.UserID,
			Content:     m.Content,
			MessageType: m.MessageType,
			SeqID:       m.SeqID,
			CreatedAt:   m.CreatedAt,
		}
		if m.Sender != nil {
			resp.DisplayName = m.Sender.DisplayName
			resp.AvatarURL = m.Sender.AvatarURL
		}
		out = append(out, resp)
	}
	return out, nil
}

// FlagMessage 标记消息违规（管理端）
func (s *MessageService) FlagMessage(id int64) error {
	if err := s.messageRepo.Flag(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	return nil
}
