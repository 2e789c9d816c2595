package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"

	"github.com/sharetrust/sharetrust/internal/services"
	"github.com/sharetrust/sharetrust/pkg/ws"
)

// MessageConsumer 消费聊天消息：落库后经 Hub 广播给在线成员
type MessageConsumer struct {
	messageService *services.MessageService
	hub            *ws.Hub
}

func NewMessageConsumer(messageService *services.MessageService, hub *ws.Hub) *MessageConsumer {
	return &MessageConsumer{
		messageService: messageService,
		hub:            hub,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *MessageConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *MessageConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *MessageConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var req services.InboundChatMessage
		if err := json.Unmarshal(message.Value, &req); err != nil {
			log.Printf("反序列化消息失败: %v", err)
			session.MarkMessage(message, "")
			continue
		}

		// 落库，成员校验在 Service 内完成
		resp, err := consumer.messageService.SendMessage(req.UserID, req.GroupID, req.Content)
		if err != nil {
			log.Printf("保存来自 Kafka 的消息失败: %v", err)
			// 校验类失败重试也不会成功，标记已消费避免死循环
			session.MarkMessage(message, "")
			continue
		}

		// 广播给拼团在线成员
		consumer.hub.BroadcastToGroup(req.GroupID, resp)

		session.MarkMessage(message, "")
	}
	return nil
}

// StartConsumer 以消费者组方式持续消费聊天 topic
func StartConsumer(brokers []string, groupID string, topic string, consumer *MessageConsumer) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		log.Fatalf("创建消费者组客户端失败: %v", err)
	}

	ctx := context.Background()
	go func() {
		for {
			if err := client.Consume(ctx, []string{topic}, consumer); err != nil {
				log.Printf("消费者错误: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}
