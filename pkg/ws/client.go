package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sharetrust/sharetrust/internal/services"
	"github.com/sharetrust/sharetrust/pkg/mq"
)

const (
	writeWait      = 10 * time.Second    // 允许写入消息到对端的最大时间
	pongWait       = 60 * time.Second    // 允许读取下一个 pong 消息的最大时间
	pingPeriod     = (pongWait * 9) / 10 // 发送 ping 到对端的周期。必须小于 pongWait
	maxMessageSize = 4096                // 允许来自对端的最大消息大小
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 代表一个 WebSocket 连接客户端
type Client struct {
	hub            *Hub
	conn           *websocket.Conn        // WebSocket 连接
	send           chan *BroadcastMessage // 缓冲通道，用于发送消息
	userID         string                 // 用户 ID
	groupIDs       []string               // 用户已加入的拼团 ID 列表（用于订阅）
	messageService *services.MessageService
	kafkaProducer  *mq.KafkaProducer
}

// readPump 泵送来自 WebSocket 连接的消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// 收到 Pong 说明客户端还活着，续期在线集合
		for _, groupID := range c.groupIDs {
			c.hub.groupRepo.RefreshOnlineTTL(groupID)
		}
		return nil
	})

	// 连接建立后推送各拼团的最近历史，保证用户看到上下文
	go c.pushRecentMessages()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("读取 websocket 失败: %v", err)
			}
			break
		}

		// 客户端发送 JSON: {"group_id": "...", "content": "hello", "message_type": "text"}
		var req struct {
			GroupID     string `json:"group_id"`
			Content     string `json:"content"`
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("json 反序列化错误: %v", err)
			continue
		}

		sendReq := &services.SendMessageRequest{
			Content:     req.Content,
			MessageType: req.MessageType,
		}

		if c.kafkaProducer != nil {
			envelope := services.InboundChatMessage{
				UserID:  c.userID,
				GroupID: req.GroupID,
				Content: sendReq,
			}
			// group_id 做 Key，同一拼团的消息落在同一 Partition，保证有序
			if err := c.kafkaProducer.SendMessage(req.GroupID, envelope); err != nil {
				log.Printf("发送消息到 kafka 失败: %v", err)
				continue
			}
		} else {
			// 降级处理：没有 Kafka 时直接落库并广播
			resp, err := c.messageService.SendMessage(c.userID, req.GroupID, sendReq)
			if err != nil {
				log.Printf("发送消息错误: %v", err)
				continue
			}
			c.hub.BroadcastToGroup(req.GroupID, resp)
		}
	}
}

// pushRecentMessages 推送各拼团的最近历史消息
func (c *Client) pushRecentMessages() {
	// 防止向已关闭的 channel 发送导致 panic
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pushRecentMessages 发生 panic 并恢复: %v", r)
		}
	}()

	const recentCount = 20

	for _, groupID := range c.groupIDs {
		msgs, err := c.messageService.GetMessages(c.userID, groupID, recentCount, 0)
		if err != nil {
			log.Printf("获取拼团 %s 的最近消息失败: %v", groupID, err)
			continue
		}

		// GetMessages 按时间倒序返回，推送时转为正序
		for i := len(msgs) - 1; i >= 0; i-- {
			c.send <- &BroadcastMessage{
				GroupID: msgs[i].GroupID,
				Message: msgs[i],
			}
		}
	}
}

// writePump 泵送来自 Hub 的消息到 WebSocket 连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			// 客户端按 group_id 区分消息属于哪个拼团
			json.NewEncoder(w).Encode(msg)

			// 顺带刷掉队列中积压的消息
			n := len(c.send)
			for range n {
				json.NewEncoder(w).Encode(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs 处理 WebSocket 升级请求
func ServeWs(hub *Hub, groupService *services.GroupService, messageService *services.MessageService, kafkaProducer *mq.KafkaProducer, c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "未授权访问"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("升级 websocket 失败: %v", err)
		return
	}

	uID := userID.(string)
	groupIDs, err := groupService.GetUserGroupIDs(uID)
	if err != nil {
		log.Printf("获取用户拼团列表失败: %v", err)
		conn.Close()
		return
	}

	client := &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan *BroadcastMessage, 256),
		userID:         uID,
		groupIDs:       groupIDs,
		messageService: messageService,
		kafkaProducer:  kafkaProducer,
	}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}
