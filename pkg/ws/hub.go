package ws

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"github.com/sharetrust/sharetrust/internal/repositories"
)

const redisChannelName = "chat:broadcast"

// Hub 维护活跃的客户端连接并按拼团广播消息
type Hub struct {
	// 注册的客户端
	clients map[*Client]bool

	// 房间：GroupID -> Client 集合
	rooms map[string]map[*Client]bool

	// 互斥锁，保护 map 的并发读写
	mu sync.RWMutex

	// 注册/注销/广播通道
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// 访问在线状态
	groupRepo *repositories.GroupRepository

	// Redis 客户端，用于跨实例广播
	redis *redis.Client

	// 用户 ID 到客户端的映射
	userClients map[string]*Client
}

// BroadcastMessage 广播消息结构
type BroadcastMessage struct {
	GroupID string `json:"group_id"`
	Message any    `json:"message"`
}

func NewHub(groupRepo *repositories.GroupRepository, redisClient *redis.Client) *Hub {
	return &Hub{
		broadcast:   make(chan *BroadcastMessage),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		userClients: make(map[string]*Client),
		groupRepo:   groupRepo,
		redis:       redisClient,
	}
}

func (h *Hub) Run() {
	// 启动 Redis 订阅协程
	if h.redis != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.userID] = client
			for _, groupID := range client.groupIDs {
				if _, ok := h.rooms[groupID]; !ok {
					h.rooms[groupID] = make(map[*Client]bool)
				}
				h.rooms[groupID][client] = true
				h.groupRepo.SetUserOnline(groupID, client.userID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.userClients, client.userID)
				close(client.send)
				h.removeFromRooms(client)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			// 收集需要关闭的客户端，避免在 RLock 中修改 map
			var closedClients []*Client
			if clients, ok := h.rooms[msg.GroupID]; ok {
				for client := range clients {
					select {
					case client.send <- msg:
					default:
						// 发送缓冲区满，标记为需要关闭
						closedClients = append(closedClients, client)
					}
				}
			}
			h.mu.RUnlock()

			if len(closedClients) > 0 {
				h.mu.Lock()
				for _, client := range closedClients {
					// Double check，防止已经处理过
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
						delete(h.userClients, client.userID)
						h.removeFromRooms(client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// removeFromRooms 从所有房间移除并标记离线，调用方需持有写锁
func (h *Hub) removeFromRooms(client *Client) {
	for _, groupID := range client.groupIDs {
		if room, ok := h.rooms[groupID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, groupID)
			}
		}
		h.groupRepo.SetUserOffline(groupID, client.userID)
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, redisChannelName)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		var broadcastMsg BroadcastMessage
		if err := json.Unmarshal([]byte(msg.Payload), &broadcastMsg); err == nil {
			// 从 Redis 收到的消息只送本地广播通道，不再回发 Redis，否则会死循环
			h.broadcast <- &broadcastMsg
		}
	}
}

// BroadcastToGroup 发送消息到指定拼团的所有在线成员
func (h *Hub) BroadcastToGroup(groupID string, message any) {
	msg := &BroadcastMessage{
		GroupID: groupID,
		Message: message,
	}

	if h.redis != nil {
		// 发布到 Redis，所有实例（包括自己）经订阅收到，保证跨实例同步
		payload, err := json.Marshal(msg)
		if err == nil {
			h.redis.Publish(context.Background(), redisChannelName, payload)
		}
	} else {
		// 没有 Redis 时只做本地广播
		h.broadcast <- msg
	}
}
