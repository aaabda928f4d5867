package websocket

import (
	"encoding/json"
	"sync"
)

// 预定义主题
const (
	// TopicRuns 编排运行事件
	TopicRuns = "runs"
	// TopicCorpus 语料变更通知（摄入/删除）
	TopicCorpus = "corpus"
)

// Hub WebSocket 连接管理中心
// 按主题分组广播通知（运行事件、语料变更）
type Hub struct {
	// 按主题分组的连接
	topics map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	Topic string
	Send  chan []byte
}

// Message 消息
type Message struct {
	Topic string
	Data  []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.topics[conn.Topic] == nil {
				h.topics[conn.Topic] = make(map[*Connection]bool)
			}
			h.topics[conn.Topic][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if topic, ok := h.topics[conn.Topic]; ok {
				if _, ok := topic[conn]; ok {
					delete(topic, conn)
					close(conn.Send)
					if len(topic) == 0 {
						delete(h.topics, conn.Topic)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if topic, ok := h.topics[msg.Topic]; ok {
				for conn := range topic {
					select {
					case conn.Send <- msg.Data:
					default:
						// 发送缓冲满的慢消费者直接断开
						close(conn.Send)
						delete(topic, conn)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast 向指定主题广播消息
func (h *Hub) Broadcast(topic string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		Topic: topic,
		Data:  jsonData,
	}
	return nil
}
