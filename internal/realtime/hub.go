package realtime

import (
	"net/http"
	"sync"
	"time"

	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 约定的视图名，客户端据此决定哪些缓存条目需要重新拉取。
const (
	ViewGroups         = "groups"
	ViewGroupsProducts = "groups:products"
	ViewGroupsAds      = "groups:advertisements"
	ViewMedia          = "media"
	ViewProducts       = "products"
	ViewAdvertisements = "advertisements"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 16
)

// InvalidationEvent 是推送给客户端的失效通知。
// 只告诉客户端“哪些视图变脏了”，不携带数据本身，
// 数据由客户端按需重新拉取（见 pkg/client 的缓存实现）。
type InvalidationEvent struct {
	Type  string   `json:"type"`
	Views []string `json:"views"`
}

type clientConn struct {
	conn *websocket.Conn
	send chan InvalidationEvent
}

// Hub 维护全部在线的 websocket 订阅端，并向它们广播缓存失效事件。
// 设计目标：
// 1. 写路径绝不阻塞业务请求：每个连接一个带缓冲的发送队列，
//    队列满时直接丢弃该连接（慢消费者自己承担代价）。
// 2. 连接生命周期自管理：读循环退出即注销。
type Hub struct {
	mu       sync.RWMutex
	clients  map[*clientConn]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*clientConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Invalidate 向所有在线客户端广播一组失效视图。
// Hub 为 nil 时是空操作，便于测试环境省掉 websocket 依赖。
func (h *Hub) Invalidate(views ...string) {
	if h == nil || len(views) == 0 {
		return
	}
	event := InvalidationEvent{Type: "invalidate", Views: views}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// 发送队列满：踢掉慢消费者，避免拖住广播
			go h.drop(c)
		}
	}
}

// Handle 把 HTTP 请求升级为 websocket 订阅连接。
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("realtime: websocket upgrade failed: %v", err)
		return
	}

	client := &clientConn{
		conn: conn,
		send: make(chan InvalidationEvent, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	go h.readPump(client)
}

// ClientCount 返回当前在线连接数，监控和测试用。
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(c *clientConn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		close(c.send)
		_ = c.conn.Close()
	}
}

// readPump 丢弃客户端发来的全部消息；它存在的意义是感知连接关闭。
func (h *Hub) readPump(c *clientConn) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
