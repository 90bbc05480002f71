package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hiveboard/internal/domain"
)

// Router 处理从连接读到的入站事件。
// Route 在连接自己的读 goroutine 上同步调用，
// 同一连接触发的事件天然按发出顺序处理（单发送方 FIFO）。
type Router interface {
	Route(ctx context.Context, client *Client, raw []byte)
	Disconnected(client *Client)
}

// Client 代表一条活跃的 WebSocket 连接及其会话状态。
// 会话状态（所在房间、身份）由连接自己的读 goroutine 写入，
// 广播路径只读 socketId，因此用轻量锁保护即可。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	router Router

	socketID string
	send     chan []byte

	// ctx 在连接断开时取消，正在进行的 join 据此放弃写入
	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
	closed bool

	mu     sync.RWMutex
	roomID string
	actor  domain.Actor
	name   string
}

// NewClient 创建 Client 实例并分配 socketId。
func NewClient(h *Hub, conn *websocket.Conn, router Router) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:      h,
		conn:     conn,
		router:   router,
		socketID: uuid.NewString(),
		send:     make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// SocketID 返回连接的唯一标识。
func (c *Client) SocketID() string { return c.socketID }

// Context 返回随连接断开而取消的上下文。
func (c *Client) Context() context.Context { return c.ctx }

// RoomID 返回会话当前所在的房间，未加入时为空串。
func (c *Client) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// Session 返回会话的房间、身份和显示名。
func (c *Client) Session() (roomID string, actor domain.Actor, name string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID, c.actor, c.name
}

// SetSession 记录加入房间后的会话状态。
func (c *Client) SetSession(roomID string, actor domain.Actor, name string) {
	c.mu.Lock()
	c.roomID = roomID
	c.actor = actor
	c.name = name
	c.mu.Unlock()
}

// ClearSession 清除会话状态（离开房间后调用）。
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.roomID = ""
	c.actor = domain.Actor{}
	c.name = ""
	c.mu.Unlock()
}

// enqueue 把消息放进发送队列。非阻塞：队列满则丢弃该消息，
// 慢客户端由 WritePump 的写超时负责断开。
func (c *Client) enqueue(message []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		logrus.WithField("socket_id", c.socketID).Warn("Client send channel full, dropping message")
	}
}

// closeSend 关闭发送通道，重复调用安全。
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// CloseConn 强制关闭底层连接。
func (c *Client) CloseConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// ReadPump 把消息从 WebSocket 连接送进 Router。
// 在连接自己的 goroutine 中运行，退出即代表连接断开。
func (c *Client) ReadPump() {
	defer func() {
		// 先取消上下文，让还在飞行中的 join 放弃状态写入
		c.cancel()
		c.router.Disconnected(c)
		c.hub.Unregister(c)
		c.CloseConn()
		logrus.WithField("socket_id", c.socketID).Debug("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("socket_id", c.socketID)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		// 同步分发，保证同一连接的事件按序处理
		c.router.Route(c.ctx, c, message)
	}
}

// WritePump 把消息从发送队列写到 WebSocket 连接，并定期发 Ping。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.CloseConn()
		logrus.WithField("socket_id", c.socketID).Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 发送通道被 Hub 关闭（注销时）
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("socket_id", c.socketID).WithError(err).Warn("Failed to write message to websocket")
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
