// Package hub 维护活跃的 WebSocket 连接并在命令核心与传输之间搬运消息。
// 核心只认连接 ID：入站消息带着发起连接的 ID 进入分发器，
// 出站消息带着显式的接收者 ID 列表回来，由 Hub 逐个投递。
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/command"
	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	// 场景对象携带几何负载，上限远大于普通聊天消息。
	maxMessageSize = 1 << 20
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型。
type HubMessage struct {
	Type    string  // "register", "unregister", "command"
	Client  *Client // 消息来源连接
	RawData []byte  // 仅用于 command (原始 WebSocket 消息)
}

// Hub 维护连接 ID 到客户端的映射并协调消息处理。
type Hub struct {
	messageChan chan HubMessage

	clients   map[string]*Client
	clientsMu sync.RWMutex

	registry *command.Registry
	tracker  *session.Tracker
}

// NewHub 创建并返回一个新的 Hub 实例。
func NewHub(registry *command.Registry, tracker *session.Tracker) *Hub {
	if registry == nil {
		panic("command.Registry cannot be nil for Hub")
	}
	if tracker == nil {
		panic("session.Tracker cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[string]*Client),
		registry:    registry,
		tracker:     tracker,
	}
}

// Run 启动 Hub 的主事件处理循环。应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "command":
			// 异步处理命令，避免持久化边界的等待阻塞 Hub 主循环。
			// 单个房间内的串行化由房间自己的锁保证，不依赖这里。
			go h.handleCommand(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 false 表示队列已满，消息被丢弃。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client.ID()] = client
	h.clientsMu.Unlock()
	logrus.WithField("client_id", client.ID()).Info("Client registered to Hub")
}

// unregisterClient 摘除连接并触发隐式登出，释放该客户端的房间成员资格
// 和它持有的对象锁。没有这一步，掉线客户端的锁会永久挂死。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID()]; ok {
		delete(h.clients, client.ID())
		select {
		case <-client.send:
		default:
			close(client.send)
		}
	}
	h.clientsMu.Unlock()

	h.tracker.DisconnectClient(context.Background(), client.ID())
	logrus.WithField("client_id", client.ID()).Info("Client unregistered from Hub")
}

// handleCommand 解析命令名、分发给注册表，并投递返回的每一条出站消息。
func (h *Hub) handleCommand(msg HubMessage) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"component": "hub",
		"client_id": msg.Client.ID(),
	})

	var envelope dto.CommandEnvelope
	if err := json.Unmarshal(msg.RawData, &envelope); err != nil {
		logCtx.WithError(err).Warn("Failed to parse command envelope")
		h.deliver(dto.Outbound{
			Content: dto.Envelope{"MessageType": "UnrecognizedCommand", "WasSuccessful": false},
			Clients: []string{msg.Client.ID()},
		})
		return
	}

	outbound := h.registry.Dispatch(ctx, envelope.Command, msg.RawData, msg.Client.ID())
	for _, out := range outbound {
		h.deliver(out)
	}
}

// deliver 把一条出站消息序列化后投递给它的每个接收者。
// 慢客户端不阻塞投递：发送通道满时跳过该客户端并记录警告。
func (h *Hub) deliver(out dto.Outbound) {
	if len(out.Clients) == 0 {
		return
	}
	body, err := json.Marshal(out.Content)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound message")
		return
	}

	h.clientsMu.RLock()
	recipients := make([]*Client, 0, len(out.Clients))
	for _, id := range out.Clients {
		if client, ok := h.clients[id]; ok {
			recipients = append(recipients, client)
		}
	}
	h.clientsMu.RUnlock()

	for _, client := range recipients {
		select {
		case client.send <- body:
		default:
			logrus.WithField("client_id", client.ID()).Warn("Client send channel full, skipping this client")
		}
	}
}
