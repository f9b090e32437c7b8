package web

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"intradesk/event"
	"intradesk/metrics"
	"intradesk/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源（生产环境应该限制）
	},
}

// WebSocketHub WebSocket 中心
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

var (
	hub        *WebSocketHub
	logStore   *storage.LogStorage
	logStoreMu sync.RWMutex
)

func init() {
	hub = &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
	go hub.Run()
}

// SetLogStorage 设置日志存储（用于实时推送与历史查询）
func SetLogStorage(ls *storage.LogStorage) {
	logStoreMu.Lock()
	defer logStoreMu.Unlock()
	logStore = ls
}

func currentLogStorage() *storage.LogStorage {
	logStoreMu.RLock()
	defer logStoreMu.RUnlock()
	return logStore
}

// Run 运行 WebSocket 中心
func (h *WebSocketHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			count := len(h.clients)
			h.mu.Unlock()
			metrics.GetPrometheusMetrics().SetWSClients(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.GetPrometheusMetrics().SetWSClients(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, conn)
					conn.Close()
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// broadcastJSON 序列化后广播，队列满时直接丢弃
func broadcastJSON(kind string, data interface{}) {
	if hub == nil {
		return
	}
	message, err := json.Marshal(map[string]interface{}{
		"type": kind,
		"data": data,
	})
	if err != nil {
		return
	}
	select {
	case hub.broadcast <- message:
	default:
		// Channel 满了，丢弃消息
	}
}

// BroadcastStatus 广播状态快照
func BroadcastStatus(status *SystemStatus) {
	if status == nil {
		return
	}
	broadcastJSON("status", status)
}

// BroadcastEvent 广播领域事件
func BroadcastEvent(e *event.Event) {
	if e == nil {
		return
	}
	broadcastJSON("event", map[string]interface{}{
		"type":      string(e.Type),
		"timestamp": e.Timestamp,
		"data":      e.Data,
	})
}

func handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	hub.register <- conn

	// 连上即推一帧当前状态，面板无需等下一个广播周期
	if snapshot, err := json.Marshal(map[string]interface{}{
		"type": "status",
		"data": CollectStatus(),
	}); err == nil {
		conn.WriteMessage(websocket.TextMessage, snapshot)
	}

	// 检查是否订阅日志
	subscribeLogs := c.Query("subscribe_logs") == "true"

	var logCh chan *storage.LogRecord
	if subscribeLogs {
		if ls := currentLogStorage(); ls != nil {
			logCh = ls.Subscribe()
			defer ls.Unsubscribe(logCh)
		}
	}

	// 启动日志推送协程
	if logCh != nil {
		go func() {
			for logRecord := range logCh {
				message := map[string]interface{}{
					"type": "log",
					"data": map[string]interface{}{
						"id":        logRecord.ID,
						"timestamp": logRecord.Timestamp,
						"level":     logRecord.Level,
						"message":   logRecord.Message,
					},
				}
				data, err := json.Marshal(message)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}()
	}

	// 保持连接
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.unregister <- conn
			break
		}
	}
}
