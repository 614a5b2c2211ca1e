package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/masambo/jukebox-joy-scan/core/auth"
	"github.com/masambo/jukebox-joy-scan/core/scan"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// scanProgressHub 把条目状态更新扇出给各会话的WebSocket订阅者
type scanProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func newScanProgressHub() *scanProgressHub {
	return &scanProgressHub{subs: make(map[string]map[*websocket.Conn]bool)}
}

func (hub *scanProgressHub) Subscribe(sessionID string, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.subs[sessionID] == nil {
		hub.subs[sessionID] = make(map[*websocket.Conn]bool)
	}
	hub.subs[sessionID][conn] = true
}

func (hub *scanProgressHub) Unsubscribe(sessionID string, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	delete(hub.subs[sessionID], conn)
}

// Publish 把一条条目快照推送给会话的所有订阅者。
// 写入失败的连接被丢弃。
func (hub *scanProgressHub) Publish(sessionID string, item scan.Item) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for conn := range hub.subs[sessionID] {
		if err := conn.WriteJSON(map[string]interface{}{
			"type": "item",
			"item": item,
		}); err != nil {
			conn.Close()
			delete(hub.subs[sessionID], conn)
		}
	}
}

// CloseSession 断开已结束会话的所有订阅者
func (hub *scanProgressHub) CloseSession(sessionID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for conn := range hub.subs[sessionID] {
		conn.WriteJSON(map[string]interface{}{"type": "closed"})
		conn.Close()
	}
	delete(hub.subs, sessionID)
}

// WebSocketScanHandler 推送会话扫描进度。连接后先收到当前全部条目
// 的快照，之后每次条目状态变化推送一条更新。
// 浏览器的WebSocket不带Authorization头，令牌通过token查询参数传入，
// 升级连接前先校验身份和酒吧管理权限。
func (h *APIHandler) WebSocketScanHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	sessionID := mux.Vars(r)["id"]
	session, ok := h.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "Scan session not found", http.StatusNotFound)
		return
	}

	if !claims.HasRole(model.RoleAdmin) {
		manages, err := h.barRepo.ManagesBar(r.Context(), claims.UserID, session.BarID)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !manages {
			http.Error(w, "You do not manage this bar", http.StatusForbidden)
			return
		}
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	if err := conn.WriteJSON(map[string]interface{}{
		"type":  "snapshot",
		"items": session.Items(),
	}); err != nil {
		conn.Close()
		return
	}

	h.progress.Subscribe(sessionID, conn)
	defer func() {
		h.progress.Unsubscribe(sessionID, conn)
		conn.Close()
	}()

	// 读循环只用于感知客户端断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
