package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clipsync-server-go/internal/domain/auth"
	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/logging"
)

// Client request actions.
const (
	actionSyncClipboard    = "sync_clipboard"
	actionPing             = "ping"
	actionGetOnlineDevices = "get_online_devices"
)

// clientMessage is one inbound frame. Clients name the requested action in
// an "action" field; "type" is reserved for server pushes.
type clientMessage struct {
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// syncRequest is the payload of a sync_clipboard action.
type syncRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
}

// Handler authenticates websocket clients and runs their session loops.
type Handler struct {
	auth         *auth.Manager
	registry     *sync.Registry
	orchestrator *sync.Orchestrator
	upgrader     websocket.Upgrader
	logger       *logging.Logger
}

// NewHandler wires the websocket session handler.
func NewHandler(authManager *auth.Manager, registry *sync.Registry,
	orchestrator *sync.Orchestrator, handshakeTimeout time.Duration, logger *logging.Logger) *Handler {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &Handler{
		auth:         authManager,
		registry:     registry,
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle upgrades the request and runs the session until the client leaves.
// Failed authentication closes the socket with a policy violation frame
// before any clipboard data is exchanged.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	deviceID := query.Get("device_id")
	deviceName := query.Get("device_name")
	token := query.Get("token")

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnTag("WebSocket", "upgrade failed: %v", err)
		return
	}
	conn := NewConnection(deviceID, socket)

	if deviceID == "" {
		_ = conn.CloseWithCode(websocket.ClosePolicyViolation, "device_id required")
		return
	}
	identity, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		h.logger.WarnTag("WebSocket", "auth rejected for device %s: %v", deviceID, err)
		_ = conn.CloseWithCode(websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	info := sync.DeviceInfo{
		DeviceID:    deviceID,
		DeviceName:  deviceName,
		UserID:      identity.UserID,
		Username:    identity.Username,
		ConnectedAt: time.Now(),
	}
	h.registry.Register(info, conn)
	defer h.registry.UnregisterConn(deviceID, conn)

	devices := h.registry.ListDevices(identity.UserID)
	_ = conn.SendJSON(sync.NewMessage(sync.MessageConnected, map[string]interface{}{
		"device_id":      deviceID,
		"device_name":    info.DeviceName,
		"username":       identity.Username,
		"online_devices": devices,
		"online_count":   len(devices),
	}))

	h.sessionLoop(r.Context(), conn, identity)
}

func (h *Handler) sessionLoop(ctx context.Context, conn *Connection, identity *auth.Identity) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugTag("WebSocket", "device %s read error: %v", conn.ID(), err)
			}
			return
		}

		switch msg.Action {
		case actionSyncClipboard:
			h.handleSync(ctx, conn, identity, msg.Data)
		case actionPing:
			_ = conn.SendJSON(sync.NewMessage(sync.MessagePong, map[string]interface{}{
				"timestamp": msg.Timestamp,
			}))
		case actionGetOnlineDevices:
			devices := h.registry.ListDevices(identity.UserID)
			_ = conn.SendJSON(sync.NewMessage(sync.MessageOnlineDevices, map[string]interface{}{
				"devices": devices,
				"count":   len(devices),
			}))
		default:
			_ = conn.SendJSON(sync.NewMessage(sync.MessageError, map[string]interface{}{
				"message": "unknown action: " + msg.Action,
			}))
		}
	}
}

func (h *Handler) handleSync(ctx context.Context, conn *Connection, identity *auth.Identity, data json.RawMessage) {
	var req syncRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			_ = conn.SendJSON(sync.NewMessage(sync.MessageError, map[string]interface{}{
				"message": "malformed sync payload",
			}))
			return
		}
	}

	result, err := h.orchestrator.Publish(ctx, sync.PublishRequest{
		UserID:     identity.UserID,
		DeviceID:   conn.ID(),
		DeviceName: h.deviceName(conn.ID(), identity.UserID),
		Content:    req.Content,
		Kind:       sync.ContentKind(req.ContentType),
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		MimeType:   req.MimeType,
	})
	if err != nil {
		_ = conn.SendJSON(sync.NewMessage(sync.MessageError, map[string]interface{}{
			"message": err.Error(),
		}))
		return
	}

	// A dedup hit acknowledges with timestamp_updated, same as the
	// notification its peers receive; sync_confirmed is reserved for newly
	// persisted content.
	ackType := sync.MessageSyncConfirmed
	if result.IsDuplicate {
		ackType = sync.MessageTimestampUpdated
	}
	_ = conn.SendJSON(sync.NewMessage(ackType, result.Payload))
}

func (h *Handler) deviceName(deviceID string, userID int64) string {
	for _, device := range h.registry.ListDevices(userID) {
		if device.DeviceID == deviceID {
			return device.DeviceName
		}
	}
	return deviceID
}
