package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/repository"
	"github.com/tapin/server/internal/services"
)

// WebSocketHandler upgrades connections and routes client messages to
// the hub. Clients authenticate with their API key and may only
// subscribe to groups they belong to.
type WebSocketHandler struct {
	hub       *services.WebSocketHub
	userRepo  repository.UserRepo
	groupRepo repository.GroupRepo
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.WebSocketHub, userRepo repository.UserRepo, groupRepo repository.GroupRepo) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		userRepo:  userRepo,
		groupRepo: groupRepo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type wsClientMessage struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId,omitempty"`
}

// HandleWebSocket upgrades the HTTP connection and starts the pumps
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)
	h.hub.SetUserID(client, user.ID)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

// authenticate resolves the connecting user from the X-API-Key header
// or the api_key query parameter (browser WebSocket clients cannot set
// custom headers).
func (h *WebSocketHandler) authenticate(r *http.Request) (*models.User, error) {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, models.ErrNotAuthenticated
	}

	user, err := h.userRepo.GetByAPIKeyHash(r.Context(), models.HashAPIKey(apiKey))
	if err != nil || user == nil {
		return nil, models.ErrNotAuthenticated
	}
	return user, nil
}

func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg wsClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, "Invalid message")
		return
	}

	switch msg.Type {
	case services.WSTypeSubscribe:
		if msg.GroupID == "" {
			h.sendError(client, "groupId is required")
			return
		}
		if !h.isMember(client.UserID, msg.GroupID) {
			h.sendError(client, "Not a member of this group")
			return
		}
		h.hub.Subscribe(client, services.GroupTopic(msg.GroupID))

	case services.WSTypeUnsubscribe:
		if msg.GroupID != "" {
			h.hub.Unsubscribe(client, services.GroupTopic(msg.GroupID))
		}

	case services.WSTypePing:
		h.send(client, services.WSMessage{Type: services.WSTypePong})

	default:
		h.sendError(client, "Unknown message type")
	}
}

func (h *WebSocketHandler) isMember(userID, groupID string) bool {
	group, err := h.groupRepo.GetByID(context.Background(), groupID)
	if err != nil || group == nil {
		return false
	}
	return group.Member(userID) != nil
}

func (h *WebSocketHandler) send(client *services.WSClient, msg services.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func (h *WebSocketHandler) sendError(client *services.WSClient, message string) {
	h.send(client, services.WSMessage{
		Type:    services.WSTypeError,
		Payload: map[string]string{"message": message},
	})
}
