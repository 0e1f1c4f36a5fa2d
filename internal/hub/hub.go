package hub

import (
	"encoding/json"
	"sync"

	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/pkg/log"
)

// Hub tracks this instance's live connections and which rooms each one
// is subscribed to. Fan-out across instances happens via the broker;
// the hub only delivers to its own connections.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type roomMessage struct {
	roomID  string
	payload []byte
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.rooms[msg.roomID] {
				select {
				case client.Send <- msg.payload:
				default:
					// Slow consumer; drop the connection rather than
					// block delivery to the rest of the room.
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom subscribes client to roomID's broadcast destination.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client subscribed to room")
}

// LeaveRoom drops client's subscription to roomID.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client unsubscribed from room")
}

// BroadcastToRoom pushes message to every local connection subscribed
// to roomID.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &roomMessage{
		roomID:  roomID,
		payload: data,
	}
	return nil
}

// RoomClientCount reports how many local connections are subscribed to
// roomID.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
