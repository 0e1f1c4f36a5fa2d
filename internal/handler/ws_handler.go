package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/studyquiz/chat-service/internal/audit"
	"github.com/studyquiz/chat-service/internal/auth"
	"github.com/studyquiz/chat-service/internal/config"
	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/internal/hub"
	"github.com/studyquiz/chat-service/internal/service"
	"github.com/studyquiz/chat-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler is the chat session gateway: it authenticates handshakes,
// routes inbound frames, and pushes broker deliveries to subscribed
// connections.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	verifier *auth.Verifier
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, verifier *auth.Verifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
	}
}

// HandleChat upgrades a connection after resolving the caller's
// identity. A handshake without a valid identity is rejected before
// the upgrade, so no frame from it is ever processed.
func (h *WSHandler) HandleChat(c *gin.Context) {
	ident, err := h.verifier.Verify(auth.TokenFromRequest(c.Request))
	if err != nil {
		audit.LogWithDetail(c.Request.Context(), audit.ActionAuthFailed, "", err.Error(), "websocket handshake rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg, ident.UserID, ident.DisplayName)

	h.hub.Register(client)

	// The connection outlives the handshake request, so frame handling
	// runs on its own context carrying the handshake logger enriched
	// with the connection's identity.
	connLogger := log.Ctx(c.Request.Context()).With().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldUserID, strconv.FormatInt(ident.UserID, 10)).
		Logger()
	connCtx := log.WithLogger(context.Background(), connLogger)

	go client.WritePump()
	go client.ReadPump(func(cl *hub.Client, raw []byte) {
		h.handleFrame(connCtx, cl, raw)
	})
}

func (h *WSHandler) handleFrame(ctx context.Context, client *hub.Client, raw []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid frame"))
		return
	}

	switch frame.Type {
	case domain.FrameSubscribe:
		roomID, err := domain.ParseSubscribeDestination(frame.Destination)
		if err != nil {
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadDestination, err.Error()))
			return
		}
		h.hub.JoinRoom(client, strconv.FormatInt(roomID, 10))
		audit.Log(ctx, audit.ActionSubscribe, formatUserID(client), frame.Destination)

	case domain.FrameUnsubscribe:
		roomID, err := domain.ParseSubscribeDestination(frame.Destination)
		if err != nil {
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadDestination, err.Error()))
			return
		}
		h.hub.LeaveRoom(client, strconv.FormatInt(roomID, 10))
		audit.Log(ctx, audit.ActionUnsubscribe, formatUserID(client), frame.Destination)

	case domain.FrameSend:
		h.handlePublish(ctx, client, &frame)

	default:
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown frame type"))
	}
}

func (h *WSHandler) handlePublish(ctx context.Context, client *hub.Client, frame *domain.Frame) {
	if frame.Message == nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "frame has no message"))
		return
	}

	kind, roomID, err := domain.ParsePublishDestination(frame.Destination)
	if err != nil {
		client.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadDestination, err.Error()))
		return
	}

	switch kind {
	case domain.PublishMessage:
		ident := auth.Identity{
			UserID:      client.Session.GetUserID(),
			DisplayName: client.Session.GetDisplayName(),
		}
		stamped, err := h.service.SendMessage(ctx, roomID, *frame.Message, ident)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("message ingestion failed")
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "message not delivered"))
			return
		}
		// Echo the stamped copy back to the originating connection.
		client.SendMessage(domain.NewMessageFrame(stamped))
		audit.Log(ctx, audit.ActionSendMessage, formatUserID(client), frame.Destination)

	case domain.PublishUser:
		if err := h.service.Announce(ctx, roomID, *frame.Message); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("announcement failed")
			client.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "announcement not delivered"))
			return
		}
		audit.Log(ctx, audit.ActionAnnounce, formatUserID(client), frame.Destination)
	}
}

func formatUserID(client *hub.Client) string {
	return strconv.FormatInt(client.Session.GetUserID(), 10)
}
