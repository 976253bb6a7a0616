package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eventbem/chat-service/internal/config"
	"github.com/eventbem/chat-service/internal/hub"
	"github.com/eventbem/chat-service/internal/service"
	"github.com/eventbem/chat-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/chat/:eventID", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("eventID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	token := bearerToken(c.Request)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), conn, uint(eventID), h.wsCfg)

	// The request context dies when this handler returns; the session
	// outlives it, so carry only the request-scoped logger forward.
	ctx := log.WithLogger(context.Background(), log.Ctx(c.Request.Context()))

	go client.WritePump()

	if err := h.service.HandleConnect(ctx, client, token); err != nil {
		// The client already received an error payload and close code;
		// never starting the read pump lets the write pump finish up.
		return
	}

	c.Set(log.FieldUserID, strconv.FormatUint(uint64(client.Session.GetUserID()), 10))
	c.Set(log.FieldUsername, client.Session.GetUsername())

	go client.ReadPump(
		func(cl *hub.Client, raw []byte) { h.service.HandleInbound(ctx, cl, raw) },
		func(cl *hub.Client) { h.service.HandleDisconnect(ctx, cl) },
	)
}

// bearerToken extracts the credential from the Authorization header or,
// for browser clients that cannot set WS headers, the token query
// parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
