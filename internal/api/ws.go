package api

import (
	"net/http"
	"time"

	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type eventRoutes struct {
	hub *service.EventHub
}

func NewEventRoutes(handler *gin.RouterGroup, hub *service.EventHub, a *auth.TokenAuth) {
	r := &eventRoutes{hub: hub}
	handler.GET("/ws", a.TokenAuthMiddleware(), r.handleWebSocket)
}

func (r *eventRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		log.Error("auth claims not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// subscribe before the handshake completes so no event slips in between
	sub := r.hub.Subscribe(claims.Subject, claims.Role == auth.RoleAdmin)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.hub.Unsubscribe(sub)
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	go r.readLoop(conn, sub)
	r.writeLoop(conn, sub)
}

// readLoop discards client frames and unsubscribes once the peer goes away,
// which closes sub.C and ends writeLoop.
func (r *eventRoutes) readLoop(conn *websocket.Conn, sub *service.Subscription) {
	defer r.hub.Unsubscribe(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Logger().Info("websocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (r *eventRoutes) writeLoop(conn *websocket.Conn, sub *service.Subscription) {
	defer conn.Close()

	for event := range sub.C {
		out, err := json.Marshal(event)
		if err != nil {
			logger.Logger().Error("error marshaling event", zap.Error(err))
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err = conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Logger().Info("error sending event", zap.Error(err))
			r.hub.Unsubscribe(sub)
			return
		}
	}
}
