package infra

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"go.uber.org/zap"
)

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// SocketConn websocket connection safe for concurrent writers
type SocketConn struct {
	*websocket.Conn
	mu sync.Mutex
}

// WriteJSON serialize writes, timer callbacks and request handlers may push at the same time
func (sc *SocketConn) WriteJSON(v interface{}) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sc.Conn.WriteJSON(v)
}

// SocketHandler owns the connection until it returns, the connection is closed afterwards
type SocketHandler func(ctx context.Context, c echo.Context, conn *SocketConn) error

// Websocket upgrades echo requests
type Websocket struct {
	upgrader websocket.Upgrader
}

// NewWebsocket .
func NewWebsocket() *Websocket {
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
	}
}

// WithHeartbeat wrap handler function with heartbeat probe
func (ws *Websocket) WithHeartbeat(handler SocketHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// upgrader has already replied
			return nil
		}

		sc := &SocketConn{Conn: conn}
		ctx, cancel := context.WithCancel(c.Request().Context())
		defer func() {
			cancel()
			conn.Close()
		}()

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		go heartbeatRoutine(ctx, sc)

		if err := handler(ctx, c, sc); err != nil && !isNormalClosure(err) {
			logging.ExtractLoggerFromContext(ctx).Debug("websocket closed", zap.Error(err))
		}
		return nil
	}
}

func heartbeatRoutine(ctx context.Context, conn *SocketConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func isNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
