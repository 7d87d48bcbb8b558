package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"hireLoop/internal/auth"
	"hireLoop/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 5 * time.Second
	wsMaxMessage   = 4 << 10
)

// Subscriber 是订阅通知频道所需的 Redis 能力。
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// wsRejectError 的文本会作为关闭帧原因返回给客户端。
type wsRejectError struct{ reason string }

func (e *wsRejectError) Error() string { return e.reason }

// WsHandler 推送报告生成结果。客户端连接后第一条消息必须是 {"type":"auth","token":"<access token>"}。
type WsHandler struct {
	subscriber  Subscriber
	authService *auth.AuthService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源连接。
func NewWsHandler(subscriber Subscriber, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		subscriber:  subscriber,
		authService: authService,
		logger:      logger,
		upgrader:    websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 完成升级与鉴权后订阅 user_notify:<userID> 并转发。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))
	claims, err := h.authenticate(conn)
	if err != nil {
		log.Info("websocket authentication failed", slog.Any("error", err))
		reason := "unauthorized"
		var reject *wsRejectError
		if errors.As(err, &reject) {
			reason = reject.reason
		}
		writeClose(conn, websocket.ClosePolicyViolation, reason)
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(claims.UserID)))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go drain(conn, cancel)

	err = h.forward(ctx, conn, claims.UserID, log)
	log.Info("websocket connection closed", slog.Any("error", err))
}

func (h *WsHandler) authenticate(conn *websocket.Conn) (*auth.TokenClaims, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	var msg wsAuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, &wsRejectError{reason: "invalid auth payload"}
	}
	if msg.Type != "auth" || msg.Token == "" {
		return nil, &wsRejectError{reason: "auth required"}
	}
	claims, err := h.authService.ValidateToken(msg.Token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, &wsRejectError{reason: "access token required"}
	}
	if claims.MustChangePassword {
		return nil, &wsRejectError{reason: "password change required"}
	}

	// 鉴权后改由 pong 续期读超时。
	_ = conn.SetReadDeadline(time.Now().Add(2 * wsPingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * wsPingInterval))
	})
	return claims, nil
}

// drain 持续读取以处理控制帧，客户端断开或超时后取消 ctx。客户端消息被忽略。
func drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	if err := writeJSON(conn, gin.H{"type": "ready", "channel": channel}); err != nil {
		return err
	}
	log.Debug("subscribed to notify channel", slog.String("channel", channel))

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			writeClose(conn, websocket.CloseNormalClosure, "")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("notify subscription closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return err
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}
