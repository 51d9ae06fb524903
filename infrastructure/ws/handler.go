package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"match-lab/auth"
	"match-lab/contract"
	"match-lab/domain"
	"match-lab/observability"
	"match-lab/services"
)

// Application close codes, distinct per failure kind so the remote end
// can tell them apart. 1003/1011 reuse the registered websocket codes.
const (
	CloseMalformedPayload = 4001
	CloseMissingField     = 4002
	CloseUnauthenticated  = 4003
)

// Handler owns the websocket endpoints. Every connection handler holds
// references to the shared registry, pool, and presence service; none
// of that state is ever copied per connection.
type Handler struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	registry   contract.IRegistry
	matchmaker contract.IMatchmaker
	presence   services.IPresenceService
	notifier   *services.Notifier
	stats      *observability.MatchStats
	validate   *validator.Validate
	sendBuffer int
	tokenTTL   time.Duration
}

func NewHandler(log *slog.Logger, registry contract.IRegistry,
	matchmaker contract.IMatchmaker, presence services.IPresenceService,
	notifier *services.Notifier, stats *observability.MatchStats,
	sendBuffer int, tokenTTL time.Duration) *Handler {
	return &Handler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		registry:   registry,
		matchmaker: matchmaker,
		presence:   presence,
		notifier:   notifier,
		stats:      stats,
		validate:   validator.New(),
		sendBuffer: sendBuffer,
		tokenTTL:   tokenTTL,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/matchmaking", h.Matchmaking)
	mux.HandleFunc("/ws/status", h.Status)
	mux.HandleFunc("/ws/chat", h.Chat)
	mux.HandleFunc("/ws/notification", h.Notification)
	mux.HandleFunc("/auth/token", h.Token)
	return mux
}

// Token mints a signed token for a username, so the websocket endpoints
// can be exercised without a separate identity provider.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}

	token, err := auth.GenerateToken(username, h.tokenTTL)
	if err != nil {
		h.log.Error("Token generation failed", "username", username, "error", err)
		http.Error(w, "token generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// Matchmaking drives the core flow: register, flip presence online,
// join the presence group, enter the waiting pool, then route inbound
// accept/reject frames until the peer goes away.
func (h *Handler) Matchmaking(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	identity := auth.Verify(r.URL.Query().Get("token"))
	if identity.IsAnonymous() {
		// The pool needs a durable identity; guests are refused here
		// but still welcome on /ws/status.
		refuse(conn, CloseUnauthenticated, "authentication required")
		return
	}

	client := newClient(conn, identity, h.sendBuffer, h.log)
	go client.writePump()

	h.registry.Register(identity, client)
	h.presence.SetPresence(identity, true)
	h.registry.JoinGroup(domain.PresenceGroup, identity)
	if err := h.matchmaker.Join(r.Context(), identity); err != nil {
		h.log.Warn("Pool join failed", "identity", identity, "error", err)
	}
	h.stats.ConnOpened()
	h.log.Info("Client connected", "identity", identity, "remote", conn.RemoteAddr())

	defer func() {
		h.registry.Unregister(identity)
		h.registry.LeaveGroup(domain.PresenceGroup, identity)
		_ = h.matchmaker.Leave(context.Background(), identity)
		h.presence.SetPresence(identity, false)
		h.stats.ConnClosed()
		client.shutdown()
		h.log.Info("Client disconnected", "identity", identity)
	}()

	h.readLoop(client, func(c *Client, in domain.Inbound) bool {
		switch in.Type {
		case domain.MessageAccept:
			if !h.matchmaker.PostResponse(c.identity, true) {
				h.log.Debug("Response discarded, no open channel", "identity", c.identity)
			}
		case domain.MessageReject:
			if !h.matchmaker.PostResponse(c.identity, false) {
				h.log.Debug("Response discarded, no open channel", "identity", c.identity)
			}
		case domain.MessagePresenceUpdate:
			h.presence.SetPresence(domain.Identity(in.Username), in.OnlineOrDefault())
		case domain.MessageClose:
			c.closeWith(websocket.CloseNormalClosure, "closed by request")
			return false
		default:
			// Unrecognized tags are refused, never silently ignored.
			c.closeWith(websocket.CloseUnsupportedData, "unknown message type")
			return false
		}
		return true
	})
}

// Status is the presence-only endpoint. Anonymous connections are
// accepted under an ephemeral guest handle: they observe presence
// broadcasts but never touch the store or the pool.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	identity := auth.Verify(r.URL.Query().Get("token"))
	key := identity
	if identity.IsAnonymous() {
		key = domain.GuestIdentity()
	}

	client := newClient(conn, key, h.sendBuffer, h.log)
	go client.writePump()

	h.registry.Register(key, client)
	h.registry.JoinGroup(domain.PresenceGroup, key)
	h.presence.SetPresence(identity, true)
	h.stats.ConnOpened()

	defer func() {
		h.registry.Unregister(key)
		h.registry.LeaveGroup(domain.PresenceGroup, key)
		h.presence.SetPresence(identity, false)
		h.stats.ConnClosed()
		client.shutdown()
	}()

	h.readLoop(client, func(c *Client, in domain.Inbound) bool {
		switch in.Type {
		case domain.MessagePresenceUpdate:
			h.presence.SetPresence(domain.Identity(in.Username), in.OnlineOrDefault())
		case domain.MessageClose:
			c.closeWith(websocket.CloseNormalClosure, "closed by request")
			return false
		default:
			c.closeWith(websocket.CloseUnsupportedData, "unknown message type")
			return false
		}
		return true
	})
}

// Chat is the one-to-one relay: every frame posted to the thread is
// fanned out verbatim to both peers, and the recipient's unread counter
// is bumped. No algorithmic content, no persistence.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	identity := auth.Verify(r.URL.Query().Get("token"))
	if identity.IsAnonymous() {
		refuse(conn, CloseUnauthenticated, "authentication required")
		return
	}
	peer := domain.Identity(r.URL.Query().Get("peer"))
	if peer.IsAnonymous() {
		refuse(conn, CloseMissingField, "missing peer")
		return
	}

	// The delivery key is endpoint-scoped so a chat socket never evicts
	// the same user's matchmaking handle from the registry.
	key := domain.Identity("chat:" + identity.String())
	group := domain.ChatGroup(identity, peer)

	client := newClient(conn, key, h.sendBuffer, h.log)
	go client.writePump()

	h.registry.Register(key, client)
	h.registry.JoinGroup(group, key)
	h.notifier.Reset(identity)
	h.stats.ConnOpened()

	defer func() {
		h.registry.Unregister(key)
		h.registry.LeaveGroup(group, key)
		h.stats.ConnClosed()
		client.shutdown()
	}()

	h.readLoop(client, func(c *Client, in domain.Inbound) bool {
		switch in.Type {
		case domain.MessageChat:
			payload, err := json.Marshal(domain.ChatRelay{Message: in.Message, Username: identity})
			if err != nil {
				h.log.Error("Chat frame marshalling failed", "error", err)
				return true
			}
			h.registry.Broadcast(group, payload)
			h.notifier.Bump(peer)
		case domain.MessageClose:
			c.closeWith(websocket.CloseNormalClosure, "closed by request")
			return false
		default:
			c.closeWith(websocket.CloseUnsupportedData, "unknown message type")
			return false
		}
		return true
	})
}

// Notification is the outbound-only counter channel of one user.
func (h *Handler) Notification(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	identity := auth.Verify(r.URL.Query().Get("token"))
	if identity.IsAnonymous() {
		refuse(conn, CloseUnauthenticated, "authentication required")
		return
	}

	key := domain.Identity("notify:" + identity.String())
	group := domain.NotifyGroup(identity)

	client := newClient(conn, key, h.sendBuffer, h.log)
	go client.writePump()

	h.registry.Register(key, client)
	h.registry.JoinGroup(group, key)
	h.stats.ConnOpened()

	defer func() {
		h.registry.Unregister(key)
		h.registry.LeaveGroup(group, key)
		h.stats.ConnClosed()
		client.shutdown()
	}()

	h.readLoop(client, func(c *Client, in domain.Inbound) bool {
		switch in.Type {
		case domain.MessageClose:
			c.closeWith(websocket.CloseNormalClosure, "closed by request")
			return false
		default:
			c.closeWith(websocket.CloseUnsupportedData, "unknown message type")
			return false
		}
	})
}

// readLoop parses and validates every inbound frame before handing it
// to the endpoint's route function. Parse failures, missing fields, and
// unexpected panics each close the connection with their own code.
func (h *Handler) readLoop(c *Client, route func(*Client, domain.Inbound) bool) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			h.log.Debug("Read error", "identity", c.identity, "error", err)
			return
		}

		var in domain.Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.closeWith(CloseMalformedPayload, "malformed payload")
			return
		}
		if err := h.validate.Struct(in); err != nil {
			c.closeWith(CloseMissingField, "missing required field")
			return
		}

		ok := func() (ok bool) {
			defer func() {
				if rec := recover(); rec != nil {
					h.log.Error("Unexpected failure handling frame", "identity", c.identity, "panic", rec)
					c.closeWith(websocket.CloseInternalServerErr, "unexpected failure")
					ok = false
				}
			}()
			return route(c, in)
		}()
		if !ok {
			return
		}
	}
}

// refuse rejects a freshly upgraded connection before any registration
// happened, so there is nothing to tear down besides the socket.
func refuse(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
