package ws

import (
	"log/slog"
	"net/http"

	"collab-chat/contract"
	"collab-chat/domain"
	"collab-chat/observability"
	"collab-chat/services"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler terminates /ws/{conversation} connections: it authenticates the
// credential, checks membership, then runs the connection's lifecycle until
// the read pump returns.
type Handler struct {
	log      *slog.Logger
	resolver contract.IdentityResolver
	chat     services.IChatService
	stats    *observability.StatsManager
	cfg      Config
}

func NewHandler(log *slog.Logger, resolver contract.IdentityResolver,
	chat services.IChatService, stats *observability.StatsManager, cfg Config) *Handler {
	return &Handler{log: log, resolver: resolver, chat: chat, stats: stats, cfg: cfg}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{conversation}", h.HandleConnection)
}

// HandleConnection upgrades the request and attaches the connection to its
// conversation. Authentication happens before the upgrade so a rejected
// client gets a proper HTTP status instead of a dangling socket.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conversationID := domain.ConversationID(r.PathValue("conversation"))
	if conversationID == "" {
		http.Error(w, "missing conversation", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	identity, err := h.resolver.ResolveIdentity(token)
	if err != nil {
		h.log.Warn("Rejected connection with invalid credential", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.chat.Authorize(conversationID, identity.UserID); err != nil {
		h.log.Warn("Rejected connection from non-member",
			"user_id", identity.UserID, "conversation_id", conversationID)
		http.Error(w, "not a member", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.cfg, h.log)
	sess := h.chat.Join(identity.UserID, conversationID, client)

	go client.WritePump()
	go func() {
		client.ReadPump(func(raw []byte) {
			h.chat.HandleInbound(sess, raw)
		})
		// Read pump exit is the single disconnect signal
		h.chat.Leave(sess)
		_ = client.Close()
	}()
}
