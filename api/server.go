// Package api is the HTTP face of the chat: account endpoints, conversation
// management, and message history. Live traffic goes through the ws package;
// this one only answers request/response calls.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"collab-chat/contract"
	"collab-chat/domain"
	"collab-chat/observability"
	"collab-chat/services"
)

type Server struct {
	log           *slog.Logger
	auth          services.IAuthService
	conversations services.IConversationService
	stats         *observability.StatsManager
}

func NewServer(log *slog.Logger, auth services.IAuthService,
	conversations services.IConversationService, stats *observability.StatsManager) *Server {
	return &Server{log: log, auth: auth, conversations: conversations, stats: stats}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/conversations", RequireAuth(s.auth, s.handleListConversations))
	mux.HandleFunc("POST /api/conversations", RequireAuth(s.auth, s.handleCreateDirect))
	mux.HandleFunc("GET /api/conversations/{id}/messages", RequireAuth(s.auth, s.handleGetMessages))
	mux.HandleFunc("POST /api/conversations/{id}/messages", RequireAuth(s.auth, s.handlePostMessage))
	mux.HandleFunc("POST /api/conversations/{id}/read", RequireAuth(s.auth, s.handleMarkRead))

	mux.HandleFunc("POST /api/groups", RequireAuth(s.auth, s.handleCreateGroup))
	mux.HandleFunc("POST /api/groups/{id}/join", RequireAuth(s.auth, s.handleJoinGroup))
	mux.HandleFunc("POST /api/groups/{id}/leave", RequireAuth(s.auth, s.handleLeaveGroup))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Register(req.Email, req.Username, req.Password)
	if err != nil {
		s.log.Warn("Registration failed", "email", req.Email, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token.String()})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, statusFor(err), "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token.String()})
}

type conversationResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func toConversationResponse(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:           c.ID.String(),
		Kind:         string(c.Kind),
		Name:         c.Name,
		Description:  c.Description,
		Participants: c.Participants,
		CreatedAt:    c.CreatedAt,
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	conversations, err := s.conversations.List(identity.UserID)
	if err != nil {
		s.log.Error("Failed to list conversations", "user_id", identity.UserID, "error", err)
		writeError(w, statusFor(err), "failed to list conversations")
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, toConversationResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

type createDirectRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCreateDirect(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var req createDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conversation, err := s.conversations.CreateDirect(identity.UserID, req.UserID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toConversationResponse(conversation))
}

type messageResponse struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := domain.ConversationID(r.PathValue("id"))

	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}

	messages, nextCursor, err := s.conversations.GetMessages(id, identity.UserID, cursor)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ID.String(),
			SenderID:  m.Author,
			Content:   m.Content,
			Kind:      m.Kind,
			CreatedAt: m.At,
		})
	}
	body := map[string]any{"messages": out}
	if nextCursor != nil && *nextCursor != "" {
		body["next_cursor"] = *nextCursor
	}
	writeJSON(w, http.StatusOK, body)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := domain.ConversationID(r.PathValue("id"))

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	message, err := s.conversations.PostMessage(id, identity.UserID, req.Content)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{
		ID:        message.ID.String(),
		SenderID:  message.SenderID,
		Content:   message.Content,
		Kind:      message.Kind,
		CreatedAt: message.CreatedAt,
	})
}

type markReadRequest struct {
	MessageID string `json:"message_id"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := domain.ConversationID(r.PathValue("id"))

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	if err := s.conversations.MarkRead(id, identity.UserID, req.MessageID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createGroupRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Participants []string `json:"participants"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	conversation, err := s.conversations.CreateGroup(req.Name, req.Description, identity.UserID, req.Participants)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toConversationResponse(conversation))
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := domain.ConversationID(r.PathValue("id"))

	if err := s.conversations.Join(id, identity.UserID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := domain.ConversationID(r.PathValue("id"))

	if err := s.conversations.Leave(id, identity.UserID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// interface guard so middleware stays aligned with the auth service
var _ contract.IdentityResolver = (services.IAuthService)(nil)
