// Package webhook exposes the HTTP surface: the Wassenger inbound webhook
// plus a small admin API for session inspection and reset.
package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ndomo/agentline/internal/store"
)

// inboundEvent is the only webhook event that reaches the state machine.
const inboundEvent = "message:in:new"

// Handler processes one inbound message. Implemented by engine.Engine.
type Handler interface {
	HandleMessage(ctx context.Context, phone, body, selection string) error
}

// Opts holds parameters for creating a Server.
type Opts struct {
	Store       *store.Store
	Handler     Handler
	VerifyToken string
}

// Server is the webhook HTTP server.
type Server struct {
	store       *store.Store
	handler     Handler
	verifyToken string
	router      *gin.Engine
}

func New(opts Opts) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("webhook: store is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("webhook: handler is required")
	}

	s := &Server{
		store:       opts.Store,
		handler:     opts.Handler,
		verifyToken: opts.VerifyToken,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	s.router = router
	return s, nil
}

// Router exposes the underlying handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("webhook: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/webhook/whatsapp", s.handleVerify)
	router.POST("/webhook/whatsapp", s.handleInbound)

	router.GET("/api/whatsapp/sessions", s.handleSessions)
	router.POST("/api/whatsapp/reset-session", s.handleReset)
}

// handleVerify answers the subscription handshake: echo the challenge when
// the verify token matches.
func (s *Server) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

type replyItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type inboundData struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	FromNumber       string          `json:"fromNumber"`
	Timestamp        int64           `json:"timestamp"`
	Body             string          `json:"body"`
	ListReply        *replyItem      `json:"listReply"`
	SelectedButtonID string          `json:"selectedButtonId"`
	ButtonReply      json.RawMessage `json:"buttonReply"`
}

type inboundEnvelope struct {
	Event string      `json:"event"`
	Data  inboundData `json:"data"`
}

func (s *Server) handleInbound(c *gin.Context) {
	var env inboundEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if env.Event != inboundEvent {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if env.Data.FromNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sender"})
		return
	}

	data := env.Data
	selection := extractSelection(data)
	msgID := data.ID
	if msgID == "" {
		msgID = syntheticID(data.FromNumber, data.Body, data.Timestamp)
	}

	sess, err := s.store.FindOrCreate(data.FromNumber)
	if err != nil {
		log.Printf("webhook: load session for %s: %v", data.FromNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session load failed"})
		return
	}

	content, _ := json.Marshal(gin.H{"body": data.Body, "selection": selection, "type": data.Type})
	if err := s.store.RecordInbound(sess.ID, msgID, data.Type, string(content)); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			// Webhook redelivery: already handled, ack and do nothing.
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
		log.Printf("webhook: record message %s: %v", msgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message log failed"})
		return
	}

	if err := s.handler.HandleMessage(c.Request.Context(), data.FromNumber, data.Body, selection); err != nil {
		// The message is logged as processed; a retry would be deduplicated.
		log.Printf("webhook: handle message %s: %v", msgID, err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// extractSelection pulls an interactive reply ID out of the payload. List
// replies win over button replies; button replies arrive either as an
// object or as a bare string depending on the WhatsApp client version.
func extractSelection(data inboundData) string {
	if data.ListReply != nil {
		if data.ListReply.ID != "" {
			return data.ListReply.ID
		}
		return data.ListReply.Title
	}
	if data.SelectedButtonID != "" {
		return data.SelectedButtonID
	}
	if len(data.ButtonReply) > 0 {
		var obj replyItem
		if err := json.Unmarshal(data.ButtonReply, &obj); err == nil && obj.ID != "" {
			return obj.ID
		}
		var s string
		if err := json.Unmarshal(data.ButtonReply, &s); err == nil {
			return s
		}
	}
	return ""
}

// syntheticID builds a deterministic fallback ID for payloads without one.
// It hashes the payload's own timestamp, not the wall clock, so a late
// redelivery of the same message still deduplicates.
func syntheticID(phone, text string, ts int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", phone, text, ts)))
	return "gen_" + hex.EncodeToString(sum[:])[:20]
}

type sessionView struct {
	Phone        string    `json:"phone"`
	State        string    `json:"state"`
	Agent        *string   `json:"agent"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions, err := s.store.Active(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			Phone:        sess.PhoneNumber,
			State:        sess.State,
			Agent:        agentName(sess.Context),
			LastActivity: sess.LastActivity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views, "count": len(views)})
}

// agentName digs the logged-in agent's name out of the stored context.
func agentName(rawContext string) *string {
	var ctx struct {
		Auth struct {
			AgentName string `json:"agent_name"`
		} `json:"auth"`
	}
	if err := json.Unmarshal([]byte(rawContext), &ctx); err != nil {
		return nil
	}
	if ctx.Auth.AgentName == "" {
		return nil
	}
	return &ctx.Auth.AgentName
}

func (s *Server) handleReset(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	if err := s.store.Reset(req.Phone); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "phone": req.Phone})
}
