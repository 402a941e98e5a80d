package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ndomo/agentline/internal/models"
	"github.com/ndomo/agentline/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handledMessage struct {
	phone     string
	body      string
	selection string
}

type mockHandler struct {
	mu      sync.Mutex
	handled []handledMessage
	err     error
}

func (m *mockHandler) HandleMessage(_ context.Context, phone, body, selection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, handledMessage{phone: phone, body: body, selection: selection})
	return m.err
}

func newTestServer(t *testing.T) (*Server, *store.Store, *mockHandler) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Session{}, &models.MessageLog{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	handler := &mockHandler{}
	srv, err := New(Opts{Store: st, Handler: handler, VerifyToken: "vt-secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, st, handler
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func inboundPayload(msgID, phone, body string) map[string]any {
	return map[string]any{
		"event": "message:in:new",
		"data": map[string]any{
			"id":         msgID,
			"type":       "text",
			"fromNumber": phone,
			"body":       body,
		},
	}
}

// ---------------------------------------------------------------------
// Verification handshake
// ---------------------------------------------------------------------

func TestVerify_EchoesChallenge(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=vt-secret&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("body = %q, want challenge echo", w.Body.String())
	}
}

func TestVerify_WrongToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

// ---------------------------------------------------------------------
// Inbound messages
// ---------------------------------------------------------------------

func TestInbound_DispatchesToHandler(t *testing.T) {
	srv, _, handler := newTestServer(t)

	w := postJSON(t, srv, "/webhook/whatsapp", inboundPayload("wamid-1", "+242061234567", "bonjour"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(handler.handled) != 1 {
		t.Fatalf("handled = %d messages", len(handler.handled))
	}
	got := handler.handled[0]
	if got.phone != "+242061234567" || got.body != "bonjour" || got.selection != "" {
		t.Errorf("handled = %+v", got)
	}
}

func TestInbound_DuplicateIsAckedOnce(t *testing.T) {
	srv, _, handler := newTestServer(t)
	payload := inboundPayload("wamid-dup", "+242061234567", "bonjour")

	postJSON(t, srv, "/webhook/whatsapp", payload)
	w := postJSON(t, srv, "/webhook/whatsapp", payload)

	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "duplicate" {
		t.Errorf("status = %q, want duplicate", resp["status"])
	}
	if len(handler.handled) != 1 {
		t.Errorf("handled = %d messages, want 1", len(handler.handled))
	}
}

func TestInbound_OtherEventsIgnored(t *testing.T) {
	srv, _, handler := newTestServer(t)

	w := postJSON(t, srv, "/webhook/whatsapp", map[string]any{
		"event": "message:out:ack",
		"data":  map[string]any{"id": "x", "fromNumber": "+242061234567"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(handler.handled) != 0 {
		t.Errorf("non-inbound event reached the handler")
	}
}

func TestInbound_ListReplySelection(t *testing.T) {
	srv, _, handler := newTestServer(t)

	w := postJSON(t, srv, "/webhook/whatsapp", map[string]any{
		"event": "message:in:new",
		"data": map[string]any{
			"id":         "wamid-2",
			"type":       "list_reply",
			"fromNumber": "+242061234567",
			"body":       "PASS BATELA",
			"listReply":  map[string]string{"id": "batela", "title": "PASS BATELA"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if handler.handled[0].selection != "batela" {
		t.Errorf("selection = %q, want batela", handler.handled[0].selection)
	}
}

func TestInbound_ButtonReplyShapes(t *testing.T) {
	srv, _, handler := newTestServer(t)

	// Object form.
	postJSON(t, srv, "/webhook/whatsapp", map[string]any{
		"event": "message:in:new",
		"data": map[string]any{
			"id":          "wamid-3",
			"type":        "button_reply",
			"fromNumber":  "+242061234567",
			"buttonReply": map[string]string{"id": "menu_1", "title": "1️⃣ Souscrire PASS"},
		},
	})
	// Bare string form.
	postJSON(t, srv, "/webhook/whatsapp", map[string]any{
		"event": "message:in:new",
		"data": map[string]any{
			"id":          "wamid-4",
			"type":        "button_reply",
			"fromNumber":  "+242061234567",
			"buttonReply": "menu_2",
		},
	})

	if len(handler.handled) != 2 {
		t.Fatalf("handled = %d messages", len(handler.handled))
	}
	if handler.handled[0].selection != "menu_1" {
		t.Errorf("object selection = %q", handler.handled[0].selection)
	}
	if handler.handled[1].selection != "menu_2" {
		t.Errorf("string selection = %q", handler.handled[1].selection)
	}
}

func TestInbound_MissingIDGetsSynthetic(t *testing.T) {
	srv, _, handler := newTestServer(t)

	w := postJSON(t, srv, "/webhook/whatsapp", inboundPayload("", "+242061234567", "bonjour"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(handler.handled) != 1 {
		t.Fatalf("handled = %d messages", len(handler.handled))
	}
}

func TestInbound_MissingIDRedeliveryDeduplicated(t *testing.T) {
	srv, _, handler := newTestServer(t)

	payload := inboundPayload("", "+242061234567", "bonjour")
	payload["data"].(map[string]any)["timestamp"] = 1756400000

	postJSON(t, srv, "/webhook/whatsapp", payload)
	w := postJSON(t, srv, "/webhook/whatsapp", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "duplicate") {
		t.Errorf("redelivery should be acked as duplicate, got %s", w.Body.String())
	}
	if len(handler.handled) != 1 {
		t.Fatalf("handled = %d messages, want 1", len(handler.handled))
	}
}

func TestSyntheticID_Deterministic(t *testing.T) {
	id := syntheticID("+242061234567", "bonjour", 1756400000)
	if len(id) != 24 || id[:4] != "gen_" {
		t.Errorf("id = %q, want gen_ prefix and 20 hex chars", id)
	}
	if again := syntheticID("+242061234567", "bonjour", 1756400000); again != id {
		t.Errorf("same payload produced %q then %q", id, again)
	}
	if other := syntheticID("+242061234567", "bonjour", 1756400060); other == id {
		t.Error("different timestamps should produce different ids")
	}
}

func TestInbound_MissingSender(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := postJSON(t, srv, "/webhook/whatsapp", map[string]any{
		"event": "message:in:new",
		"data":  map[string]any{"id": "wamid-5", "body": "hello"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestInbound_HandlerErrorStillAcks(t *testing.T) {
	srv, _, handler := newTestServer(t)
	handler.err = context.DeadlineExceeded

	w := postJSON(t, srv, "/webhook/whatsapp", inboundPayload("wamid-6", "+242061234567", "x"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite handler error", w.Code)
	}
}

// ---------------------------------------------------------------------
// Admin API
// ---------------------------------------------------------------------

func TestSessions_ListsActive(t *testing.T) {
	srv, st, _ := newTestServer(t)

	sess, err := st.FindOrCreate("+242061234567")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	sess.State = "MAIN_MENU"
	sess.Context = `{"auth":{"access_token":"tok","agent_name":"Jean Mavoungou"}}`
	if err := st.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whatsapp/sessions", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count    int           `json:"count"`
		Sessions []sessionView `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d", resp.Count)
	}
	if resp.Sessions[0].Agent == nil || *resp.Sessions[0].Agent != "Jean Mavoungou" {
		t.Errorf("agent = %v", resp.Sessions[0].Agent)
	}
}

func TestSessions_AnonymousAgentIsNull(t *testing.T) {
	srv, st, _ := newTestServer(t)
	if _, err := st.FindOrCreate("+242061234567"); err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whatsapp/sessions", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var resp struct {
		Sessions []sessionView `json:"sessions"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sessions) != 1 || resp.Sessions[0].Agent != nil {
		t.Errorf("sessions = %+v, want one with null agent", resp.Sessions)
	}
}

func TestReset(t *testing.T) {
	srv, st, _ := newTestServer(t)
	sess, _ := st.FindOrCreate("+242061234567")
	sess.State = "MAIN_MENU"
	st.Save(sess)

	w := postJSON(t, srv, "/api/whatsapp/reset-session", map[string]string{"phone": "+242061234567"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	sess, _ = st.FindOrCreate("+242061234567")
	if sess.State != "AWAITING_LOGIN" {
		t.Errorf("state after reset = %q", sess.State)
	}
}

func TestReset_UnknownPhone(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := postJSON(t, srv, "/api/whatsapp/reset-session", map[string]string{"phone": "+242000000000"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestNew_RequiredOpts(t *testing.T) {
	if _, err := New(Opts{Handler: &mockHandler{}}); err == nil {
		t.Error("expected error for missing store")
	}
}
