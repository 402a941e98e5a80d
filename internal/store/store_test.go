package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ndomo/agentline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(openTestDB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func TestNew_NilDB(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestFindOrCreate_CreatesInitialSession(t *testing.T) {
	st := newTestStore(t)

	sess, err := st.FindOrCreate("+242061234567")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if sess.State != StateAwaitingLogin {
		t.Errorf("State = %q, want %q", sess.State, StateAwaitingLogin)
	}
	if !sess.Active {
		t.Error("new session should be active")
	}
	if sess.Context != "{}" {
		t.Errorf("Context = %q, want empty object", sess.Context)
	}
	if sess.ID == "" {
		t.Error("expected a generated session ID")
	}
}

func TestFindOrCreate_ReturnsExisting(t *testing.T) {
	st := newTestStore(t)

	first, err := st.FindOrCreate("+242061234567")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	first.State = "MAIN_MENU"
	if err := st.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, err := st.FindOrCreate("+242061234567")
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID = %q, want %q (same session)", second.ID, first.ID)
	}
	if second.State != "MAIN_MENU" {
		t.Errorf("State = %q, want MAIN_MENU", second.State)
	}
}

func TestRecordInbound_DuplicateIsNoOp(t *testing.T) {
	st := newTestStore(t)
	sess, _ := st.FindOrCreate("+242061234567")

	if err := st.RecordInbound(sess.ID, "wamid.42", "chat", `{"text":"1"}`); err != nil {
		t.Fatalf("first RecordInbound: %v", err)
	}
	err := st.RecordInbound(sess.ID, "wamid.42", "chat", `{"text":"1"}`)
	if !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("error = %v, want ErrDuplicateMessage", err)
	}

	var count int64
	st.db.Model(&models.MessageLog{}).Count(&count)
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
}

func TestReset(t *testing.T) {
	st := newTestStore(t)
	sess, _ := st.FindOrCreate("+242061234567")
	agentID := 7
	sess.State = "MAIN_MENU"
	sess.Context = `{"auth":{"agent_id":7}}`
	sess.AgentID = &agentID
	if err := st.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := st.Reset("+242061234567"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	got, _ := st.FindOrCreate("+242061234567")
	if got.State != StateAwaitingLogin {
		t.Errorf("State = %q, want %q", got.State, StateAwaitingLogin)
	}
	if got.Context != "{}" {
		t.Errorf("Context = %q, want empty object", got.Context)
	}
	if got.AgentID != nil {
		t.Errorf("AgentID = %v, want nil", *got.AgentID)
	}
	if !got.Active {
		t.Error("reset session should be active")
	}
}

func TestReset_UnknownPhone(t *testing.T) {
	st := newTestStore(t)
	err := st.Reset("+242069999999")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestActive_OrderAndLimit(t *testing.T) {
	st := newTestStore(t)

	phones := []string{"+242060000001", "+242060000002", "+242060000003"}
	for i, p := range phones {
		sess, _ := st.FindOrCreate(p)
		sess.LastActivity = time.Now().Add(time.Duration(i) * time.Minute)
		if err := st.db.Save(sess).Error; err != nil {
			t.Fatalf("save %s: %v", p, err)
		}
	}
	// Deactivate the middle one.
	st.db.Model(&models.Session{}).
		Where("phone_number = ?", phones[1]).
		Update("active", false)

	sessions, err := st.Active(20)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	if sessions[0].PhoneNumber != phones[2] {
		t.Errorf("first = %s, want most recent %s", sessions[0].PhoneNumber, phones[2])
	}

	limited, err := st.Active(1)
	if err != nil {
		t.Fatalf("Active(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len = %d, want 1", len(limited))
	}
}

func TestMarkIdle(t *testing.T) {
	st := newTestStore(t)

	stale, _ := st.FindOrCreate("+242060000001")
	stale.LastActivity = time.Now().Add(-100 * time.Hour)
	if err := st.db.Save(stale).Error; err != nil {
		t.Fatalf("save stale: %v", err)
	}
	fresh, _ := st.FindOrCreate("+242060000002")
	if err := st.Save(fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	n, err := st.MarkIdle(time.Now().Add(-72 * time.Hour))
	if err != nil {
		t.Fatalf("MarkIdle: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}

	var got models.Session
	st.db.Where("phone_number = ?", "+242060000001").First(&got)
	if got.Active {
		t.Error("stale session should be inactive")
	}
	if got.State != StateAwaitingLogin {
		t.Errorf("State = %q — sweep must not change state", got.State)
	}
}

func TestLock_SerializesSamePhone(t *testing.T) {
	st := newTestStore(t)

	var order []int
	var mu sync.Mutex
	unlock := st.Lock("+242061234567")

	done := make(chan struct{})
	go func() {
		u := st.Lock("+242061234567")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		u()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlock()
	<-done

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}

func TestLock_DifferentPhonesIndependent(t *testing.T) {
	st := newTestStore(t)

	unlock := st.Lock("+242060000001")
	defer unlock()

	acquired := make(chan struct{})
	go func() {
		u := st.Lock("+242060000002")
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different phone should not block")
	}
}
