package queue

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/ambulance-fleet-api/internal/logger"
	"github.com/iliyamo/ambulance-fleet-api/internal/mailer"
)

type fakeSender struct {
	sent []mailer.Email
	err  error
}

func (f *fakeSender) Send(e mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleRestoreSendsMail(t *testing.T) {
	mail := &fakeSender{}
	h := &EventHandler{Mail: mail, RestoreURL: "https://fleet.example/restore", Log: logger.Nop()}
	until := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)

	err := h.Handle(mustJSON(t, AuthEvent{
		Type:        EventPasswordRestoreRequested,
		UserID:      "u1",
		Email:       "ana@example.com",
		Name:        "Ana",
		RestoreCode: "abc123",
		ValidUntil:  &until,
	}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails", len(mail.sent))
	}
	got := mail.sent[0]
	if got.To[0] != "ana@example.com" {
		t.Fatalf("to = %v", got.To)
	}
	if !strings.Contains(got.HTMLBody, "https://fleet.example/restore?code=abc123") {
		t.Fatalf("link missing from body: %s", got.HTMLBody)
	}
}

func TestHandleAuditOnlyEvents(t *testing.T) {
	mail := &fakeSender{}
	h := &EventHandler{Mail: mail, Log: logger.Nop()}

	if err := h.Handle(mustJSON(t, AuthEvent{Type: EventRoleUpgraded, UserID: "u1", Role: "DRIVER"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatal("audit event must not send mail")
	}
}

func TestHandleRejectsBadMessages(t *testing.T) {
	h := &EventHandler{Mail: &fakeSender{}, Log: logger.Nop()}

	if err := h.Handle([]byte("{not json")); err == nil {
		t.Fatal("malformed body accepted")
	}
	if err := h.Handle(mustJSON(t, AuthEvent{Type: EventPasswordRestoreRequested, UserID: "u1"})); err == nil {
		t.Fatal("restore event without code accepted")
	}

	until := time.Now()
	failing := &EventHandler{Mail: &fakeSender{err: errors.New("smtp down")}, Log: logger.Nop()}
	err := failing.Handle(mustJSON(t, AuthEvent{
		Type: EventPasswordRestoreRequested, Email: "a@b.c", RestoreCode: "x", ValidUntil: &until,
	}))
	if err == nil {
		t.Fatal("send failure swallowed")
	}
}
