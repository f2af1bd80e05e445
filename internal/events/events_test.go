package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	kafka "github.com/segmentio/kafka-go"

	"github.com/jredh-dev/rooted/pkg/models"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, Event) error {
	n.calls++
	return n.err
}

func donationMessage(t *testing.T, typ Type) kafka.Message {
	t.Helper()
	e, err := New(typ, "d1", models.Donation{ID: "d1", CropID: "c1", CommunityName: "Eastside Pantry", Status: models.DonationPending})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	value, _ := json.Marshal(e)
	return kafka.Message{Key: []byte(e.EntityID), Value: value}
}

func TestHandleDelivers(t *testing.T) {
	n := &countingNotifier{}
	dlq := &fakeWriter{}
	c := &Consumer{dlq: dlq, notifier: n}

	if err := c.handle(context.Background(), donationMessage(t, DonationRequested)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n.calls != 1 || len(dlq.msgs) != 0 {
		t.Errorf("expected 1 call and empty DLQ, got %d calls and %d dead letters", n.calls, len(dlq.msgs))
	}
}

func TestHandleRetriesThenDeadLetters(t *testing.T) {
	n := &countingNotifier{err: errors.New("webhook down")}
	dlq := &fakeWriter{}
	c := &Consumer{dlq: dlq, notifier: n}

	if err := c.handle(context.Background(), donationMessage(t, DonationUpdated)); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if n.calls != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, n.calls)
	}
	if len(dlq.msgs) != 1 || string(dlq.msgs[0].Key) != "d1" {
		t.Errorf("expected one dead letter keyed d1, got %+v", dlq.msgs)
	}
}

func TestHandleSkipsOtherEvents(t *testing.T) {
	n := &countingNotifier{}
	c := &Consumer{dlq: &fakeWriter{}, notifier: n}
	e, _ := New(CropListed, "c1", models.Crop{ID: "c1"})
	value, _ := json.Marshal(e)

	if err := c.handle(context.Background(), kafka.Message{Value: value}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n.calls != 0 {
		t.Errorf("expected no notification for %s", CropListed)
	}
}

func TestHandleBadPayload(t *testing.T) {
	dlq := &fakeWriter{}
	c := &Consumer{dlq: dlq, notifier: &countingNotifier{}}
	if err := c.handle(context.Background(), kafka.Message{Value: []byte("{")}); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if len(dlq.msgs) != 1 {
		t.Errorf("expected malformed message in DLQ")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := donationMessage(t, DonationRequested)
	var e Event
	json.Unmarshal(m.Value, &e)

	if err := NewWebhookNotifier(srv.URL).Notify(context.Background(), e); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.Text != "Eastside Pantry requested a donation of crop c1" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.Event.ID != e.ID {
		t.Errorf("expected event %s, got %s", e.ID, got.Event.ID)
	}
}

func TestWebhookNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	e, _ := New(DonationUpdated, "d1", models.Donation{ID: "d1"})
	if err := NewWebhookNotifier(srv.URL).Notify(context.Background(), e); err == nil {
		t.Fatal("expected error on 502")
	}
}
