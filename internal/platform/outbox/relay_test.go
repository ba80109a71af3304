package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// -- Mocks --

type mockRepo struct {
	events    []*Event
	processed map[int64]bool
	failed    map[int64]string
	nextID    int64
	fetchErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{processed: map[int64]bool{}, failed: map[int64]string{}}
}

func (m *mockRepo) Append(_ context.Context, e *Event) error {
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *mockRepo) FetchPending(_ context.Context, maxRetries, limit int) ([]*Event, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []*Event
	for _, e := range m.events {
		if m.processed[e.ID] || e.RetryCount >= maxRetries {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) MarkProcessed(_ context.Context, id int64) error {
	m.processed[id] = true
	return nil
}

func (m *mockRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	m.failed[id] = reason
	for _, e := range m.events {
		if e.ID == id {
			e.RetryCount++
		}
	}
	return nil
}

func (m *mockRepo) PendingCount(_ context.Context) (int, error) {
	n := 0
	for _, e := range m.events {
		if !m.processed[e.ID] {
			n++
		}
	}
	return n, nil
}

// Purge ignores age; every delivered or exhausted event counts as old.
func (m *mockRepo) Purge(_ context.Context, _ time.Duration, maxRetries int) (int64, error) {
	var kept []*Event
	var n int64
	for _, e := range m.events {
		if m.processed[e.ID] || e.RetryCount >= maxRetries {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

type directTx struct{ calls int }

func (d *directTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	d.calls++
	return fn(ctx)
}

type recordingPublisher struct {
	name string
	got  []*Event
	err  error
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, e *Event) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, e)
	return nil
}

func appendEvent(t *testing.T, repo *mockRepo, id string) *Event {
	t.Helper()
	e, err := NewEvent("ticket", id, "ticket.created", map[string]string{"id": id})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	repo.Append(context.Background(), e)
	return e
}

// -- Tests --

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("ticket", "12", "ticket.completed", map[string]int{"invoice_id": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Key() != "ticket-12" {
		t.Errorf("unexpected key %s", e.Key())
	}
	if string(e.Payload) != `{"invoice_id":3}` {
		t.Errorf("unexpected payload %s", e.Payload)
	}

	if _, err := NewEvent("ticket", "1", "x", make(chan int)); err == nil {
		t.Error("expected marshal error for unsupported payload")
	}
}

func TestRelay_DeliversToAllPublishers(t *testing.T) {
	repo := newMockRepo()
	appendEvent(t, repo, "1")
	appendEvent(t, repo, "2")

	a := &recordingPublisher{name: "a"}
	b := &recordingPublisher{name: "b"}
	tx := &directTx{}
	relay := NewRelay(repo, tx, zerolog.Nop(), RelayOptions{}, a, b)

	n, err := relay.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 delivered, got %d", n)
	}
	if len(a.got) != 2 || len(b.got) != 2 {
		t.Errorf("expected both publishers to see 2 events, got %d and %d", len(a.got), len(b.got))
	}
	if tx.calls != 1 {
		t.Errorf("expected one transaction per batch, got %d", tx.calls)
	}

	pending, _ := repo.PendingCount(context.Background())
	if pending != 0 {
		t.Errorf("expected no pending events, got %d", pending)
	}
}

func TestRelay_FailureIncrementsRetry(t *testing.T) {
	repo := newMockRepo()
	e := appendEvent(t, repo, "1")

	broken := &recordingPublisher{name: "kafka", err: errors.New("broker unreachable")}
	relay := NewRelay(repo, &directTx{}, zerolog.Nop(), RelayOptions{MaxRetries: 2}, broken)

	for i := 0; i < 3; i++ {
		if _, err := relay.ProcessOnce(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if e.RetryCount != 2 {
		t.Errorf("expected retries to stop at 2, got %d", e.RetryCount)
	}
	if !strings.Contains(repo.failed[e.ID], "broker unreachable") {
		t.Errorf("expected failure reason recorded, got %q", repo.failed[e.ID])
	}
	if repo.processed[e.ID] {
		t.Error("failed event must not be marked processed")
	}
}

func TestRelay_DeadLetterLoggedOnceAndPurged(t *testing.T) {
	repo := newMockRepo()
	dead := appendEvent(t, repo, "1")

	var buf bytes.Buffer
	broken := &recordingPublisher{name: "kafka", err: errors.New("broker unreachable")}
	relay := NewRelay(repo, &directTx{}, zerolog.New(&buf), RelayOptions{MaxRetries: 2, Retention: time.Hour}, broken)

	for i := 0; i < 4; i++ {
		if _, err := relay.ProcessOnce(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := strings.Count(buf.String(), "dead-lettered"); got != 1 {
		t.Errorf("expected one dead-letter log line, got %d:\n%s", got, buf.String())
	}

	broken.err = nil
	live := appendEvent(t, repo, "2")
	delivered := appendEvent(t, repo, "3")
	repo.processed[delivered.ID] = true

	relay.purge(context.Background())

	if len(repo.events) != 1 || repo.events[0].ID != live.ID {
		t.Errorf("expected only the pending event to survive, got %d events", len(repo.events))
	}
	for _, e := range repo.events {
		if e.ID == dead.ID {
			t.Error("dead-lettered event must be purged")
		}
	}
}

func TestRelay_PartialFailureIsRetried(t *testing.T) {
	repo := newMockRepo()
	appendEvent(t, repo, "1")

	ok := &recordingPublisher{name: "ws"}
	broken := &recordingPublisher{name: "kafka", err: errors.New("timeout")}
	relay := NewRelay(repo, &directTx{}, zerolog.Nop(), RelayOptions{}, ok, broken)

	n, _ := relay.ProcessOnce(context.Background())
	if n != 0 {
		t.Errorf("expected 0 fully delivered, got %d", n)
	}

	broken.err = nil
	n, _ = relay.ProcessOnce(context.Background())
	if n != 1 {
		t.Errorf("expected retry to deliver, got %d", n)
	}
	if len(ok.got) != 2 {
		t.Errorf("at-least-once delivery should repeat to healthy publishers, got %d", len(ok.got))
	}
}

func TestRelay_FetchError(t *testing.T) {
	repo := newMockRepo()
	repo.fetchErr = errors.New("relation does not exist")
	relay := NewRelay(repo, &directTx{}, zerolog.Nop(), RelayOptions{})

	if _, err := relay.ProcessOnce(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	repo := newMockRepo()
	appendEvent(t, repo, "1")
	pub := &recordingPublisher{name: "ws"}
	relay := NewRelay(repo, &directTx{}, zerolog.Nop(), RelayOptions{PollInterval: 5 * time.Millisecond}, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := relay.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.got) != 1 {
		t.Errorf("expected event delivered once, got %d", len(pub.got))
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Logger: zerolog.New(&buf)}
	e, _ := NewEvent("ticket", "4", "ticket.created", map[string]int{"id": 4})

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"event_type":"ticket.created"`) {
		t.Errorf("expected event type in log, got %s", buf.String())
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_WritesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "medisync.tickets"}

	e, _ := NewEvent("ticket", "9", "ticket.completed", map[string]int64{"invoice_id": 77})
	e.ID = 31
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "ticket-9" {
		t.Errorf("unexpected key %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "ticket.completed" {
		t.Errorf("unexpected headers %+v", msg.Headers)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.ID != 31 || env.Type != "ticket.completed" || string(env.Data) != `{"invoice_id":77}` {
		t.Errorf("unexpected envelope %+v", env)
	}

	p.Close()
	if !w.closed {
		t.Error("expected writer closed")
	}
	if p.Name() != "kafka:medisync.tickets" {
		t.Errorf("unexpected name %s", p.Name())
	}
}
