package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// mockService implements Service with injectable channels and records sends.
type mockService struct {
	mu        sync.Mutex
	sent      []models.Turn
	sendErr   error
	receipts  chan models.Receipt
	responses chan models.Response
}

func newMockService() *mockService {
	return &mockService{
		receipts:  make(chan models.Receipt, 10),
		responses: make(chan models.Response, 10),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid recipient %q", recipient)
	}
	return canonical, nil
}

func (m *mockService) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, models.Turn{Sender: models.SenderBot, Text: body})
	return nil
}

func (m *mockService) Start(ctx context.Context) error   { return nil }
func (m *mockService) Stop() error                       { return nil }
func (m *mockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *mockService) Responses() <-chan models.Response { return m.responses }

func (m *mockService) sentMessages() []models.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Turn, len(m.sent))
	copy(out, m.sent)
	return out
}

// waitForSent polls until the service has recorded n sends or the deadline
// passes.
func waitForSent(t *testing.T, svc *mockService, n int) []models.Turn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := svc.sentMessages(); len(sent) >= n {
			return sent
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent messages, have %d", n, len(svc.sentMessages()))
	return nil
}

func TestResponseHandlerRoutesReply(t *testing.T) {
	svc := newMockService()

	var handledFrom, handledText string
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		handledFrom = from
		handledText = text
		return "the reply", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewResponseHandler(svc, handler).Start(ctx)

	svc.responses <- models.Response{From: "whatsapp:+15551234567", Body: "yes", Time: 1}

	sent := waitForSent(t, svc, 1)
	if sent[0].Text != "the reply" {
		t.Errorf("sent reply = %q, want %q", sent[0].Text, "the reply")
	}
	if handledFrom != "15551234567" {
		t.Errorf("handler saw sender %q, want canonical form", handledFrom)
	}
	if handledText != "yes" {
		t.Errorf("handler saw text %q, want %q", handledText, "yes")
	}
}

func TestResponseHandlerSendsFallbackOnHandlerError(t *testing.T) {
	svc := newMockService()
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		return "", errors.New("engine failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewResponseHandler(svc, handler).Start(ctx)

	svc.responses <- models.Response{From: "15551234567", Body: "hi", Time: 1}

	sent := waitForSent(t, svc, 1)
	if sent[0].Text != DefaultFallbackMessage {
		t.Errorf("sent = %q, want fallback message", sent[0].Text)
	}
}

func TestResponseHandlerCustomFallback(t *testing.T) {
	svc := newMockService()
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		return "", errors.New("engine failure")
	}

	rh := NewResponseHandler(svc, handler)
	rh.SetFallbackMessage("custom fallback")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rh.Start(ctx)

	svc.responses <- models.Response{From: "15551234567", Body: "hi", Time: 1}

	sent := waitForSent(t, svc, 1)
	if sent[0].Text != "custom fallback" {
		t.Errorf("sent = %q, want custom fallback", sent[0].Text)
	}
}

func TestResponseHandlerDropsInvalidResponses(t *testing.T) {
	svc := newMockService()

	handled := make(chan struct{}, 10)
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		handled <- struct{}{}
		return "reply", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewResponseHandler(svc, handler).Start(ctx)

	// Empty body fails validation; bad sender fails canonicalization.
	svc.responses <- models.Response{From: "15551234567", Body: "", Time: 1}
	svc.responses <- models.Response{From: "123", Body: "hi", Time: 1}
	// A valid response proves the loop survived the invalid ones.
	svc.responses <- models.Response{From: "15551234567", Body: "hi", Time: 1}

	waitForSent(t, svc, 1)
	if len(handled) != 1 {
		t.Errorf("handler invoked %d times, want 1", len(handled))
	}
}

func TestResponseHandlerSkipsEmptyReply(t *testing.T) {
	svc := newMockService()

	handled := make(chan struct{}, 1)
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		handled <- struct{}{}
		return "", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewResponseHandler(svc, handler).Start(ctx)

	svc.responses <- models.Response{From: "15551234567", Body: "hi", Time: 1}

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
	time.Sleep(50 * time.Millisecond)
	if sent := svc.sentMessages(); len(sent) != 0 {
		t.Errorf("sent = %v, want nothing for an empty reply", sent)
	}
}

func TestResponseHandlerSurvivesReceiptChannelClose(t *testing.T) {
	svc := newMockService()
	handler := func(ctx context.Context, from, text string, timestamp int64) (string, error) {
		return "reply", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewResponseHandler(svc, handler).Start(ctx)

	close(svc.receipts)
	time.Sleep(20 * time.Millisecond)

	svc.responses <- models.Response{From: "15551234567", Body: "hi", Time: 1}
	waitForSent(t, svc, 1)
}
