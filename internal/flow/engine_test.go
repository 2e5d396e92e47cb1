package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// mockGenAI implements genai.ClientInterface and records user prompts.
type mockGenAI struct {
	response string
	err      error
	calls    []string
}

func (m *mockGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls = append(m.calls, userPrompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockRecorder implements ConversationRecorder and records appended batches.
type mockRecorder struct {
	batches map[string][][]models.Turn
	err     error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{batches: make(map[string][][]models.Turn)}
}

func (m *mockRecorder) AddConversationTurns(userID string, turns []models.Turn) error {
	if m.err != nil {
		return m.err
	}
	batch := make([]models.Turn, len(turns))
	copy(batch, turns)
	m.batches[userID] = append(m.batches[userID], batch)
	return nil
}

// record flattens all appended batches for a user in call order.
func (m *mockRecorder) record(userID string) []models.Turn {
	var turns []models.Turn
	for _, batch := range m.batches[userID] {
		turns = append(turns, batch...)
	}
	return turns
}

func newTestEngine(gen *mockGenAI, rec *mockRecorder) (*Engine, *InMemorySessionStore) {
	sessions := NewInMemorySessionStore()
	// A nil *mockGenAI must become a nil interface, not a typed nil.
	if gen == nil {
		return NewEngine(sessions, nil, rec), sessions
	}
	return NewEngine(sessions, gen, rec), sessions
}

func seedSession(sessions *InMemorySessionStore, userID string, state models.SessionState, answers models.Answers) {
	sessions.Put(userID, &models.Session{UserID: userID, State: state, Answers: answers})
}

func TestHandleMessageEmptyUserID(t *testing.T) {
	e, _ := newTestEngine(&mockGenAI{response: "gen"}, newMockRecorder())
	if _, err := e.HandleMessage(context.Background(), "", "hi"); err != models.ErrEmptyUserID {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestFirstContactStartsRun(t *testing.T) {
	gen := &mockGenAI{response: "generated text"}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)

	reply, err := e.HandleMessage(context.Background(), "u1", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(reply, MsgHealthInsurancePrompt) {
		t.Errorf("reply = %q, want prefix %q", reply, MsgHealthInsurancePrompt)
	}
	if !strings.Contains(reply, "generated text") {
		t.Errorf("reply = %q, want completion text appended", reply)
	}

	sess, ok := sessions.Get("u1")
	if !ok {
		t.Fatal("expected session to exist after first contact")
	}
	if sess.State != models.StateAskingHealthInsurance {
		t.Errorf("state = %q, want askingHealthInsurance", sess.State)
	}

	if len(gen.calls) != 1 || gen.calls[0] != "hello there" {
		t.Errorf("genai calls = %v, want one call with the raw message", gen.calls)
	}

	turns := rec.record("u1")
	if len(turns) != 2 {
		t.Fatalf("recorded turns = %d, want 2", len(turns))
	}
	if turns[0].Sender != models.SenderUser || turns[0].Text != "hello there" {
		t.Errorf("first turn = %+v, want user message", turns[0])
	}
	if turns[1].Sender != models.SenderBot || turns[1].Text != reply {
		t.Errorf("second turn = %+v, want bot reply", turns[1])
	}
}

func TestValidFamilySizeAdvances(t *testing.T) {
	gen := &mockGenAI{response: "gen"}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)
	seedSession(sessions, "u1", models.StateAskingFamilySize, models.Answers{WantsHealthInsurance: true})

	reply, err := e.HandleMessage(context.Background(), "u1", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(reply, MsgIncomePrompt) {
		t.Errorf("reply = %q, want income prompt", reply)
	}

	sess, _ := sessions.Get("u1")
	if sess.State != models.StateAskingIncome {
		t.Errorf("state = %q, want askingIncome", sess.State)
	}
	if sess.Answers.FamilySize != 4 {
		t.Errorf("familySize = %d, want 4", sess.Answers.FamilySize)
	}
}

func TestValidationFailureLeavesSessionUnchanged(t *testing.T) {
	gen := &mockGenAI{response: "gen"}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)
	answers := models.Answers{WantsHealthInsurance: true}
	seedSession(sessions, "u1", models.StateAskingFamilySize, answers)

	reply, err := e.HandleMessage(context.Background(), "u1", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != MsgFamilySizeError {
		t.Errorf("reply = %q, want exactly the family size error message", reply)
	}

	sess, _ := sessions.Get("u1")
	if sess.State != models.StateAskingFamilySize {
		t.Errorf("state = %q, want unchanged askingFamilySize", sess.State)
	}
	if sess.Answers != answers {
		t.Errorf("answers = %+v, want unchanged %+v", sess.Answers, answers)
	}
	if len(gen.calls) != 0 {
		t.Errorf("genai calls = %v, failed validations must not escalate", gen.calls)
	}

	// The turn pair is still persisted.
	if got := len(rec.record("u1")); got != 2 {
		t.Errorf("recorded turns = %d, want 2", got)
	}
}

func TestDeclineEndsRunWithoutCompletion(t *testing.T) {
	gen := &mockGenAI{response: "gen"}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)
	seedSession(sessions, "u1", models.StateAskingHealthInsurance, models.Answers{})

	reply, err := e.HandleMessage(context.Background(), "u1", "no")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != MsgDeclineClosing {
		t.Errorf("reply = %q, want decline closing", reply)
	}
	if len(gen.calls) != 0 {
		t.Errorf("genai calls = %v, decline must not escalate", gen.calls)
	}
	if _, ok := sessions.Get("u1"); ok {
		t.Error("expected session cleared after decline")
	}
}

func TestFullRunRecordsWholeExchange(t *testing.T) {
	gen := &mockGenAI{response: "gen"}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)
	ctx := context.Background()

	inputs := []string{"hi", "yes", "4", "50000", "Female"}
	var lastReply string
	for _, input := range inputs {
		var err error
		lastReply, err = e.HandleMessage(ctx, "u1", input)
		if err != nil {
			t.Fatalf("HandleMessage(%q) error: %v", input, err)
		}
	}

	if !strings.HasPrefix(lastReply, MsgClosing) {
		t.Errorf("final reply = %q, want closing message", lastReply)
	}
	if _, ok := sessions.Get("u1"); ok {
		t.Error("expected session cleared after completed run")
	}

	// The closing completion call carries the collected answers summary.
	last := gen.calls[len(gen.calls)-1]
	want := "Health Insurance: yes, Family size: 4, Income: 50000, Gender: female"
	if last != want {
		t.Errorf("closing prompt = %q, want %q", last, want)
	}

	// Five turn pairs appended in call order.
	turns := rec.record("u1")
	if len(turns) != 10 {
		t.Fatalf("recorded turns = %d, want 10", len(turns))
	}
	for i, input := range inputs {
		if turns[2*i].Sender != models.SenderUser || turns[2*i].Text != input {
			t.Errorf("turn %d = %+v, want user %q", 2*i, turns[2*i], input)
		}
		if turns[2*i+1].Sender != models.SenderBot {
			t.Errorf("turn %d = %+v, want bot turn", 2*i+1, turns[2*i+1])
		}
	}

	// A fresh run can start immediately.
	reply, err := e.HandleMessage(ctx, "u1", "hello again")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(reply, MsgHealthInsurancePrompt) {
		t.Errorf("reply = %q, want a fresh health insurance prompt", reply)
	}
}

func TestCompletionFailureDoesNotBlockTransition(t *testing.T) {
	gen := &mockGenAI{err: errors.New("provider unavailable")}
	rec := newMockRecorder()
	e, sessions := newTestEngine(gen, rec)
	seedSession(sessions, "u1", models.StateAskingGender, models.Answers{WantsHealthInsurance: true, FamilySize: 2, Income: 1000})

	reply, err := e.HandleMessage(context.Background(), "u1", "female")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, MsgClosing) {
		t.Errorf("reply = %q, want closing message despite gateway failure", reply)
	}
	if !strings.Contains(reply, MsgCompletionApology) {
		t.Errorf("reply = %q, want apology substitute", reply)
	}
	if _, ok := sessions.Get("u1"); ok {
		t.Error("expected terminal transition to complete despite gateway failure")
	}
	if got := len(rec.record("u1")); got != 2 {
		t.Errorf("recorded turns = %d, want the turn pair appended despite gateway failure", got)
	}
}

func TestNilGenAIClientTakesFailurePath(t *testing.T) {
	rec := newMockRecorder()
	e, _ := newTestEngine(nil, rec)

	reply, err := e.HandleMessage(context.Background(), "u1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, MsgCompletionApology) {
		t.Errorf("reply = %q, want apology when no client configured", reply)
	}
}

func TestPersistenceFailureDoesNotBlockReply(t *testing.T) {
	gen := &mockGenAI{response: "gen"}
	rec := newMockRecorder()
	rec.err = errors.New("store down")

	var reportedUser string
	var reportedErr error
	sessions := NewInMemorySessionStore()
	e := NewEngine(sessions, gen, rec, WithPersistErrorFunc(func(userID string, err error) {
		reportedUser = userID
		reportedErr = err
	}))

	reply, err := e.HandleMessage(context.Background(), "u1", "hi")
	if err != nil {
		t.Fatalf("persistence failure must not surface: %v", err)
	}
	if !strings.HasPrefix(reply, MsgHealthInsurancePrompt) {
		t.Errorf("reply = %q, want the normal prompt", reply)
	}
	if reportedUser != "u1" || reportedErr == nil {
		t.Errorf("persistence failure not reported: user=%q err=%v", reportedUser, reportedErr)
	}

	sess, ok := sessions.Get("u1")
	if !ok || sess.State != models.StateAskingHealthInsurance {
		t.Error("state transition must complete despite persistence failure")
	}
}
