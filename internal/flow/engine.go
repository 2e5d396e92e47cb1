package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/genai"
	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// ErrNoCompletionClient is reported on the completion path when the engine
// was built without a gateway client. The user still receives the script
// reply plus the fixed apology, same as any other gateway failure.
var ErrNoCompletionClient = errors.New("no completion client configured")

// ConversationRecorder is the narrow seam to durable conversation storage.
// Append semantics: create the record on first write, preserve batch order,
// never deduplicate. Satisfied by store.ConversationStore.
type ConversationRecorder interface {
	AddConversationTurns(userID string, turns []models.Turn) error
}

// PersistErrorFunc observes recorder failures. Persistence errors never
// block reply delivery, so they are reported out-of-band through this hook.
type PersistErrorFunc func(userID string, err error)

// Engine orchestrates the intake script: it sequences questions through the
// transition table, gates advancement on validation, escalates advancing
// turns to the completion gateway, and appends each turn pair to the
// recorder. It is the sole writer of the session store.
type Engine struct {
	sessions   SessionStore
	genai      genai.ClientInterface
	recorder   ConversationRecorder
	persistErr PersistErrorFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPersistErrorFunc overrides the default persistence failure reporter.
func WithPersistErrorFunc(fn PersistErrorFunc) EngineOption {
	return func(e *Engine) { e.persistErr = fn }
}

// NewEngine creates a dialogue engine. genaiClient may be nil, in which case
// every escalated turn takes the gateway failure path.
func NewEngine(sessions SessionStore, genaiClient genai.ClientInterface, recorder ConversationRecorder, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions: sessions,
		genai:    genaiClient,
		recorder: recorder,
		persistErr: func(userID string, err error) {
			slog.Error("Engine conversation persistence failed", "error", err, "userID", userID)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage processes one inbound message for a user and returns the
// reply to send. Side effects run in a fixed order: record the user turn in
// memory, compute the reply, optionally call the completion gateway, record
// the bot turn, persist the turn pair. Persistence runs only after the reply
// text is final, so a recorder outage never blocks delivery.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	if userID == "" {
		return "", models.ErrEmptyUserID
	}

	unlock := e.sessions.Lock(userID)
	defer unlock()

	now := time.Now()
	sess, ok := e.sessions.Get(userID)
	if !ok {
		sess = &models.Session{
			UserID:    userID,
			State:     models.StateInitial,
			CreatedAt: now,
		}
		slog.Debug("Engine created session", "userID", userID)
	}

	userTurn := models.Turn{Sender: models.SenderUser, Text: text, Time: now.Unix()}
	sess.Turns = append(sess.Turns, userTurn)

	step := Transition(sess.State, text)
	slog.Debug("Engine transition computed",
		"userID", userID, "from", sess.State, "to", step.Next,
		"advanced", step.Advanced, "terminal", step.Terminal, "genai", step.GenAI)

	if step.Advanced {
		applyAnswer(sess, text)
	}

	reply := step.Reply
	if step.GenAI {
		completion, err := e.generateCompletion(ctx, sess, step, text)
		if err != nil {
			slog.Error("Engine completion failed, substituting apology", "error", err, "userID", userID)
			reply = reply + "\n\n" + MsgCompletionApology
		} else if completion != "" {
			reply = reply + "\n\n" + completion
		}
	}

	botTurn := models.Turn{Sender: models.SenderBot, Text: reply, Time: time.Now().Unix()}
	sess.Turns = append(sess.Turns, botTurn)

	sess.State = step.Next
	sess.UpdatedAt = time.Now()
	if step.Terminal {
		e.sessions.Clear(userID)
		slog.Info("Engine run completed, session cleared", "userID", userID)
	} else {
		e.sessions.Put(userID, sess)
	}

	// Only the two turns produced by this invocation are appended; earlier
	// turns were already persisted by their own invocations.
	if err := e.recorder.AddConversationTurns(userID, []models.Turn{userTurn, botTurn}); err != nil {
		e.persistErr(userID, fmt.Errorf("failed to append turns for %s: %w", userID, err))
	}

	return reply, nil
}

// generateCompletion runs the single-attempt completion call for an
// escalated turn. Intermediate advances send the raw answer; the closing
// step of a completed run sends the collected answers summary instead.
func (e *Engine) generateCompletion(ctx context.Context, sess *models.Session, step StepResult, input string) (string, error) {
	if e.genai == nil {
		return "", ErrNoCompletionClient
	}
	userPrompt := input
	if step.Terminal {
		userPrompt = answersSummary(sess.Answers)
	}
	return e.genai.GeneratePrompt(ctx, intakeSystemPrompt, userPrompt)
}

// applyAnswer stores the parsed answer for the question the session is
// currently asking. Callers only invoke this after validation passed, so
// parse errors cannot occur here.
func applyAnswer(sess *models.Session, input string) {
	answer := strings.TrimSpace(input)
	switch sess.State {
	case models.StateAskingHealthInsurance:
		sess.Answers.WantsHealthInsurance = strings.EqualFold(answer, "yes")
	case models.StateAskingFamilySize:
		size, _ := strconv.Atoi(answer)
		sess.Answers.FamilySize = size
	case models.StateAskingIncome:
		income, _ := strconv.ParseFloat(answer, 64)
		sess.Answers.Income = income
	case models.StateAskingGender:
		sess.Answers.Gender = strings.ToLower(answer)
	}
}

// answersSummary renders the collected answers as the user prompt for the
// closing completion call.
func answersSummary(a models.Answers) string {
	interest := "no"
	if a.WantsHealthInsurance {
		interest = "yes"
	}
	return fmt.Sprintf("Health Insurance: %s, Family size: %d, Income: %g, Gender: %s",
		interest, a.FamilySize, a.Income, a.Gender)
}
