package flow

import (
	"strings"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// StepResult is the outcome of one step of the intake script.
type StepResult struct {
	// Next is the state the session moves to. Equal to the current state
	// when validation failed.
	Next models.SessionState
	// Reply is the script text to send back for this turn.
	Reply string
	// Advanced reports whether the state moved forward (or wrapped to
	// initial at the end of a run).
	Advanced bool
	// Terminal reports whether this step ended the run; the session is
	// cleared and the user starts fresh on their next message.
	Terminal bool
	// GenAI reports whether this turn is escalated to the completion
	// gateway. Failed validations never are.
	GenAI bool
}

// Transition computes the next step of the script from the current state and
// the raw answer text. It is a pure function: no I/O, no session mutation,
// fully covered by the transition table tests.
//
// Every advancing step escalates to the completion gateway except the
// decline closing, which ends the conversation without generated text.
func Transition(state models.SessionState, input string) StepResult {
	switch state {
	case models.StateInitial:
		// First contact: any message starts a run.
		return StepResult{
			Next:     models.StateAskingHealthInsurance,
			Reply:    MsgHealthInsurancePrompt,
			Advanced: true,
			GenAI:    true,
		}

	case models.StateAskingHealthInsurance:
		if !IsValidYesNo(input) {
			return StepResult{Next: state, Reply: ErrorMessageFor(state)}
		}
		if strings.EqualFold(strings.TrimSpace(input), "no") {
			return StepResult{
				Next:     models.StateInitial,
				Reply:    MsgDeclineClosing,
				Advanced: true,
				Terminal: true,
			}
		}
		return StepResult{
			Next:     models.StateAskingFamilySize,
			Reply:    MsgFamilySizePrompt,
			Advanced: true,
			GenAI:    true,
		}

	case models.StateAskingFamilySize:
		if !IsValidFamilySize(input) {
			return StepResult{Next: state, Reply: ErrorMessageFor(state)}
		}
		return StepResult{
			Next:     models.StateAskingIncome,
			Reply:    MsgIncomePrompt,
			Advanced: true,
			GenAI:    true,
		}

	case models.StateAskingIncome:
		if !IsValidIncome(input) {
			return StepResult{Next: state, Reply: ErrorMessageFor(state)}
		}
		return StepResult{
			Next:     models.StateAskingGender,
			Reply:    MsgGenderPrompt,
			Advanced: true,
			GenAI:    true,
		}

	case models.StateAskingGender:
		if !IsValidGender(input) {
			return StepResult{Next: state, Reply: ErrorMessageFor(state)}
		}
		return StepResult{
			Next:     models.StateInitial,
			Reply:    MsgClosing,
			Advanced: true,
			Terminal: true,
			GenAI:    true,
		}

	default:
		// Unknown state: hold position and re-prompt rather than guess.
		return StepResult{Next: state, Reply: MsgGenericRetry}
	}
}
